package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/adornalabs/tryon-api/internal/api/middleware"
	"github.com/adornalabs/tryon-api/internal/api/shared"
)

// MaxUploadBytes bounds the size of an uploaded image.
const MaxUploadBytes = 20 << 20 // 20 MB

// BlobUploader stores uploaded images and resolves references back to URLs.
type BlobUploader interface {
	BlobURLResolver
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

// UploadHandler handles image upload API requests. Clients upload jewelry
// and model images here first, then reference the returned keys when
// submitting a try-on job.
type UploadHandler struct {
	blobs  BlobUploader
	logger *slog.Logger
}

// NewUploadHandler creates a new UploadHandler with the given dependencies.
func NewUploadHandler(blobs BlobUploader, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		blobs:  blobs,
		logger: logger.With("component", "upload_handler"),
	}
}

// Upload handles POST /uploads. Accepts a multipart form with an "image"
// field and returns the storage reference for later try-on submissions.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r); !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid multipart form or image too large")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing image field")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to read uploaded image", err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Only image uploads are accepted")
		return
	}

	ref, err := h.blobs.Put(r.Context(), data, contentType)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to store image", err)
		return
	}

	url, err := h.blobs.URL(r.Context(), ref)
	if err != nil {
		// The upload succeeded; the client can still use the reference.
		h.logger.Warn("failed to resolve uploaded image URL",
			"error", err,
			"ref", ref)
	}

	h.logger.Info("image uploaded",
		"ref", ref,
		"content_type", contentType,
		"size_bytes", len(data))

	shared.RespondWithJSON(w, r, http.StatusCreated, UploadResponse{
		ImageRef: ref,
		URL:      url,
	})
}

// ResolveURL handles GET /images/url?ref=... and returns a fresh fetchable
// URL for a previously uploaded image. References contain slashes, so the
// reference travels as a query parameter rather than a path segment.
func (h *UploadHandler) ResolveURL(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r); !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	ref := r.URL.Query().Get("ref")
	if ref == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing ref parameter")
		return
	}

	url, err := h.blobs.URL(r.Context(), ref)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to resolve image URL", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UploadResponse{
		ImageRef: ref,
		URL:      url,
	})
}
