package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/adornalabs/tryon-api/internal/api/middleware"
	"github.com/adornalabs/tryon-api/internal/api/shared"
	"github.com/adornalabs/tryon-api/internal/domain"
	"github.com/adornalabs/tryon-api/internal/service"
)

// BlobURLResolver resolves stored image references into short-lived URLs
// clients can fetch directly.
type BlobURLResolver interface {
	URL(ctx context.Context, ref string) (string, error)
}

// TryOnHandler handles try-on job API requests.
type TryOnHandler struct {
	tryOnService service.TryOnService
	blobs        BlobURLResolver
	logger       *slog.Logger
}

// NewTryOnHandler creates a new TryOnHandler with the given dependencies.
func NewTryOnHandler(
	tryOnService service.TryOnService,
	blobs BlobURLResolver,
	logger *slog.Logger,
) *TryOnHandler {
	return &TryOnHandler{
		tryOnService: tryOnService,
		blobs:        blobs,
		logger:       logger.With("component", "tryon_handler"),
	}
}

// Create handles POST /tryons. The job is accepted into the queue; the
// response reports it as pending and processing happens asynchronously.
func (h *TryOnHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateTryOnRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	tryOn, err := h.tryOnService.Submit(r.Context(), userID, req.NewTryOnParams())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, h.toResponse(r.Context(), tryOn))
}

// List handles GET /tryons. Returns the authenticated user's jobs, most
// recent first. An optional limit query parameter bounds the page size.
func (h *TryOnHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	tryOns, err := h.tryOnService.ListMine(r.Context(), userID, limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]TryOnResponse, len(tryOns))
	for i, tryOn := range tryOns {
		responses[i] = h.toResponse(r.Context(), tryOn)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TryOnListResponse{TryOns: responses})
}

// Get handles GET /tryons/{id}.
func (h *TryOnHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	tryOnID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid try-on ID")
		return
	}

	tryOn, err := h.tryOnService.Get(r.Context(), userID, tryOnID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.toResponse(r.Context(), tryOn))
}

// Retry handles POST /tryons/{id}/retry. Only failed jobs can be retried;
// the job goes back to pending and is picked up by the next queue drain.
func (h *TryOnHandler) Retry(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	tryOnID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid try-on ID")
		return
	}

	tryOn, err := h.tryOnService.Retry(r.Context(), userID, tryOnID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, h.toResponse(r.Context(), tryOn))
}

// Delete handles DELETE /tryons/{id}.
func (h *TryOnHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	tryOnID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid try-on ID")
		return
	}

	if err := h.tryOnService.Delete(r.Context(), userID, tryOnID); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toResponse converts a domain TryOn into its API shape, resolving stored
// image references into URLs. Resolution failures are logged and the URL
// omitted; the rest of the job is still returned.
func (h *TryOnHandler) toResponse(ctx context.Context, tryOn *domain.TryOn) TryOnResponse {
	resp := TryOnResponse{
		ID:           tryOn.ID,
		Kind:         string(tryOn.Kind),
		Status:       string(tryOn.Status),
		JewelrySize:  tryOn.JewelrySize,
		Prompt:       tryOn.Prompt,
		ErrorMessage: tryOn.ErrorMessage,
		CreatedAt:    tryOn.CreatedAt,
		StartedAt:    tryOn.StartedAt,
		CompletedAt:  tryOn.CompletedAt,
	}

	resp.JewelryImageURL = h.resolveURL(ctx, tryOn.ID, tryOn.JewelryImageRef)
	resp.ModelImageURL = h.resolveURL(ctx, tryOn.ID, tryOn.ModelImageRef)
	resp.ResultImageURL = h.resolveURL(ctx, tryOn.ID, tryOn.ResultImageRef)

	return resp
}

func (h *TryOnHandler) resolveURL(ctx context.Context, tryOnID uuid.UUID, ref string) string {
	if ref == "" {
		return ""
	}

	url, err := h.blobs.URL(ctx, ref)
	if err != nil {
		h.logger.Warn("failed to resolve image URL",
			"error", err,
			"tryon_id", tryOnID,
			"ref", ref)
		return ""
	}
	return url
}
