// Package gemini implements the AI image provider on Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/adornalabs/tryon-api/internal/config"
)

// maxInputImageBytes bounds how much of a fetched input image is read.
const maxInputImageBytes = 20 << 20

// ImageGenerator produces a generated image from a prompt and an input image
// URL using a Gemini image-generation model. One call maps to exactly one
// provider request; retry policy belongs to the caller, not to this layer.
type ImageGenerator struct {
	logger     *slog.Logger
	client     *genai.Client
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// NewImageGenerator creates a generator from the provider configuration.
func NewImageGenerator(ctx context.Context, logger *slog.Logger, cfg config.ProviderConfig) (*ImageGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	return &ImageGenerator{
		logger:     logger.With(slog.String("component", "image_generator")),
		client:     client,
		model:      cfg.ModelName,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Generate fetches the input image, sends it with the prompt to the model,
// and returns the generated image bytes with their MIME type. The size hint
// is appended to the prompt; Gemini image models take no explicit size
// parameter.
func (g *ImageGenerator) Generate(ctx context.Context, prompt, imageURL, size string) ([]byte, string, error) {
	if prompt == "" {
		return nil, "", fmt.Errorf("%w: empty prompt", ErrInvalidConfig)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	imageData, imageMIME, err := g.fetchInputImage(ctx, imageURL)
	if err != nil {
		return nil, "", err
	}

	if size != "" {
		prompt = prompt + "\n\nOutput image size: " + size + "."
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(imageData, imageMIME),
		}, genai.RoleUser),
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	g.logger.InfoContext(ctx, "calling image provider",
		slog.String("model", g.model),
		slog.Int("input_bytes", len(imageData)))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	return extractImage(resp)
}

// fetchInputImage downloads the input image so it can be sent inline.
func (g *ImageGenerator) fetchInputImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: bad input image URL: %v", ErrProviderFailure, err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to fetch input image: %v", ErrProviderFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: input image fetch returned %d", ErrProviderFailure, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxInputImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to read input image: %v", ErrProviderFailure, err)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}

	return data, mime, nil
}

// extractImage pulls the first inline image out of a generation response.
func extractImage(resp *genai.GenerateContentResponse) ([]byte, string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, "", fmt.Errorf("%w: no candidates", ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, "", ErrContentBlocked
	}
	if candidate.Content == nil {
		return nil, "", fmt.Errorf("%w: empty candidate content", ErrInvalidResponse)
	}

	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return part.InlineData.Data, mime, nil
		}
	}

	return nil, "", fmt.Errorf("%w: no image in response", ErrInvalidResponse)
}
