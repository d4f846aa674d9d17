package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/adornalabs/tryon-api/internal/domain"
)

// RegisterRequest represents the payload for user registration.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest represents the payload for user login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse represents the response for successful authentication.
type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Token  string    `json:"token"`
}

// CreateTryOnRequest represents the payload for submitting a try-on job.
type CreateTryOnRequest struct {
	Kind             string `json:"kind"               validate:"required,oneof=with_prompt_only with_prompt_and_model"`
	JewelryImageRef  string `json:"jewelry_image_ref"  validate:"required"`
	JewelrySize      string `json:"jewelry_size,omitempty"`
	Prompt           string `json:"prompt"             validate:"required"`
	ModelImageRef    string `json:"model_image_ref,omitempty"`
	CombinedImageRef string `json:"combined_image_ref,omitempty"`
}

// TryOnResponse represents a try-on job as returned to clients. Image
// references are resolved to short-lived URLs; raw storage keys are never
// exposed.
type TryOnResponse struct {
	ID              uuid.UUID  `json:"id"`
	Kind            string     `json:"kind"`
	Status          string     `json:"status"`
	JewelrySize     string     `json:"jewelry_size,omitempty"`
	Prompt          string     `json:"prompt"`
	JewelryImageURL string     `json:"jewelry_image_url,omitempty"`
	ModelImageURL   string     `json:"model_image_url,omitempty"`
	ResultImageURL  string     `json:"result_image_url,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// TryOnListResponse wraps a page of try-on jobs.
type TryOnListResponse struct {
	TryOns []TryOnResponse `json:"try_ons"`
}

// UploadResponse represents the response for a successful image upload.
type UploadResponse struct {
	ImageRef string `json:"image_ref"`
	URL      string `json:"url"`
}

// NewTryOnParams converts the request into domain submission parameters.
func (r CreateTryOnRequest) NewTryOnParams() domain.NewTryOnParams {
	return domain.NewTryOnParams{
		Kind:             domain.TryOnKind(r.Kind),
		JewelryImageRef:  r.JewelryImageRef,
		JewelrySize:      r.JewelrySize,
		Prompt:           r.Prompt,
		ModelImageRef:    r.ModelImageRef,
		CombinedImageRef: r.CombinedImageRef,
	}
}
