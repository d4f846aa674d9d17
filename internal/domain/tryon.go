package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TryOnKind identifies how a try-on job is generated.
type TryOnKind string

// Possible try-on kinds
const (
	// KindPromptOnly renders a model from the prompt alone, wearing the
	// jewelry from the supplied image.
	KindPromptOnly TryOnKind = "with_prompt_only"

	// KindPromptAndModel applies the jewelry to an existing model image.
	// A model image reference is required at creation time.
	KindPromptAndModel TryOnKind = "with_prompt_and_model"
)

// TryOnStatus represents the processing state of a try-on job.
type TryOnStatus string

// Possible try-on status values
const (
	TryOnStatusPending    TryOnStatus = "pending"
	TryOnStatusProcessing TryOnStatus = "processing"
	TryOnStatusCompleted  TryOnStatus = "completed"
	TryOnStatusFailed     TryOnStatus = "failed"
)

// Common validation errors for TryOn
var (
	ErrEmptyTryOnID        = errors.New("try-on ID cannot be empty")
	ErrEmptyTryOnUserID    = errors.New("try-on user ID cannot be empty")
	ErrEmptyJewelryImage   = errors.New("jewelry image reference cannot be empty")
	ErrEmptyPrompt         = errors.New("prompt cannot be empty")
	ErrMissingModelImage   = errors.New("model image reference is required for with_prompt_and_model try-ons")
	ErrInvalidTryOnKind    = errors.New("invalid try-on kind")
	ErrInvalidTryOnStatus  = errors.New("invalid try-on status")
	ErrMissingResultImage  = errors.New("completed try-on requires a result image reference")
	ErrMissingErrorMessage = errors.New("failed try-on requires an error message")
)

// TryOn represents one user-submitted request to produce a generated
// try-on image. It is created pending and driven to a terminal state by
// the queue engine; only an explicit user retry leaves the failed state.
type TryOn struct {
	ID     uuid.UUID   `json:"id"`
	UserID uuid.UUID   `json:"user_id"`
	Kind   TryOnKind   `json:"kind"`
	Status TryOnStatus `json:"status"`

	// JewelryImageRef is the storage reference of the jewelry photo. Always set.
	JewelryImageRef string `json:"jewelry_image_ref"`

	// JewelrySize is an optional free-text size annotation ("18in chain" etc).
	JewelrySize string `json:"jewelry_size,omitempty"`

	Prompt string `json:"prompt"`

	// ModelImageRef is set only for KindPromptAndModel jobs.
	ModelImageRef string `json:"model_image_ref,omitempty"`

	// CombinedImageRef, when set, points to a precomputed side-by-side image
	// of the jewelry and the model, sent to the provider in a single call.
	CombinedImageRef string `json:"combined_image_ref,omitempty"`

	// ResultImageRef is set exactly when Status is completed.
	ResultImageRef string `json:"result_image_ref,omitempty"`

	// ErrorMessage is set exactly when Status is failed.
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTryOnParams carries the caller-supplied fields for a new try-on job.
type NewTryOnParams struct {
	Kind             TryOnKind
	JewelryImageRef  string
	JewelrySize      string
	Prompt           string
	ModelImageRef    string
	CombinedImageRef string
}

// NewTryOn creates a new TryOn owned by the given user. It generates a new
// UUID, forces the status to pending, and sets the creation timestamp.
// Returns a validation error if required fields are missing.
func NewTryOn(userID uuid.UUID, params NewTryOnParams) (*TryOn, error) {
	t := &TryOn{
		ID:               uuid.New(),
		UserID:           userID,
		Kind:             params.Kind,
		Status:           TryOnStatusPending,
		JewelryImageRef:  params.JewelryImageRef,
		JewelrySize:      params.JewelrySize,
		Prompt:           params.Prompt,
		ModelImageRef:    params.ModelImageRef,
		CombinedImageRef: params.CombinedImageRef,
		CreatedAt:        time.Now().UTC(),
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks structural invariants of the TryOn.
// Returns an error describing the first violated invariant.
func (t *TryOn) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTryOnID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTryOnUserID
	}

	if !isValidTryOnKind(t.Kind) {
		return ErrInvalidTryOnKind
	}

	if !isValidTryOnStatus(t.Status) {
		return ErrInvalidTryOnStatus
	}

	if t.JewelryImageRef == "" {
		return ErrEmptyJewelryImage
	}

	if t.Prompt == "" {
		return ErrEmptyPrompt
	}

	if t.Kind == KindPromptAndModel && t.ModelImageRef == "" {
		return ErrMissingModelImage
	}

	// Terminal-state payload invariants: completed and failed are mutually
	// exclusive with respect to result/error data.
	switch t.Status {
	case TryOnStatusCompleted:
		if t.ResultImageRef == "" {
			return ErrMissingResultImage
		}
		if t.ErrorMessage != "" {
			return fmt.Errorf("%w: completed try-on cannot carry an error message", ErrInvalidTryOnStatus)
		}
	case TryOnStatusFailed:
		if t.ErrorMessage == "" {
			return ErrMissingErrorMessage
		}
		if t.ResultImageRef != "" {
			return fmt.Errorf("%w: failed try-on cannot carry a result image", ErrInvalidTryOnStatus)
		}
	}

	return nil
}

// TransitionPayload carries the optional data attached to a status change.
type TransitionPayload struct {
	ResultImageRef string
	ErrorMessage   string
}

// Transition moves the try-on to the target status, applying timestamp and
// payload rules. Illegal transitions and missing payloads are rejected with
// ErrInvalidTransition; callers treat that as a programming error, not a
// user-facing condition.
//
// The legal transitions are:
//
//	pending    -> processing            (sets StartedAt)
//	processing -> completed             (requires ResultImageRef, sets CompletedAt)
//	processing -> failed                (requires ErrorMessage, sets CompletedAt)
//	failed     -> pending               (explicit retry; clears result/error/timestamps)
func (t *TryOn) Transition(target TryOnStatus, payload TransitionPayload) error {
	if !isValidTryOnStatus(target) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}

	now := time.Now().UTC()

	switch {
	case t.Status == TryOnStatusPending && target == TryOnStatusProcessing:
		t.Status = TryOnStatusProcessing
		t.StartedAt = &now

	case t.Status == TryOnStatusProcessing && target == TryOnStatusCompleted:
		if payload.ResultImageRef == "" {
			return fmt.Errorf("%w: %v", ErrInvalidTransition, ErrMissingResultImage)
		}
		t.Status = TryOnStatusCompleted
		t.ResultImageRef = payload.ResultImageRef
		t.ErrorMessage = ""
		t.CompletedAt = &now

	case t.Status == TryOnStatusProcessing && target == TryOnStatusFailed:
		if payload.ErrorMessage == "" {
			return fmt.Errorf("%w: %v", ErrInvalidTransition, ErrMissingErrorMessage)
		}
		t.Status = TryOnStatusFailed
		t.ErrorMessage = payload.ErrorMessage
		t.ResultImageRef = ""
		t.CompletedAt = &now

	case t.Status == TryOnStatusFailed && target == TryOnStatusPending:
		t.Status = TryOnStatusPending
		t.ResultImageRef = ""
		t.ErrorMessage = ""
		t.StartedAt = nil
		t.CompletedAt = nil

	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, target)
	}

	return nil
}

// IsTerminal reports whether the try-on has reached a terminal state for the
// current run. Failed jobs leave the terminal state only through Transition
// back to pending (user retry).
func (t *TryOn) IsTerminal() bool {
	return t.Status == TryOnStatusCompleted || t.Status == TryOnStatusFailed
}

// isValidTryOnKind checks if the given kind is a valid TryOnKind.
func isValidTryOnKind(kind TryOnKind) bool {
	switch kind {
	case KindPromptOnly, KindPromptAndModel:
		return true
	default:
		return false
	}
}

// isValidTryOnStatus checks if the given status is a valid TryOnStatus.
func isValidTryOnStatus(status TryOnStatus) bool {
	switch status {
	case TryOnStatusPending, TryOnStatusProcessing, TryOnStatusCompleted, TryOnStatusFailed:
		return true
	default:
		return false
	}
}
