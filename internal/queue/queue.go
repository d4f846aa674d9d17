package queue

import (
	"context"

	"github.com/google/uuid"

	"github.com/adornalabs/tryon-api/internal/domain"
)

// JobStore is the slice of the try-on store the queue engine consumes.
type JobStore interface {
	// ListByStatus returns jobs in the given status, oldest first, up to limit.
	ListByStatus(ctx context.Context, status domain.TryOnStatus, limit int) ([]*domain.TryOn, error)

	// ClaimPending atomically moves a pending job to processing and returns
	// the claimed record. Returns store.ErrTryOnNotFound if the job is gone
	// and store.ErrWrongStatus if it is no longer pending.
	ClaimPending(ctx context.Context, id uuid.UUID) (*domain.TryOn, error)

	// MarkCompleted moves a processing job to completed with the result reference.
	MarkCompleted(ctx context.Context, id uuid.UUID, resultImageRef string) error

	// MarkFailed moves a processing job to failed with the given message.
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error

	// RecoverProcessing moves every processing job back to pending,
	// returning how many rows moved. Run at startup to recover jobs a
	// previous run left behind.
	RecoverProcessing(ctx context.Context) (int64, error)
}

// Generator is the AI image provider contract. One call is one provider
// request; the engine never retries inside a job run.
type Generator interface {
	Generate(ctx context.Context, prompt, imageURL, size string) (data []byte, mimeType string, err error)
}

// BlobStore is the durable object storage contract the engine consumes.
type BlobStore interface {
	// Put stores the blob and returns its storage reference.
	Put(ctx context.Context, data []byte, contentType string) (string, error)

	// URL resolves a fetchable URL for a stored blob.
	URL(ctx context.Context, ref string) (string, error)
}

// JobProcessor runs a single job to a terminal state. Implemented by
// Processor; a seam for dispatcher and scheduler tests.
type JobProcessor interface {
	Process(ctx context.Context, id uuid.UUID) error
}
