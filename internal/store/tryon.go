// Package store provides abstractions and implementations for data persistence.
package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/adornalabs/tryon-api/internal/domain"
)

// TryOnStore defines the interface for try-on job persistence.
//
// All writes that change the job status are expressed as conditional,
// single-statement updates so concurrent writers to the same row serialize at
// the database and a row is never observed mid-update.
type TryOnStore interface {
	// Create saves a new try-on job. The status is forced to pending
	// regardless of what the entity carries.
	// Returns validation errors from the domain TryOn if data is invalid.
	Create(ctx context.Context, tryOn *domain.TryOn) error

	// GetByID retrieves a try-on job by its unique ID.
	// Returns ErrTryOnNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TryOn, error)

	// ListByUser retrieves the user's jobs, most recent first, up to limit.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TryOn, error)

	// ListByStatus retrieves jobs in the given status, oldest first, up to
	// limit. The scheduler uses this so older pending jobs are serviced first.
	ListByStatus(ctx context.Context, status domain.TryOnStatus, limit int) ([]*domain.TryOn, error)

	// ClaimPending atomically moves a pending job to processing and sets its
	// started timestamp. It is the compare-and-swap that closes the window in
	// which two dispatch paths could pick up the same job.
	// Returns ErrTryOnNotFound if the job does not exist and ErrWrongStatus
	// if it exists but is no longer pending.
	ClaimPending(ctx context.Context, id uuid.UUID) (*domain.TryOn, error)

	// MarkCompleted moves a processing job to completed with the result
	// reference, clearing any error message and setting the completion
	// timestamp. Conditional on the job still being in processing.
	MarkCompleted(ctx context.Context, id uuid.UUID, resultImageRef string) error

	// MarkFailed moves a processing job to failed with the given message,
	// clearing any result reference and setting the completion timestamp.
	// Conditional on the job still being in processing.
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error

	// ResetToPending moves a failed job back to pending, clearing the result
	// reference, error message, and both run timestamps. Used by user retry.
	// Returns ErrWrongStatus if the job is not failed.
	ResetToPending(ctx context.Context, id uuid.UUID) error

	// RecoverProcessing moves every processing job back to pending, clearing
	// the started timestamp, and returns the number of rows moved. The queue
	// engine runs it at startup so jobs interrupted by a crash or shutdown
	// are rescheduled rather than stuck in processing.
	RecoverProcessing(ctx context.Context) (int64, error)

	// Delete permanently removes a try-on job.
	// Returns ErrTryOnNotFound if the job does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new TryOnStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TryOnStore
}
