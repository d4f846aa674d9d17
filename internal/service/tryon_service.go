package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/adornalabs/tryon-api/internal/domain"
	"github.com/adornalabs/tryon-api/internal/store"
)

// DefaultListLimit bounds how many try-ons a listing returns when the caller
// does not ask for a specific page size.
const DefaultListLimit = 20

// MaxListLimit caps the page size a caller may request.
const MaxListLimit = 100

// TryOnService provides the user-facing try-on job operations. All
// operations are scoped to the requesting user; a job owned by someone else
// is reported as not found rather than forbidden, so job IDs leak nothing.
type TryOnService interface {
	// Submit validates and enqueues a new try-on job in the pending status.
	// The job is picked up asynchronously by the queue scheduler.
	Submit(ctx context.Context, userID uuid.UUID, params domain.NewTryOnParams) (*domain.TryOn, error)

	// Get retrieves one of the user's try-on jobs by ID.
	Get(ctx context.Context, userID, tryOnID uuid.UUID) (*domain.TryOn, error)

	// ListMine retrieves the user's try-on jobs, most recent first. A limit
	// of zero or less falls back to DefaultListLimit.
	ListMine(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TryOn, error)

	// Retry moves one of the user's failed jobs back to pending, clearing
	// the previous outcome so the next run starts from a clean slate.
	// Returns ErrRetryNotAllowed if the job is not failed.
	Retry(ctx context.Context, userID, tryOnID uuid.UUID) (*domain.TryOn, error)

	// Delete permanently removes one of the user's try-on jobs, whatever its
	// status. A job currently processing settles as a no-op when the worker
	// tries to record its outcome.
	Delete(ctx context.Context, userID, tryOnID uuid.UUID) error
}

// QueueNotifier nudges the queue engine to look at specific jobs ahead of
// the next scheduled drain. Notification is best-effort: a full hand-off is
// not an error because the scheduled drain picks the jobs up anyway.
type QueueNotifier interface {
	Kick(jobIDs ...uuid.UUID) error
}

// TryOnServiceImpl implements the TryOnService interface
type TryOnServiceImpl struct {
	tryOnStore store.TryOnStore
	notifier   QueueNotifier // may be nil
	logger     *slog.Logger
}

// NewTryOnService creates a new TryOnService. The notifier may be nil, in
// which case submitted jobs wait for the next scheduled queue drain.
func NewTryOnService(tryOnStore store.TryOnStore, notifier QueueNotifier, logger *slog.Logger) *TryOnServiceImpl {
	return &TryOnServiceImpl{
		tryOnStore: tryOnStore,
		notifier:   notifier,
		logger:     logger.With("component", "tryon_service"),
	}
}

// Submit validates and enqueues a new try-on job.
func (s *TryOnServiceImpl) Submit(ctx context.Context, userID uuid.UUID, params domain.NewTryOnParams) (*domain.TryOn, error) {
	tryOn, err := domain.NewTryOn(userID, params)
	if err != nil {
		s.logger.Debug("rejected try-on submission",
			"error", err,
			"user_id", userID,
			"kind", params.Kind)
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	if err := s.tryOnStore.Create(ctx, tryOn); err != nil {
		s.logger.Error("failed to save try-on",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to create try-on: %w", err)
	}

	s.logger.Info("try-on submitted",
		"tryon_id", tryOn.ID,
		"user_id", userID,
		"kind", tryOn.Kind)

	s.kick(tryOn.ID)

	return tryOn, nil
}

// kick nudges the queue engine about a freshly pending job. Failures only
// delay processing until the next drain, so they are logged and swallowed.
func (s *TryOnServiceImpl) kick(tryOnID uuid.UUID) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Kick(tryOnID); err != nil {
		s.logger.Debug("queue busy, job waits for the next drain",
			"tryon_id", tryOnID,
			"error", err)
	}
}

// Get retrieves one of the user's try-on jobs.
func (s *TryOnServiceImpl) Get(ctx context.Context, userID, tryOnID uuid.UUID) (*domain.TryOn, error) {
	return s.getOwned(ctx, userID, tryOnID)
}

// ListMine retrieves the user's try-on jobs, most recent first.
func (s *TryOnServiceImpl) ListMine(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TryOn, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	tryOns, err := s.tryOnStore.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger.Error("failed to list try-ons",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to list try-ons: %w", err)
	}

	return tryOns, nil
}

// Retry moves a failed job back to pending.
func (s *TryOnServiceImpl) Retry(ctx context.Context, userID, tryOnID uuid.UUID) (*domain.TryOn, error) {
	tryOn, err := s.getOwned(ctx, userID, tryOnID)
	if err != nil {
		return nil, err
	}

	if tryOn.Status != domain.TryOnStatusFailed {
		s.logger.Debug("rejected retry of non-failed try-on",
			"tryon_id", tryOnID,
			"status", tryOn.Status)
		return nil, ErrRetryNotAllowed
	}

	if err := s.tryOnStore.ResetToPending(ctx, tryOnID); err != nil {
		// A concurrent retry already reset the job; the caller's intent is
		// satisfied either way.
		if errors.Is(err, store.ErrWrongStatus) {
			return s.getOwned(ctx, userID, tryOnID)
		}
		s.logger.Error("failed to reset try-on",
			"error", err,
			"tryon_id", tryOnID)
		return nil, fmt.Errorf("failed to retry try-on: %w", err)
	}

	s.logger.Info("try-on queued for retry",
		"tryon_id", tryOnID,
		"user_id", userID)

	s.kick(tryOnID)

	return s.getOwned(ctx, userID, tryOnID)
}

// Delete permanently removes one of the user's try-on jobs.
func (s *TryOnServiceImpl) Delete(ctx context.Context, userID, tryOnID uuid.UUID) error {
	if _, err := s.getOwned(ctx, userID, tryOnID); err != nil {
		return err
	}

	if err := s.tryOnStore.Delete(ctx, tryOnID); err != nil {
		if errors.Is(err, store.ErrTryOnNotFound) {
			// Already gone; deletion is idempotent from the user's view.
			return nil
		}
		s.logger.Error("failed to delete try-on",
			"error", err,
			"tryon_id", tryOnID)
		return fmt.Errorf("failed to delete try-on: %w", err)
	}

	s.logger.Info("try-on deleted",
		"tryon_id", tryOnID,
		"user_id", userID)

	return nil
}

// getOwned loads a job and enforces ownership. A job owned by another user
// is reported as not found.
func (s *TryOnServiceImpl) getOwned(ctx context.Context, userID, tryOnID uuid.UUID) (*domain.TryOn, error) {
	tryOn, err := s.tryOnStore.GetByID(ctx, tryOnID)
	if err != nil {
		if !errors.Is(err, store.ErrTryOnNotFound) {
			s.logger.Error("failed to retrieve try-on",
				"error", err,
				"tryon_id", tryOnID)
		}
		return nil, fmt.Errorf("failed to retrieve try-on: %w", err)
	}

	if tryOn.UserID != userID {
		s.logger.Warn("cross-user try-on access denied",
			"tryon_id", tryOnID,
			"owner_id", tryOn.UserID,
			"user_id", userID)
		return nil, store.ErrTryOnNotFound
	}

	return tryOn, nil
}
