package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/adornalabs/tryon-api/internal/store"
)

// GenericFailureMessage is the only failure text ever stored on a job record.
// Provider and storage error detail is logged server-side, never persisted.
const GenericFailureMessage = "Something went wrong"

// Processor drives exactly one try-on job from pending to a terminal state.
type Processor struct {
	store     JobStore
	generator Generator
	blobs     BlobStore
	imageSize string
	logger    *slog.Logger
}

// NewProcessor creates a single-job processor.
func NewProcessor(jobStore JobStore, generator Generator, blobs BlobStore, imageSize string, logger *slog.Logger) (*Processor, error) {
	if jobStore == nil {
		return nil, errors.New("job store cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if blobs == nil {
		return nil, errors.New("blob store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Processor{
		store:     jobStore,
		generator: generator,
		blobs:     blobs,
		imageSize: imageSize,
		logger:    logger.With(slog.String("component", "processor")),
	}, nil
}

// Process runs one job end to end. It performs exactly one terminal
// transition, or an idempotent no-op when the job is gone or not pending
// (the guard against duplicate scheduling). The returned error reports the
// failure cause for the caller's settlement log; by the time Process
// returns, the job record already reflects the outcome.
func (p *Processor) Process(ctx context.Context, id uuid.UUID) error {
	log := p.logger.With(slog.String("tryon_id", id.String()))

	// Claim the job: the atomic pending->processing swap that also sets the
	// started timestamp. A miss means another dispatch path owns it or the
	// user deleted it.
	tryOn, err := p.store.ClaimPending(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTryOnNotFound) || errors.Is(err, store.ErrWrongStatus) {
			log.Debug("skipping job that is gone or already claimed", slog.String("reason", err.Error()))
			return nil
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}

	log.Info("processing try-on job", slog.String("kind", string(tryOn.Kind)))

	// The combined side-by-side image, when present, carries both inputs in
	// one call; otherwise the jewelry image goes alone.
	inputRef := tryOn.JewelryImageRef
	if tryOn.CombinedImageRef != "" {
		inputRef = tryOn.CombinedImageRef
	}

	imageURL, err := p.blobs.URL(ctx, inputRef)
	if err != nil {
		return p.fail(ctx, log, id, fmt.Errorf("failed to resolve input image URL: %w", err))
	}

	prompt, err := BuildPrompt(tryOn)
	if err != nil {
		return p.fail(ctx, log, id, err)
	}

	// One provider call, no inner retry; recovery is always an explicit
	// user-initiated retry of the failed job.
	data, mimeType, err := p.generator.Generate(ctx, prompt, imageURL, p.imageSize)
	if err != nil {
		return p.fail(ctx, log, id, fmt.Errorf("provider generation failed: %w", err))
	}

	resultRef, err := p.blobs.Put(ctx, data, mimeType)
	if err != nil {
		return p.fail(ctx, log, id, fmt.Errorf("failed to store result image: %w", err))
	}

	// Terminal writes run on a detached context: a shutdown that cancels the
	// run mid-flight must still settle the job instead of stranding it in
	// processing.
	if err := p.store.MarkCompleted(context.WithoutCancel(ctx), id, resultRef); err != nil {
		if errors.Is(err, store.ErrTryOnNotFound) || errors.Is(err, store.ErrWrongStatus) {
			// The user deleted the job while it was in flight; the result
			// blob is orphaned but the run is a no-op, not a crash.
			log.Warn("job disappeared before completion write", slog.String("reason", err.Error()))
			return nil
		}
		// Settle as failed so the user can retry; processing is never a
		// resting state.
		return p.fail(ctx, log, id, fmt.Errorf("failed to mark job completed: %w", err))
	}

	log.Info("try-on job completed", slog.String("result_image_ref", resultRef))
	return nil
}

// fail records the terminal failed state with the generic message, logging
// the real cause server-side only. The write runs on a detached context so a
// job whose run was canceled still lands in failed rather than processing.
// It is otherwise best-effort: a job deleted mid-flight is a no-op, and any
// other write error is joined to the cause and surfaced, not retried inline.
func (p *Processor) fail(ctx context.Context, log *slog.Logger, id uuid.UUID, cause error) error {
	log.Error("try-on job failed", slog.String("error", cause.Error()))

	if err := p.store.MarkFailed(context.WithoutCancel(ctx), id, GenericFailureMessage); err != nil {
		if errors.Is(err, store.ErrTryOnNotFound) || errors.Is(err, store.ErrWrongStatus) {
			log.Warn("job disappeared before failure write", slog.String("reason", err.Error()))
			return cause
		}
		log.Error("failed to record job failure", slog.String("error", err.Error()))
		return errors.Join(cause, fmt.Errorf("failed to mark job failed: %w", err))
	}

	return cause
}
