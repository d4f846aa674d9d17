package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Default chunk sizes for the two dispatch paths.
const (
	// DefaultAdHocConcurrency bounds ad-hoc batches.
	DefaultAdHocConcurrency = 5

	// DefaultScheduledConcurrency bounds scheduler-triggered batches.
	DefaultScheduledConcurrency = 10

	// DefaultChunkPause is the fixed pause between chunks, bounding the
	// provider request rate.
	DefaultChunkPause = time.Second
)

// Outcome is the per-job settlement result of a dispatched batch.
type Outcome struct {
	JobID uuid.UUID
	Err   error
}

// Dispatcher fans a batch of job IDs out to the processor in consecutive
// chunks of bounded size. Within a chunk all members run concurrently and
// the dispatcher waits for every one to settle before moving on; one
// member's failure never cancels or blocks its siblings.
type Dispatcher struct {
	processor JobProcessor
	pause     time.Duration
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher. A negative pause falls back to
// DefaultChunkPause; zero disables the inter-chunk pause (useful in tests).
func NewDispatcher(processor JobProcessor, pause time.Duration, logger *slog.Logger) (*Dispatcher, error) {
	if processor == nil {
		return nil, errors.New("processor cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if pause < 0 {
		pause = DefaultChunkPause
	}

	return &Dispatcher{
		processor: processor,
		pause:     pause,
		logger:    logger.With(slog.String("component", "dispatcher")),
	}, nil
}

// Dispatch processes the jobs in chunks of at most concurrency, settling
// each chunk fully before starting the next, with the configured pause in
// between. Individual job failures are recorded on the job records by the
// processor and reported here only as outcomes; Dispatch itself never fails
// because of them. Outcomes are returned in input order.
func (d *Dispatcher) Dispatch(ctx context.Context, jobIDs []uuid.UUID, concurrency int) []Outcome {
	if concurrency <= 0 {
		concurrency = DefaultAdHocConcurrency
	}

	outcomes := make([]Outcome, len(jobIDs))

	for start := 0; start < len(jobIDs); start += concurrency {
		end := start + concurrency
		if end > len(jobIDs) {
			end = len(jobIDs)
		}
		chunk := jobIDs[start:end]

		d.logger.Debug("dispatching chunk",
			slog.Int("chunk_size", len(chunk)),
			slog.Int("dispatched", start),
			slog.Int("total", len(jobIDs)))

		var wg sync.WaitGroup
		for i, id := range chunk {
			wg.Add(1)
			go func(idx int, jobID uuid.UUID) {
				defer wg.Done()
				err := d.processor.Process(ctx, jobID)
				outcomes[start+idx] = Outcome{JobID: jobID, Err: err}
			}(i, id)
		}
		wg.Wait()

		for _, outcome := range outcomes[start:end] {
			if outcome.Err != nil {
				d.logger.Warn("job settled with failure",
					slog.String("tryon_id", outcome.JobID.String()),
					slog.String("error", outcome.Err.Error()))
			}
		}

		// Pause between chunks, but not after the last one.
		if end < len(jobIDs) && d.pause > 0 {
			select {
			case <-time.After(d.pause):
			case <-ctx.Done():
				d.logger.Info("dispatch interrupted between chunks",
					slog.Int("dispatched", end),
					slog.Int("total", len(jobIDs)))
				return outcomes[:end]
			}
		}
	}

	return outcomes
}
