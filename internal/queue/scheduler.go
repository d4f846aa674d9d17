package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/adornalabs/tryon-api/internal/domain"
)

// ErrHandOffFull is returned by the batch hand-off when the dispatch loop is
// still draining earlier work. The scheduler treats it as the signal to fall
// back to per-job scheduling; ad-hoc callers treat it as "wait for the next
// tick".
var ErrHandOffFull = errors.New("batch hand-off is full")

// SchedulerConfig holds the queue scheduler settings.
type SchedulerConfig struct {
	// TickInterval is the wall-clock interval between queue drains.
	TickInterval time.Duration

	// BatchSize bounds how many pending jobs one tick picks up.
	BatchSize int

	// Concurrency is the dispatcher chunk size for scheduled batches.
	Concurrency int

	// AdHocConcurrency is the dispatcher chunk size for batches handed in
	// through Kick, outside the scheduled drain.
	AdHocConcurrency int
}

// DefaultSchedulerConfig returns the production schedule: a 30-second tick
// picking up to 50 pending jobs, dispatched 10 at a time, with ad-hoc
// submissions dispatched 5 at a time.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TickInterval:     30 * time.Second,
		BatchSize:        50,
		Concurrency:      DefaultScheduledConcurrency,
		AdHocConcurrency: DefaultAdHocConcurrency,
	}
}

// batch is one unit of hand-off to the dispatch loop.
type batch struct {
	jobIDs      []uuid.UUID
	concurrency int
}

// Scheduler drains the pending queue on a fixed interval. Each tick selects
// the oldest pending jobs and hands the whole set to the dispatcher as one
// scheduled unit; when that bulk hand-off fails, it degrades to scheduling
// each job individually so some jobs still make progress. Jobs that cannot
// be scheduled at all simply stay pending for the next tick, and state lives
// in the store rather than in this process, so nothing is lost across
// restarts.
type Scheduler struct {
	store      JobStore
	dispatcher *Dispatcher
	config     SchedulerConfig
	logger     *slog.Logger

	cron    *cron.Cron
	batches chan batch

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewScheduler creates a queue scheduler.
func NewScheduler(jobStore JobStore, dispatcher *Dispatcher, config SchedulerConfig, logger *slog.Logger) (*Scheduler, error) {
	if jobStore == nil {
		return nil, errors.New("job store cannot be nil")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.TickInterval <= 0 {
		config.TickInterval = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultScheduledConcurrency
	}
	if config.AdHocConcurrency <= 0 {
		config.AdHocConcurrency = DefaultAdHocConcurrency
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		store:      jobStore,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger.With(slog.String("component", "scheduler")),
		cron:       cron.New(),
		// Capacity 1: one batch may wait while another drains. Beyond that
		// the hand-off reports full and jobs wait in the store instead.
		batches: make(chan batch, 1),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start recovers jobs interrupted by a previous run, then begins the
// periodic queue drain and the dispatch loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already started")
	}
	if s.stopped {
		return errors.New("scheduler already stopped")
	}

	// A crash mid-run leaves rows in processing that nothing reselects.
	// Move them back to pending so the next tick picks them up.
	recovered, err := s.store.RecoverProcessing(s.ctx)
	if err != nil {
		return fmt.Errorf("failed to recover interrupted jobs: %w", err)
	}
	if recovered > 0 {
		s.logger.Info("recovered interrupted jobs back to pending",
			slog.Int64("count", recovered))
	}

	spec := fmt.Sprintf("@every %s", s.config.TickInterval)
	if _, err := s.cron.AddFunc(spec, func() { s.tick(s.ctx) }); err != nil {
		return fmt.Errorf("failed to register queue drain: %w", err)
	}

	s.wg.Add(1)
	go s.dispatchLoop()

	s.cron.Start()
	s.started = true
	s.logger.Info("queue scheduler started",
		slog.Duration("tick_interval", s.config.TickInterval),
		slog.Int("batch_size", s.config.BatchSize),
		slog.Int("concurrency", s.config.Concurrency),
		slog.Int("adhoc_concurrency", s.config.AdHocConcurrency))

	return nil
}

// Stop halts the tick schedule, waits for any in-flight tick to return, and
// drains the dispatch loop. In-flight provider calls run to completion: the
// loop context is canceled only after the drain, so jobs already dispatched
// settle into a terminal state rather than being stranded in processing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true

	if !s.started {
		// Stop is safe to call on a never-started scheduler.
		s.cancel()
		return
	}

	<-s.cron.Stop().Done()
	close(s.batches)
	s.wg.Wait()
	s.cancel()
	s.started = false

	s.logger.Info("queue scheduler stopped")
}

// Kick offers jobs for immediate ad-hoc dispatch, ahead of the next
// scheduled drain. Returns ErrHandOffFull when the dispatch loop is busy; the
// jobs are still pending in the store and the next tick picks them up, so
// callers may treat the error as advisory.
func (s *Scheduler) Kick(jobIDs ...uuid.UUID) error {
	if len(jobIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		// The hand-off channel is closed; the jobs wait in the store.
		return ErrHandOffFull
	}
	return s.handOff(batch{jobIDs: jobIDs, concurrency: s.config.AdHocConcurrency})
}

// tick performs one queue drain: select the oldest pending jobs and hand
// them off for dispatch.
func (s *Scheduler) tick(ctx context.Context) {
	pending, err := s.store.ListByStatus(ctx, domain.TryOnStatusPending, s.config.BatchSize)
	if err != nil {
		s.logger.Error("failed to list pending jobs", slog.String("error", err.Error()))
		return
	}

	if len(pending) == 0 {
		return
	}

	s.logger.Info("found pending jobs to process", slog.Int("count", len(pending)))

	jobIDs := make([]uuid.UUID, len(pending))
	for i, tryOn := range pending {
		jobIDs[i] = tryOn.ID
	}

	if err := s.handOff(batch{jobIDs: jobIDs, concurrency: s.config.Concurrency}); err == nil {
		s.logger.Info("scheduled jobs for batch processing", slog.Int("count", len(jobIDs)))
		return
	}

	// Degraded mode: bulk scheduling is an optimization, not a requirement.
	// Schedule each job on its own; per-job failures are logged and the job
	// stays pending for the next tick.
	s.logger.Warn("bulk hand-off failed, falling back to per-job scheduling",
		slog.Int("count", len(jobIDs)))

	scheduled := 0
	for _, id := range jobIDs {
		if err := s.handOff(batch{jobIDs: []uuid.UUID{id}, concurrency: s.config.Concurrency}); err != nil {
			s.logger.Error("failed to schedule individual job",
				slog.String("tryon_id", id.String()),
				slog.String("error", err.Error()))
			continue
		}
		scheduled++
	}

	s.logger.Info("per-job scheduling settled",
		slog.Int("scheduled", scheduled),
		slog.Int("left_pending", len(jobIDs)-scheduled))
}

// handOff offers a batch to the dispatch loop without blocking the caller.
func (s *Scheduler) handOff(b batch) error {
	select {
	case s.batches <- b:
		return nil
	default:
		return ErrHandOffFull
	}
}

// dispatchLoop drains handed-off batches sequentially. Chunk-level
// concurrency lives in the dispatcher; running one batch at a time keeps the
// engine's peak concurrency at exactly the batch's chunk size.
func (s *Scheduler) dispatchLoop() {
	defer s.wg.Done()

	for b := range s.batches {
		s.dispatcher.Dispatch(s.ctx, b.jobIDs, b.concurrency)
	}
}
