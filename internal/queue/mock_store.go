package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adornalabs/tryon-api/internal/domain"
	"github.com/adornalabs/tryon-api/internal/store"
)

// MockJobStore implements the JobStore interface in memory for testing.
// Its default behaviors mirror the conditional-update semantics of the real
// store; individual operations can be overridden via the *Fn fields.
type MockJobStore struct {
	mutex sync.Mutex
	jobs  map[uuid.UUID]*domain.TryOn

	ListByStatusFn      func(ctx context.Context, status domain.TryOnStatus, limit int) ([]*domain.TryOn, error)
	ClaimPendingFn      func(ctx context.Context, id uuid.UUID) (*domain.TryOn, error)
	MarkCompletedFn     func(ctx context.Context, id uuid.UUID, resultImageRef string) error
	MarkFailedFn        func(ctx context.Context, id uuid.UUID, errorMessage string) error
	RecoverProcessingFn func(ctx context.Context) (int64, error)
}

// NewMockJobStore creates a MockJobStore with default in-memory behavior.
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{
		jobs: make(map[uuid.UUID]*domain.TryOn),
	}
}

// Add seeds the store with a copy of the given job.
func (s *MockJobStore) Add(tryOn *domain.TryOn) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	copied := *tryOn
	s.jobs[tryOn.ID] = &copied
}

// Get returns a copy of the stored job, or nil if absent.
func (s *MockJobStore) Get(id uuid.UUID) *domain.TryOn {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tryOn, ok := s.jobs[id]
	if !ok {
		return nil
	}
	copied := *tryOn
	return &copied
}

// Remove deletes the job, simulating a user delete racing the processor.
func (s *MockJobStore) Remove(id uuid.UUID) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.jobs, id)
}

// ListByStatus implements JobStore.ListByStatus.
func (s *MockJobStore) ListByStatus(ctx context.Context, status domain.TryOnStatus, limit int) ([]*domain.TryOn, error) {
	if s.ListByStatusFn != nil {
		return s.ListByStatusFn(ctx, status, limit)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var matched []*domain.TryOn
	for _, tryOn := range s.jobs {
		if tryOn.Status == status {
			copied := *tryOn
			matched = append(matched, &copied)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// ClaimPending implements JobStore.ClaimPending with compare-and-swap semantics.
func (s *MockJobStore) ClaimPending(ctx context.Context, id uuid.UUID) (*domain.TryOn, error) {
	if s.ClaimPendingFn != nil {
		return s.ClaimPendingFn(ctx, id)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	tryOn, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrTryOnNotFound
	}
	if tryOn.Status != domain.TryOnStatusPending {
		return nil, store.ErrWrongStatus
	}

	now := time.Now().UTC()
	tryOn.Status = domain.TryOnStatusProcessing
	tryOn.StartedAt = &now

	copied := *tryOn
	return &copied, nil
}

// MarkCompleted implements JobStore.MarkCompleted.
func (s *MockJobStore) MarkCompleted(ctx context.Context, id uuid.UUID, resultImageRef string) error {
	if s.MarkCompletedFn != nil {
		return s.MarkCompletedFn(ctx, id, resultImageRef)
	}
	return s.finish(id, domain.TryOnStatusCompleted, resultImageRef, "")
}

// MarkFailed implements JobStore.MarkFailed.
func (s *MockJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	if s.MarkFailedFn != nil {
		return s.MarkFailedFn(ctx, id, errorMessage)
	}
	return s.finish(id, domain.TryOnStatusFailed, "", errorMessage)
}

// RecoverProcessing implements JobStore.RecoverProcessing.
func (s *MockJobStore) RecoverProcessing(ctx context.Context) (int64, error) {
	if s.RecoverProcessingFn != nil {
		return s.RecoverProcessingFn(ctx)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var moved int64
	for _, tryOn := range s.jobs {
		if tryOn.Status == domain.TryOnStatusProcessing {
			tryOn.Status = domain.TryOnStatusPending
			tryOn.StartedAt = nil
			moved++
		}
	}
	return moved, nil
}

func (s *MockJobStore) finish(id uuid.UUID, status domain.TryOnStatus, resultRef, errMsg string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tryOn, ok := s.jobs[id]
	if !ok {
		return store.ErrTryOnNotFound
	}
	if tryOn.Status != domain.TryOnStatusProcessing {
		return store.ErrWrongStatus
	}

	now := time.Now().UTC()
	tryOn.Status = status
	tryOn.ResultImageRef = resultRef
	tryOn.ErrorMessage = errMsg
	tryOn.CompletedAt = &now
	return nil
}

// MockGenerator implements the Generator interface for testing.
type MockGenerator struct {
	GenerateFn func(ctx context.Context, prompt, imageURL, size string) ([]byte, string, error)

	mutex   sync.Mutex
	prompts []string
}

// Generate records the prompt and delegates to GenerateFn, defaulting to a
// fixed PNG payload.
func (g *MockGenerator) Generate(ctx context.Context, prompt, imageURL, size string) ([]byte, string, error) {
	g.mutex.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mutex.Unlock()

	if g.GenerateFn != nil {
		return g.GenerateFn(ctx, prompt, imageURL, size)
	}
	return []byte("generated-image"), "image/png", nil
}

// Prompts returns the prompts seen so far.
func (g *MockGenerator) Prompts() []string {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return append([]string(nil), g.prompts...)
}

// MockBlobStore implements the BlobStore interface for testing.
type MockBlobStore struct {
	PutFn func(ctx context.Context, data []byte, contentType string) (string, error)
	URLFn func(ctx context.Context, ref string) (string, error)

	mutex sync.Mutex
	blobs map[string][]byte
}

// Put stores the blob under a generated key, or delegates to PutFn.
func (b *MockBlobStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	if b.PutFn != nil {
		return b.PutFn(ctx, data, contentType)
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.blobs == nil {
		b.blobs = make(map[string][]byte)
	}
	ref := uuid.New().String()
	b.blobs[ref] = data
	return ref, nil
}

// URL resolves a fake fetchable URL, or delegates to URLFn.
func (b *MockBlobStore) URL(ctx context.Context, ref string) (string, error) {
	if b.URLFn != nil {
		return b.URLFn(ctx, ref)
	}
	return "https://blobs.test/" + ref, nil
}
