package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/adornalabs/tryon-api/internal/domain"
	"github.com/adornalabs/tryon-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// mockTryOnStore is an in-memory TryOnStore for service tests. Individual
// methods can be overridden through the Fn fields.
type mockTryOnStore struct {
	CreateFn         func(ctx context.Context, tryOn *domain.TryOn) error
	GetByIDFn        func(ctx context.Context, id uuid.UUID) (*domain.TryOn, error)
	ListByUserFn     func(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TryOn, error)
	ResetToPendingFn func(ctx context.Context, id uuid.UUID) error
	DeleteFn         func(ctx context.Context, id uuid.UUID) error

	mutex sync.Mutex
	jobs  map[uuid.UUID]*domain.TryOn
}

var _ store.TryOnStore = (*mockTryOnStore)(nil)

func newMockTryOnStore() *mockTryOnStore {
	return &mockTryOnStore{jobs: make(map[uuid.UUID]*domain.TryOn)}
}

func (s *mockTryOnStore) add(tryOn *domain.TryOn) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	copied := *tryOn
	s.jobs[tryOn.ID] = &copied
}

func (s *mockTryOnStore) get(id uuid.UUID) *domain.TryOn {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tryOn, ok := s.jobs[id]
	if !ok {
		return nil
	}
	copied := *tryOn
	return &copied
}

func (s *mockTryOnStore) Create(ctx context.Context, tryOn *domain.TryOn) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, tryOn)
	}

	tryOn.Status = domain.TryOnStatusPending
	s.add(tryOn)
	return nil
}

func (s *mockTryOnStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TryOn, error) {
	if s.GetByIDFn != nil {
		return s.GetByIDFn(ctx, id)
	}

	tryOn := s.get(id)
	if tryOn == nil {
		return nil, store.ErrTryOnNotFound
	}
	return tryOn, nil
}

func (s *mockTryOnStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TryOn, error) {
	if s.ListByUserFn != nil {
		return s.ListByUserFn(ctx, userID, limit)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var matched []*domain.TryOn
	for _, tryOn := range s.jobs {
		if tryOn.UserID == userID {
			copied := *tryOn
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *mockTryOnStore) ListByStatus(ctx context.Context, status domain.TryOnStatus, limit int) ([]*domain.TryOn, error) {
	return nil, nil
}

func (s *mockTryOnStore) ClaimPending(ctx context.Context, id uuid.UUID) (*domain.TryOn, error) {
	return nil, store.ErrTryOnNotFound
}

func (s *mockTryOnStore) MarkCompleted(ctx context.Context, id uuid.UUID, resultImageRef string) error {
	return store.ErrTryOnNotFound
}

func (s *mockTryOnStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return store.ErrTryOnNotFound
}

func (s *mockTryOnStore) RecoverProcessing(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *mockTryOnStore) ResetToPending(ctx context.Context, id uuid.UUID) error {
	if s.ResetToPendingFn != nil {
		return s.ResetToPendingFn(ctx, id)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	tryOn, ok := s.jobs[id]
	if !ok {
		return store.ErrTryOnNotFound
	}
	if tryOn.Status != domain.TryOnStatusFailed {
		return store.ErrWrongStatus
	}

	tryOn.Status = domain.TryOnStatusPending
	tryOn.ResultImageRef = ""
	tryOn.ErrorMessage = ""
	tryOn.StartedAt = nil
	tryOn.CompletedAt = nil
	return nil
}

func (s *mockTryOnStore) Delete(ctx context.Context, id uuid.UUID) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, id)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return store.ErrTryOnNotFound
	}
	delete(s.jobs, id)
	return nil
}

func (s *mockTryOnStore) WithTx(tx *sql.Tx) store.TryOnStore { return s }

// mockUserStore is an in-memory UserStore for service tests.
type mockUserStore struct {
	CreateFn     func(ctx context.Context, user *domain.User) error
	GetByEmailFn func(ctx context.Context, email string) (*domain.User, error)

	mutex sync.Mutex
	users map[uuid.UUID]*domain.User
}

var _ store.UserStore = (*mockUserStore)(nil)

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (s *mockUserStore) Create(ctx context.Context, user *domain.User) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, user)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.GetByEmailFn != nil {
		return s.GetByEmailFn(ctx, email)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *mockUserStore) WithTx(tx *sql.Tx) store.UserStore { return s }

// passthroughTx substitutes for a real database transaction in unit tests.
func passthroughTx(ctx context.Context, db *sql.DB, fn store.TxFn) error {
	return fn(ctx, nil)
}

func newFailedTryOn(t *testing.T, userID uuid.UUID) *domain.TryOn {
	t.Helper()

	tryOn, err := domain.NewTryOn(userID, domain.NewTryOnParams{
		Kind:            domain.KindPromptOnly,
		JewelryImageRef: "blobs/necklace.png",
		Prompt:          "gold necklace on a model",
	})
	require.NoError(t, err)

	require.NoError(t, tryOn.Transition(domain.TryOnStatusProcessing, domain.TransitionPayload{}))
	require.NoError(t, tryOn.Transition(domain.TryOnStatusFailed, domain.TransitionPayload{
		ErrorMessage: "Something went wrong",
	}))
	return tryOn
}
