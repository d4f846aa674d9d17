package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adornalabs/tryon-api/internal/domain"
	"github.com/adornalabs/tryon-api/internal/store"
)

func validSubmitParams() domain.NewTryOnParams {
	return domain.NewTryOnParams{
		Kind:            domain.KindPromptOnly,
		JewelryImageRef: "blobs/necklace.png",
		Prompt:          "gold necklace on a model",
	}
}

func TestTryOnServiceSubmit(t *testing.T) {
	t.Parallel()

	t.Run("enqueues a pending job", func(t *testing.T) {
		t.Parallel()

		tryOnStore := newMockTryOnStore()
		svc := NewTryOnService(tryOnStore, nil, testLogger())
		userID := uuid.New()

		tryOn, err := svc.Submit(context.Background(), userID, validSubmitParams())
		require.NoError(t, err)

		assert.Equal(t, userID, tryOn.UserID)
		assert.Equal(t, domain.TryOnStatusPending, tryOn.Status)
		assert.NotNil(t, tryOnStore.get(tryOn.ID))
	})

	t.Run("rejects model kind without model image", func(t *testing.T) {
		t.Parallel()

		svc := NewTryOnService(newMockTryOnStore(), nil, testLogger())

		_, err := svc.Submit(context.Background(), uuid.New(), domain.NewTryOnParams{
			Kind:            domain.KindPromptAndModel,
			JewelryImageRef: "blobs/ring.png",
			Prompt:          "silver ring",
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorIs(t, err, domain.ErrMissingModelImage)
	})

	t.Run("propagates store failures", func(t *testing.T) {
		t.Parallel()

		tryOnStore := newMockTryOnStore()
		storeErr := errors.New("connection reset")
		tryOnStore.CreateFn = func(ctx context.Context, tryOn *domain.TryOn) error {
			return storeErr
		}

		svc := NewTryOnService(tryOnStore, nil, testLogger())
		_, err := svc.Submit(context.Background(), uuid.New(), validSubmitParams())
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestTryOnServiceGet(t *testing.T) {
	t.Parallel()

	tryOnStore := newMockTryOnStore()
	svc := NewTryOnService(tryOnStore, nil, testLogger())

	owner := uuid.New()
	tryOn, err := svc.Submit(context.Background(), owner, validSubmitParams())
	require.NoError(t, err)

	t.Run("owner sees the job", func(t *testing.T) {
		got, err := svc.Get(context.Background(), owner, tryOn.ID)
		require.NoError(t, err)
		assert.Equal(t, tryOn.ID, got.ID)
	})

	t.Run("other users see not found", func(t *testing.T) {
		_, err := svc.Get(context.Background(), uuid.New(), tryOn.ID)
		assert.ErrorIs(t, err, store.ErrTryOnNotFound)
	})

	t.Run("unknown job is not found", func(t *testing.T) {
		_, err := svc.Get(context.Background(), owner, uuid.New())
		assert.ErrorIs(t, err, store.ErrTryOnNotFound)
	})
}

func TestTryOnServiceListMine(t *testing.T) {
	t.Parallel()

	tryOnStore := newMockTryOnStore()
	svc := NewTryOnService(tryOnStore, nil, testLogger())
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		tryOn, err := domain.NewTryOn(userID, validSubmitParams())
		require.NoError(t, err)
		tryOn.CreatedAt = time.Now().UTC().Add(time.Duration(-i) * time.Hour)
		tryOnStore.add(tryOn)
	}
	other, err := domain.NewTryOn(uuid.New(), validSubmitParams())
	require.NoError(t, err)
	tryOnStore.add(other)

	t.Run("returns only the user's jobs, newest first", func(t *testing.T) {
		tryOns, err := svc.ListMine(context.Background(), userID, 0)
		require.NoError(t, err)
		require.Len(t, tryOns, 3)

		for i := 1; i < len(tryOns); i++ {
			assert.True(t, tryOns[i-1].CreatedAt.After(tryOns[i].CreatedAt))
		}
		for _, tryOn := range tryOns {
			assert.Equal(t, userID, tryOn.UserID)
		}
	})

	t.Run("respects the requested limit", func(t *testing.T) {
		tryOns, err := svc.ListMine(context.Background(), userID, 2)
		require.NoError(t, err)
		assert.Len(t, tryOns, 2)
	})

	t.Run("clamps oversized limits", func(t *testing.T) {
		requested := 0
		tryOnStore.ListByUserFn = func(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TryOn, error) {
			requested = limit
			return nil, nil
		}
		defer func() { tryOnStore.ListByUserFn = nil }()

		_, err := svc.ListMine(context.Background(), userID, 10_000)
		require.NoError(t, err)
		assert.Equal(t, MaxListLimit, requested)
	})
}

func TestTryOnServiceRetry(t *testing.T) {
	t.Parallel()

	t.Run("resets a failed job to pending", func(t *testing.T) {
		t.Parallel()

		tryOnStore := newMockTryOnStore()
		svc := NewTryOnService(tryOnStore, nil, testLogger())

		owner := uuid.New()
		failed := newFailedTryOn(t, owner)
		tryOnStore.add(failed)

		tryOn, err := svc.Retry(context.Background(), owner, failed.ID)
		require.NoError(t, err)

		assert.Equal(t, domain.TryOnStatusPending, tryOn.Status)
		assert.Empty(t, tryOn.ErrorMessage)
		assert.Empty(t, tryOn.ResultImageRef)
		assert.Nil(t, tryOn.StartedAt)
		assert.Nil(t, tryOn.CompletedAt)
	})

	t.Run("rejects retry of a pending job", func(t *testing.T) {
		t.Parallel()

		tryOnStore := newMockTryOnStore()
		svc := NewTryOnService(tryOnStore, nil, testLogger())

		owner := uuid.New()
		tryOn, err := svc.Submit(context.Background(), owner, validSubmitParams())
		require.NoError(t, err)

		_, err = svc.Retry(context.Background(), owner, tryOn.ID)
		assert.ErrorIs(t, err, ErrRetryNotAllowed)
	})

	t.Run("other users cannot retry the job", func(t *testing.T) {
		t.Parallel()

		tryOnStore := newMockTryOnStore()
		svc := NewTryOnService(tryOnStore, nil, testLogger())

		failed := newFailedTryOn(t, uuid.New())
		tryOnStore.add(failed)

		_, err := svc.Retry(context.Background(), uuid.New(), failed.ID)
		assert.ErrorIs(t, err, store.ErrTryOnNotFound)
		assert.Equal(t, domain.TryOnStatusFailed, tryOnStore.get(failed.ID).Status)
	})

	t.Run("concurrent retry settles cleanly", func(t *testing.T) {
		t.Parallel()

		tryOnStore := newMockTryOnStore()
		svc := NewTryOnService(tryOnStore, nil, testLogger())

		owner := uuid.New()
		failed := newFailedTryOn(t, owner)
		tryOnStore.add(failed)

		// Simulate another request winning the reset race.
		tryOnStore.ResetToPendingFn = func(ctx context.Context, id uuid.UUID) error {
			tryOnStore.ResetToPendingFn = nil
			require.NoError(t, tryOnStore.ResetToPending(ctx, id))
			return store.ErrWrongStatus
		}

		tryOn, err := svc.Retry(context.Background(), owner, failed.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TryOnStatusPending, tryOn.Status)
	})
}

func TestTryOnServiceDelete(t *testing.T) {
	t.Parallel()

	t.Run("removes the user's job", func(t *testing.T) {
		t.Parallel()

		tryOnStore := newMockTryOnStore()
		svc := NewTryOnService(tryOnStore, nil, testLogger())

		owner := uuid.New()
		tryOn, err := svc.Submit(context.Background(), owner, validSubmitParams())
		require.NoError(t, err)

		require.NoError(t, svc.Delete(context.Background(), owner, tryOn.ID))
		assert.Nil(t, tryOnStore.get(tryOn.ID))
	})

	t.Run("other users cannot delete the job", func(t *testing.T) {
		t.Parallel()

		tryOnStore := newMockTryOnStore()
		svc := NewTryOnService(tryOnStore, nil, testLogger())

		owner := uuid.New()
		tryOn, err := svc.Submit(context.Background(), owner, validSubmitParams())
		require.NoError(t, err)

		err = svc.Delete(context.Background(), uuid.New(), tryOn.ID)
		assert.ErrorIs(t, err, store.ErrTryOnNotFound)
		assert.NotNil(t, tryOnStore.get(tryOn.ID))
	})
}
