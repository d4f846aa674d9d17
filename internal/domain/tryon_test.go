package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() NewTryOnParams {
	return NewTryOnParams{
		Kind:            KindPromptOnly,
		JewelryImageRef: "blobs/jewelry-1.png",
		Prompt:          "elegant gold necklace on a model",
	}
}

func TestNewTryOn(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("creates pending job with timestamps", func(t *testing.T) {
		t.Parallel()

		tryOn, err := NewTryOn(userID, validParams())
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, tryOn.ID)
		assert.Equal(t, userID, tryOn.UserID)
		assert.Equal(t, TryOnStatusPending, tryOn.Status)
		assert.False(t, tryOn.CreatedAt.IsZero())
		assert.Nil(t, tryOn.StartedAt)
		assert.Nil(t, tryOn.CompletedAt)
	})

	t.Run("rejects missing jewelry image", func(t *testing.T) {
		t.Parallel()

		params := validParams()
		params.JewelryImageRef = ""

		_, err := NewTryOn(userID, params)
		assert.ErrorIs(t, err, ErrEmptyJewelryImage)
	})

	t.Run("rejects empty prompt", func(t *testing.T) {
		t.Parallel()

		params := validParams()
		params.Prompt = ""

		_, err := NewTryOn(userID, params)
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})

	t.Run("rejects model kind without model image", func(t *testing.T) {
		t.Parallel()

		params := validParams()
		params.Kind = KindPromptAndModel

		_, err := NewTryOn(userID, params)
		assert.ErrorIs(t, err, ErrMissingModelImage)
	})

	t.Run("accepts model kind with model image", func(t *testing.T) {
		t.Parallel()

		params := validParams()
		params.Kind = KindPromptAndModel
		params.ModelImageRef = "blobs/model-1.png"

		tryOn, err := NewTryOn(userID, params)
		require.NoError(t, err)
		assert.Equal(t, KindPromptAndModel, tryOn.Kind)
	})

	t.Run("rejects nil user", func(t *testing.T) {
		t.Parallel()

		_, err := NewTryOn(uuid.Nil, validParams())
		assert.ErrorIs(t, err, ErrEmptyTryOnUserID)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		t.Parallel()

		params := validParams()
		params.Kind = "with_magic"

		_, err := NewTryOn(userID, params)
		assert.ErrorIs(t, err, ErrInvalidTryOnKind)
	})
}

func TestTryOnTransition(t *testing.T) {
	t.Parallel()

	newJob := func(t *testing.T) *TryOn {
		t.Helper()
		tryOn, err := NewTryOn(uuid.New(), validParams())
		require.NoError(t, err)
		return tryOn
	}

	t.Run("pending to processing sets started timestamp", func(t *testing.T) {
		t.Parallel()

		tryOn := newJob(t)
		err := tryOn.Transition(TryOnStatusProcessing, TransitionPayload{})
		require.NoError(t, err)

		assert.Equal(t, TryOnStatusProcessing, tryOn.Status)
		require.NotNil(t, tryOn.StartedAt)
		assert.Nil(t, tryOn.CompletedAt)
	})

	t.Run("processing to completed requires result", func(t *testing.T) {
		t.Parallel()

		tryOn := newJob(t)
		require.NoError(t, tryOn.Transition(TryOnStatusProcessing, TransitionPayload{}))

		err := tryOn.Transition(TryOnStatusCompleted, TransitionPayload{})
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, TryOnStatusProcessing, tryOn.Status)
	})

	t.Run("processing to completed sets result and timestamp", func(t *testing.T) {
		t.Parallel()

		tryOn := newJob(t)
		require.NoError(t, tryOn.Transition(TryOnStatusProcessing, TransitionPayload{}))

		err := tryOn.Transition(TryOnStatusCompleted, TransitionPayload{ResultImageRef: "blobs/result-1.png"})
		require.NoError(t, err)

		assert.Equal(t, TryOnStatusCompleted, tryOn.Status)
		assert.Equal(t, "blobs/result-1.png", tryOn.ResultImageRef)
		assert.Empty(t, tryOn.ErrorMessage)
		assert.NotNil(t, tryOn.CompletedAt)
		assert.True(t, tryOn.IsTerminal())
		assert.NoError(t, tryOn.Validate())
	})

	t.Run("processing to failed requires error message", func(t *testing.T) {
		t.Parallel()

		tryOn := newJob(t)
		require.NoError(t, tryOn.Transition(TryOnStatusProcessing, TransitionPayload{}))

		err := tryOn.Transition(TryOnStatusFailed, TransitionPayload{})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("processing to failed clears result", func(t *testing.T) {
		t.Parallel()

		tryOn := newJob(t)
		require.NoError(t, tryOn.Transition(TryOnStatusProcessing, TransitionPayload{}))

		err := tryOn.Transition(TryOnStatusFailed, TransitionPayload{ErrorMessage: "Something went wrong"})
		require.NoError(t, err)

		assert.Equal(t, TryOnStatusFailed, tryOn.Status)
		assert.Equal(t, "Something went wrong", tryOn.ErrorMessage)
		assert.Empty(t, tryOn.ResultImageRef)
		assert.True(t, tryOn.IsTerminal())
		assert.NoError(t, tryOn.Validate())
	})

	t.Run("failed to pending clears everything", func(t *testing.T) {
		t.Parallel()

		tryOn := newJob(t)
		require.NoError(t, tryOn.Transition(TryOnStatusProcessing, TransitionPayload{}))
		require.NoError(t, tryOn.Transition(TryOnStatusFailed, TransitionPayload{ErrorMessage: "Something went wrong"}))

		err := tryOn.Transition(TryOnStatusPending, TransitionPayload{})
		require.NoError(t, err)

		assert.Equal(t, TryOnStatusPending, tryOn.Status)
		assert.Empty(t, tryOn.ErrorMessage)
		assert.Empty(t, tryOn.ResultImageRef)
		assert.Nil(t, tryOn.StartedAt)
		assert.Nil(t, tryOn.CompletedAt)
	})

	t.Run("retry is idempotent in effect", func(t *testing.T) {
		t.Parallel()

		tryOn := newJob(t)

		// Fail and retry twice; the pending state after each retry is identical.
		for i := 0; i < 2; i++ {
			require.NoError(t, tryOn.Transition(TryOnStatusProcessing, TransitionPayload{}))
			require.NoError(t, tryOn.Transition(TryOnStatusFailed, TransitionPayload{ErrorMessage: "Something went wrong"}))
			require.NoError(t, tryOn.Transition(TryOnStatusPending, TransitionPayload{}))

			assert.Equal(t, TryOnStatusPending, tryOn.Status)
			assert.Empty(t, tryOn.ErrorMessage)
			assert.Empty(t, tryOn.ResultImageRef)
			assert.Nil(t, tryOn.StartedAt)
			assert.Nil(t, tryOn.CompletedAt)
		}
	})

	t.Run("illegal transitions are rejected", func(t *testing.T) {
		t.Parallel()

		cases := []struct {
			name    string
			prepare func(t *testing.T, tryOn *TryOn)
			target  TryOnStatus
		}{
			{"pending to completed", func(t *testing.T, tryOn *TryOn) {}, TryOnStatusCompleted},
			{"pending to failed", func(t *testing.T, tryOn *TryOn) {}, TryOnStatusFailed},
			{"pending to pending", func(t *testing.T, tryOn *TryOn) {}, TryOnStatusPending},
			{"processing to pending", func(t *testing.T, tryOn *TryOn) {
				require.NoError(t, tryOn.Transition(TryOnStatusProcessing, TransitionPayload{}))
			}, TryOnStatusPending},
			{"completed to processing", func(t *testing.T, tryOn *TryOn) {
				require.NoError(t, tryOn.Transition(TryOnStatusProcessing, TransitionPayload{}))
				require.NoError(t, tryOn.Transition(TryOnStatusCompleted, TransitionPayload{ResultImageRef: "r"}))
			}, TryOnStatusProcessing},
			{"completed to pending", func(t *testing.T, tryOn *TryOn) {
				require.NoError(t, tryOn.Transition(TryOnStatusProcessing, TransitionPayload{}))
				require.NoError(t, tryOn.Transition(TryOnStatusCompleted, TransitionPayload{ResultImageRef: "r"}))
			}, TryOnStatusPending},
			{"failed to processing", func(t *testing.T, tryOn *TryOn) {
				require.NoError(t, tryOn.Transition(TryOnStatusProcessing, TransitionPayload{}))
				require.NoError(t, tryOn.Transition(TryOnStatusFailed, TransitionPayload{ErrorMessage: "e"}))
			}, TryOnStatusProcessing},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				tryOn := newJob(t)
				tc.prepare(t, tryOn)
				before := tryOn.Status

				err := tryOn.Transition(tc.target, TransitionPayload{ResultImageRef: "r", ErrorMessage: "e"})
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, before, tryOn.Status, "status must not change on rejected transition")
			})
		}
	})
}

func TestTryOnValidateTerminalInvariants(t *testing.T) {
	t.Parallel()

	tryOn, err := NewTryOn(uuid.New(), validParams())
	require.NoError(t, err)

	t.Run("completed without result is invalid", func(t *testing.T) {
		job := *tryOn
		job.Status = TryOnStatusCompleted
		assert.ErrorIs(t, job.Validate(), ErrMissingResultImage)
	})

	t.Run("completed with error message is invalid", func(t *testing.T) {
		job := *tryOn
		job.Status = TryOnStatusCompleted
		job.ResultImageRef = "r"
		job.ErrorMessage = "e"
		assert.Error(t, job.Validate())
	})

	t.Run("failed without error message is invalid", func(t *testing.T) {
		job := *tryOn
		job.Status = TryOnStatusFailed
		assert.ErrorIs(t, job.Validate(), ErrMissingErrorMessage)
	})

	t.Run("failed with result is invalid", func(t *testing.T) {
		job := *tryOn
		job.Status = TryOnStatusFailed
		job.ErrorMessage = "e"
		job.ResultImageRef = "r"
		assert.Error(t, job.Validate())
	})
}
