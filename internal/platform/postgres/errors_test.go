package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adornalabs/tryon-api/internal/store"
)

func pgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{Code: code, ConstraintName: constraint}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{
			name:     "no rows maps to not found",
			err:      sql.ErrNoRows,
			sentinel: store.ErrNotFound,
		},
		{
			name:     "wrapped no rows maps to not found",
			err:      fmt.Errorf("query failed: %w", sql.ErrNoRows),
			sentinel: store.ErrNotFound,
		},
		{
			name:     "unique violation maps to duplicate",
			err:      pgError("23505", "users_email_key"),
			sentinel: store.ErrDuplicate,
		},
		{
			name:     "foreign key violation maps to invalid entity",
			err:      pgError("23503", "try_ons_user_id_fkey"),
			sentinel: store.ErrInvalidEntity,
		},
		{
			name:     "check violation maps to invalid entity",
			err:      pgError("23514", "try_ons_status_check"),
			sentinel: store.ErrInvalidEntity,
		},
		{
			name:     "not null violation maps to invalid entity",
			err:      pgError("23502", ""),
			sentinel: store.ErrInvalidEntity,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mapped := MapError(tc.err)
			assert.ErrorIs(t, mapped, tc.sentinel)
		})
	}

	t.Run("nil passes through", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, MapError(nil))
	})

	t.Run("unrecognized errors pass through unchanged", func(t *testing.T) {
		t.Parallel()

		err := errors.New("connection reset")
		assert.Equal(t, err, MapError(err))
	})

	t.Run("unrecognized postgres codes pass through unchanged", func(t *testing.T) {
		t.Parallel()

		err := pgError("57014", "") // query_canceled
		assert.Equal(t, error(err), MapError(err))
	})
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(pgError("23505", "users_email_key")))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgError("23505", ""))))
	assert.False(t, IsUniqueViolation(pgError("23503", "")))
	assert.False(t, IsUniqueViolation(errors.New("unique")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestNewStoresRejectNilDB(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewPostgresUserStore(nil, nil) })
	assert.Panics(t, func() { NewPostgresTryOnStore(nil, nil) })
}

func TestNullString(t *testing.T) {
	t.Parallel()

	require.False(t, nullString("").Valid)

	ns := nullString("images/x.png")
	require.True(t, ns.Valid)
	assert.Equal(t, "images/x.png", ns.String)
}
