package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/adornalabs/tryon-api/internal/domain"
	"github.com/adornalabs/tryon-api/internal/platform/logger"
	"github.com/adornalabs/tryon-api/internal/store"
)

// PostgresTryOnStore implements the store.TryOnStore interface using a
// PostgreSQL database as the storage backend.
//
// Status-changing writes are single conditional UPDATE statements keyed on
// the current status, so the pending->processing claim is an atomic
// compare-and-swap and two dispatch paths can never both own the same job.
type PostgresTryOnStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTryOnStore creates a new PostgreSQL implementation of the
// TryOnStore interface. It accepts a database connection or transaction
// managed by the caller. If logger is nil, the default logger is used.
func NewPostgresTryOnStore(db store.DBTX, logger *slog.Logger) *PostgresTryOnStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTryOnStore{
		db:     db,
		logger: logger.With(slog.String("component", "tryon_store")),
	}
}

// Ensure PostgresTryOnStore implements store.TryOnStore
var _ store.TryOnStore = (*PostgresTryOnStore)(nil)

const tryOnColumns = `id, user_id, kind, status, jewelry_image_ref, jewelry_size,
	prompt, model_image_ref, combined_image_ref, result_image_ref, error_message,
	created_at, started_at, completed_at`

// Create implements store.TryOnStore.Create.
// The status is forced to pending regardless of what the entity carries.
func (s *PostgresTryOnStore) Create(ctx context.Context, tryOn *domain.TryOn) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tryOn.Status = domain.TryOnStatusPending
	if err := tryOn.Validate(); err != nil {
		log.Warn("try-on validation failed during create",
			slog.String("error", err.Error()),
			slog.String("tryon_id", tryOn.ID.String()))
		return err
	}

	query := `
		INSERT INTO try_ons (id, user_id, kind, status, jewelry_image_ref,
			jewelry_size, prompt, model_image_ref, combined_image_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		tryOn.ID,
		tryOn.UserID,
		tryOn.Kind,
		tryOn.Status,
		tryOn.JewelryImageRef,
		nullString(tryOn.JewelrySize),
		tryOn.Prompt,
		nullString(tryOn.ModelImageRef),
		nullString(tryOn.CombinedImageRef),
		tryOn.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create try-on",
			slog.String("error", err.Error()),
			slog.String("tryon_id", tryOn.ID.String()),
			slog.String("user_id", tryOn.UserID.String()))
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TryOnStore.GetByID.
func (s *PostgresTryOnStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TryOn, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tryOnColumns+` FROM try_ons WHERE id = $1`, id)

	tryOn, err := scanTryOn(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTryOnNotFound
		}
		return nil, MapError(err)
	}

	return tryOn, nil
}

// ListByUser implements store.TryOnStore.ListByUser: the user's jobs,
// most recent first.
func (s *PostgresTryOnStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TryOn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tryOnColumns+`
		 FROM try_ons
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return collectTryOns(rows)
}

// ListByStatus implements store.TryOnStore.ListByStatus: jobs in the given
// status, oldest first, so the scheduler services older jobs before newer ones.
func (s *PostgresTryOnStore) ListByStatus(ctx context.Context, status domain.TryOnStatus, limit int) ([]*domain.TryOn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tryOnColumns+`
		 FROM try_ons
		 WHERE status = $1
		 ORDER BY created_at ASC
		 LIMIT $2`, status, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return collectTryOns(rows)
}

// ClaimPending implements store.TryOnStore.ClaimPending. The WHERE clause on
// the current status makes the claim a compare-and-swap: of any number of
// concurrent claimers, exactly one sees a row, and a job deleted or already
// claimed surfaces as ErrTryOnNotFound / ErrWrongStatus rather than a
// double execution.
func (s *PostgresTryOnStore) ClaimPending(ctx context.Context, id uuid.UUID) (*domain.TryOn, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE try_ons
		 SET status = $1, started_at = $2
		 WHERE id = $3 AND status = $4
		 RETURNING `+tryOnColumns,
		domain.TryOnStatusProcessing, time.Now().UTC(), id, domain.TryOnStatusPending)

	tryOn, err := scanTryOn(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyMiss(ctx, id)
		}
		return nil, MapError(err)
	}

	return tryOn, nil
}

// MarkCompleted implements store.TryOnStore.MarkCompleted.
func (s *PostgresTryOnStore) MarkCompleted(ctx context.Context, id uuid.UUID, resultImageRef string) error {
	if resultImageRef == "" {
		return domain.ErrMissingResultImage
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE try_ons
		 SET status = $1, result_image_ref = $2, error_message = NULL, completed_at = $3
		 WHERE id = $4 AND status = $5`,
		domain.TryOnStatusCompleted, resultImageRef, time.Now().UTC(),
		id, domain.TryOnStatusProcessing)
	if err != nil {
		return MapError(err)
	}

	return s.requireRow(ctx, result, id)
}

// MarkFailed implements store.TryOnStore.MarkFailed.
func (s *PostgresTryOnStore) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	if errorMessage == "" {
		return domain.ErrMissingErrorMessage
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE try_ons
		 SET status = $1, error_message = $2, result_image_ref = NULL, completed_at = $3
		 WHERE id = $4 AND status = $5`,
		domain.TryOnStatusFailed, errorMessage, time.Now().UTC(),
		id, domain.TryOnStatusProcessing)
	if err != nil {
		return MapError(err)
	}

	return s.requireRow(ctx, result, id)
}

// ResetToPending implements store.TryOnStore.ResetToPending, the persistence
// side of user retry: failed -> pending with result, error, and run
// timestamps cleared.
func (s *PostgresTryOnStore) ResetToPending(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE try_ons
		 SET status = $1, result_image_ref = NULL, error_message = NULL,
		     started_at = NULL, completed_at = NULL
		 WHERE id = $2 AND status = $3`,
		domain.TryOnStatusPending, id, domain.TryOnStatusFailed)
	if err != nil {
		return MapError(err)
	}

	return s.requireRow(ctx, result, id)
}

// RecoverProcessing implements store.TryOnStore.RecoverProcessing. It moves
// all processing rows back to pending in one statement; any job a prior run
// claimed but never finished becomes schedulable again.
func (s *PostgresTryOnStore) RecoverProcessing(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE try_ons
		 SET status = $1, started_at = NULL
		 WHERE status = $2`,
		domain.TryOnStatusPending, domain.TryOnStatusProcessing)
	if err != nil {
		return 0, MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}

	return rows, nil
}

// Delete implements store.TryOnStore.Delete.
func (s *PostgresTryOnStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM try_ons WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows == 0 {
		return store.ErrTryOnNotFound
	}

	return nil
}

// WithTx implements store.TryOnStore.WithTx.
func (s *PostgresTryOnStore) WithTx(tx *sql.Tx) store.TryOnStore {
	return &PostgresTryOnStore{
		db:     tx,
		logger: s.logger,
	}
}

// classifyMiss distinguishes "row gone" from "row in another status" after a
// conditional update matched nothing.
func (s *PostgresTryOnStore) classifyMiss(ctx context.Context, id uuid.UUID) error {
	var status domain.TryOnStatus
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM try_ons WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrTryOnNotFound
		}
		return MapError(err)
	}
	return store.ErrWrongStatus
}

// requireRow converts a zero-rows-affected conditional update into the
// appropriate sentinel error.
func (s *PostgresTryOnStore) requireRow(ctx context.Context, result sql.Result, id uuid.UUID) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rows == 0 {
		return s.classifyMiss(ctx, id)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTryOn(row rowScanner) (*domain.TryOn, error) {
	var (
		tryOn            domain.TryOn
		jewelrySize      sql.NullString
		modelImageRef    sql.NullString
		combinedImageRef sql.NullString
		resultImageRef   sql.NullString
		errorMessage     sql.NullString
		startedAt        sql.NullTime
		completedAt      sql.NullTime
	)

	err := row.Scan(
		&tryOn.ID,
		&tryOn.UserID,
		&tryOn.Kind,
		&tryOn.Status,
		&tryOn.JewelryImageRef,
		&jewelrySize,
		&tryOn.Prompt,
		&modelImageRef,
		&combinedImageRef,
		&resultImageRef,
		&errorMessage,
		&tryOn.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	tryOn.JewelrySize = jewelrySize.String
	tryOn.ModelImageRef = modelImageRef.String
	tryOn.CombinedImageRef = combinedImageRef.String
	tryOn.ResultImageRef = resultImageRef.String
	tryOn.ErrorMessage = errorMessage.String
	if startedAt.Valid {
		t := startedAt.Time
		tryOn.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		tryOn.CompletedAt = &t
	}

	return &tryOn, nil
}

func collectTryOns(rows *sql.Rows) ([]*domain.TryOn, error) {
	var tryOns []*domain.TryOn

	for rows.Next() {
		tryOn, err := scanTryOn(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tryOns = append(tryOns, tryOn)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return tryOns, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
