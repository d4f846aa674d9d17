package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adornalabs/tryon-api/internal/domain"
	"github.com/adornalabs/tryon-api/internal/service/auth"
	"github.com/adornalabs/tryon-api/internal/store"
)

// UserService provides account registration and authentication.
type UserService interface {
	// Register creates a new user with the given email and plaintext
	// password. Returns store.ErrEmailExists if the email is taken and the
	// domain validation errors for malformed input.
	Register(ctx context.Context, email, password string) (*domain.User, error)

	// Authenticate verifies the email and password and returns the user.
	// Returns ErrInvalidCredentials for an unknown email or a wrong password.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	hasher    auth.PasswordHasher
	verifier  auth.PasswordVerifier
	db        *sql.DB
	logger    *slog.Logger
	runTx     func(ctx context.Context, db *sql.DB, fn store.TxFn) error // Injectable for testing
}

// NewUserService creates a new UserService
func NewUserService(
	userStore store.UserStore,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	db *sql.DB,
	logger *slog.Logger,
) *UserServiceImpl {
	return &UserServiceImpl{
		userStore: userStore,
		hasher:    hasher,
		verifier:  verifier,
		db:        db,
		logger:    logger.With("component", "user_service"),
		runTx:     store.RunInTransaction,
	}
}

// Register creates a new user account with a hashed password.
func (s *UserServiceImpl) Register(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := domain.NewUser(email, password)
	if err != nil {
		s.logger.Debug("rejected registration input",
			"error", err,
			"email", email)
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	hashed, err := s.hasher.Hash(user.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("attempted to register existing email", "email", email)
		} else {
			s.logger.Error("failed to save user",
				"error", err,
				"email", email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("registered new user", "user_id", user.ID)
	return user, nil
}

// Authenticate verifies credentials against the stored password hash.
func (s *UserServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("login attempt for unknown email", "email", email)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to look up user for login",
			"error", err,
			"email", email)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		s.logger.Debug("login attempt with wrong password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	s.logger.Debug("user authenticated", "user_id", user.ID)
	return user, nil
}
