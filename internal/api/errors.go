package api

import (
	"errors"
	"net/http"

	"github.com/adornalabs/tryon-api/internal/domain"
	"github.com/adornalabs/tryon-api/internal/service"
	"github.com/adornalabs/tryon-api/internal/service/auth"
	"github.com/adornalabs/tryon-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Not found errors, including the entity-specific wrappers
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Conflict errors
	case store.IsDuplicateError(err),
		errors.Is(err, service.ErrRetryNotAllowed),
		errors.Is(err, store.ErrWrongStatus):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, service.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrTryOnNotFound):
		return "Try-on not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, service.ErrRetryNotAllowed):
		return "Only failed try-ons can be retried"

	case errors.Is(err, store.ErrWrongStatus):
		return "Try-on is not in a state that allows this operation"

	case errors.Is(err, domain.ErrValidation):
		// Domain validation messages are written for users; pass the detail.
		return err.Error()

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid identifier"

	default:
		return "An unexpected error occurred"
	}
}
