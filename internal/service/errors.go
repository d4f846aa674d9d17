// Package service provides application-level services for users and try-on jobs.
package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check for these with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrInvalidCredentials indicates a login attempt with an unknown email
	// or a wrong password. The two cases are deliberately indistinguishable.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrRetryNotAllowed indicates an attempt to retry a try-on job that is
	// not in the failed status. API layer should map this to HTTP 409 Conflict.
	ErrRetryNotAllowed = errors.New("only failed try-ons can be retried")
)
