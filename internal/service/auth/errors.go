package auth

import "errors"

// Sentinel errors returned by token validation.
var (
	// ErrInvalidToken indicates a malformed token or a signature mismatch.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token's expiry has passed.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token's nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrMissingToken indicates no token was supplied where one is required.
	ErrMissingToken = errors.New("authentication token is missing")
)
