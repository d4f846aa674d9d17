package gemini

import "errors"

// Errors returned by the image generator.
var (
	// ErrInvalidConfig indicates the generator was constructed with missing
	// or invalid configuration.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrProviderFailure indicates the provider call itself failed
	// (network error, API error, timeout).
	ErrProviderFailure = errors.New("image provider call failed")

	// ErrInvalidResponse indicates the provider responded but without a
	// usable image.
	ErrInvalidResponse = errors.New("invalid provider response")

	// ErrContentBlocked indicates the provider refused the request on
	// safety grounds.
	ErrContentBlocked = errors.New("content blocked by provider safety filters")
)
