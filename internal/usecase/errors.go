package usecase

import "errors"

// Sentinel errors services return; the HTTP layer maps each to a stable
// error code and status.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limited")
	ErrInvariant       = errors.New("invariant violation")
	// ErrTransient marks retryable dependency failures (connection drops,
	// broker unavailability). The worker retries these; handlers surface 503.
	ErrTransient = errors.New("dependency unavailable")
)
