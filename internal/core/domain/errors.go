package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown workflow or provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Run errors.

	// ErrConfig indicates a missing integration or required metadata.
	// A run that hits it is not retried.
	ErrConfig = errors.New("configuration error")

	// ErrAuth indicates a provider rejected the access token (HTTP 401).
	ErrAuth = errors.New("authentication failed")

	// ErrTransient indicates a provider call failed after all retry attempts.
	ErrTransient = errors.New("transient provider failure")

	// ErrRefresh indicates the token refresh exchange or its persistence failed.
	ErrRefresh = errors.New("token refresh failed")

	// ErrItem indicates a single record could not be synchronised.
	// It never aborts a run.
	ErrItem = errors.New("item failed")
)

// IsSystemic reports whether err aborts a whole run rather than a single item.
func IsSystemic(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrItem)
}
