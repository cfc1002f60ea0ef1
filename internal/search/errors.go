package search

import "errors"

var (
	// ErrProviderUnavailable means the discovery provider produced no usable
	// response at all. Retryable from the caller's point of view.
	ErrProviderUnavailable = errors.New("place provider unavailable")

	// ErrStorage means our own store failed; there is nothing to retry
	// against the provider.
	ErrStorage = errors.New("storage error")

	// ErrNotFound is a normal negative result on direct lookups.
	ErrNotFound = errors.New("place not found")
)
