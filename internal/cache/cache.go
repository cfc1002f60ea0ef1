// Package cache defines the query cache abstraction used by the search
// engine. Entries map a normalized query key to the provider place ids that
// satisfied it.
package cache

import (
	"context"
	"time"
)

type Store interface {
	// Get returns the cached place ids for key. found is false on miss or
	// logical expiry; a logically expired entry is never returned even if the
	// backend has not purged it yet.
	Get(ctx context.Context, key string) (ids []string, found bool, err error)

	// Set upserts the entry, overwriting any existing ids and expiry.
	Set(ctx context.Context, key string, ids []string, ttl time.Duration) error

	// Delete removes an entry, reporting whether one existed.
	Delete(ctx context.Context, key string) (bool, error)

	// CleanupExpired physically removes expired entries and returns the count.
	// Backends with native expiry return 0 and never error.
	CleanupExpired(ctx context.Context) (int, error)

	// Clear removes every entry, expired or not, and returns the count. The
	// recovery path when cached entries are wrong wholesale, e.g. after the
	// search type groups change.
	Clear(ctx context.Context) (int, error)

	// Close releases backend resources. Safe to call more than once.
	Close() error
}
