package cache

import (
	"context"
	"time"
)

// Store is the backing key/value store for the typed cache. Implementations
// must treat ttl == 0 as "never expires".
type Store interface {
	// Get returns the raw value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes the raw value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes a single key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every key under the prefix and reports how
	// many were removed. Backends without pattern deletion must clear the
	// whole prefix namespace rather than silently doing nothing.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
