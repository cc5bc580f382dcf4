package cache

import (
	"context"
	"time"
)

// TTLReport is how long analysis reports stay cached. Snapshots never
// change, so only the disk space bounds this.
const TTLReport = 7 * 24 * time.Hour

// Cache is a key-value store for serialized results.
type Cache interface {
	// Get returns the value for key. A miss is reported with ok=false and a
	// nil error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Clearer is implemented by caches that can drop all their entries.
type Clearer interface {
	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}
