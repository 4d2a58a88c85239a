// Package persist provides the durable key-value cache that seeds session
// location state across restarts. The cache is exactly that: a cache. The
// in-memory store is authoritative for a live session, and callers decide
// explicitly whether a persistence failure matters.
package persist

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("persist: key not found")

// KV is a minimal durable key-value store. Implementations must be safe for
// concurrent use.
type KV interface {
	// Get returns the stored value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
