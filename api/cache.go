package api

import (
	"context"
	"time"

	"github.com/krisalay/caching/types"
)

/*
Cache is the public surface of the caching engine. All of the moving
parts behind it (entry store, eviction policy, expiration, strategy,
background workers) stay hidden; the interface only promises behavior.

All methods are safe for concurrent use.
*/
type Cache interface {

	// Get retrieves the value for key according to the configured
	// strategy. A read-through or refresh-ahead cache loads misses from
	// the backend itself; other strategies report a bare miss as
	// types.ErrNotFound.
	Get(ctx context.Context, key string) (any, error)

	// GetWithLoader is Get with a caller-supplied loader for the miss
	// path. Strategies that load from the backend themselves ignore the
	// loader.
	GetWithLoader(ctx context.Context, key string, loader types.LoaderFunc) (any, error)

	// Set writes the value for key under the configured strategy, using
	// the configured default TTL.
	Set(ctx context.Context, key string, value any) error

	// SetWithTTL is Set with an explicit time-to-live for this entry.
	// A non-positive TTL stores the entry without expiry.
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes key from the cache and, strategy permitting, from
	// the backend. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Has reports whether key is cached and not expired, without
	// counting as an access.
	Has(key string) bool

	// Len returns the number of cached entries, possibly including
	// expired ones that have not been swept yet.
	Len() int

	// Expire resets the TTL of an existing entry to now+ttl. It reports
	// whether the key was present.
	Expire(key string, ttl time.Duration) bool

	// TTL returns the remaining time-to-live for key: -1 if the key has
	// no TTL, -2 if the key is absent or expired.
	TTL(key string) time.Duration

	// Flush forces pending asynchronous writes to the backend. It is a
	// no-op for synchronous strategies.
	Flush(ctx context.Context) error

	// Clear drops every cached entry. The backend is not touched.
	Clear()

	// Close stops background work and, for write-back, flushes pending
	// writes. The cache must not be used afterwards.
	Close()
}
