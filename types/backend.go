package types

import (
	"context"
	"time"
)

/*
Backend is the contract between the engine and a concrete storage
technology (in-memory map, file store, embedded database, remote
key-value service, ...).

The engine assumes nothing about a backend beyond this contract: calls may
be slow and may fail. Implementations must be safe for concurrent use.
*/
type Backend interface {

	// Load fetches the value for key from the backing store.
	// It returns ErrNotFound (possibly wrapped) when the key is absent.
	Load(ctx context.Context, key string) (any, error)

	// Store writes the value for key to the backing store. A ttl of zero
	// means the backend should keep the value without an expiry of its
	// own.
	Store(ctx context.Context, key string, value any, ttl time.Duration) error

	// Remove deletes the key from the backing store. Removing an absent
	// key is not an error.
	Remove(ctx context.Context, key string) error
}

// LoaderFunc is a caller-supplied source-of-truth lookup used by the
// cache-aside read path. It is invoked on a miss to fetch the value from
// wherever the caller keeps it.
type LoaderFunc func(ctx context.Context, key string) (any, error)
