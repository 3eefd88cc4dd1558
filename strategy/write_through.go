package strategy

import (
	"context"
	"time"

	"github.com/krisalay/caching/types"
)

/*
WriteThroughStrategy gives synchronous consistency: a Set is visible in
the cache and durable in the backend before it returns, or it fails as a
whole.

The local write happens first so the entry carries a version; if the
backend then refuses the write, the entry is rolled back by that version,
which leaves any newer concurrent write alone. The backend call itself
runs without the store lock held.
*/
type WriteThroughStrategy struct {
	base
}

func NewWriteThrough(deps Deps) *WriteThroughStrategy {
	return &WriteThroughStrategy{base: newBase(deps)}
}

// Get is the cache-aside read path: the caller's loader fills misses.
func (s *WriteThroughStrategy) Get(ctx context.Context, key string, loader types.LoaderFunc) (any, error) {
	return s.getAside(ctx, key, loader)
}

func (s *WriteThroughStrategy) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	ent := s.store.Put(key, value, ttl, s.clock.Now(), false)
	if err := s.backend.Store(ctx, key, value, ttl); err != nil {
		s.store.CompareAndRemove(key, ent.Version)
		return &types.BackendWriteError{Key: key, Err: err}
	}
	return nil
}

// Delete removes from the backend first. If that fails the cached entry
// stays, so the cache never claims a key is gone while the backend still
// has it.
func (s *WriteThroughStrategy) Delete(ctx context.Context, key string) error {
	if err := s.backend.Remove(ctx, key); err != nil {
		return &types.BackendWriteError{Key: key, Err: err}
	}
	s.store.Remove(key)
	return nil
}

func (s *WriteThroughStrategy) Flush(context.Context) error { return nil }

func (s *WriteThroughStrategy) Close() {}
