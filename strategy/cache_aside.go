package strategy

import (
	"context"
	"time"

	"github.com/krisalay/caching/types"
)

/*
CacheAsideStrategy keeps the caller in charge of the source of truth.

Reads fill misses through the caller's loader. Writes go straight to the
backend and invalidate the cached entry instead of updating it: the next
read reloads the authoritative value, so the cache can never serve a
write the backend rejected.
*/
type CacheAsideStrategy struct {
	base
}

func NewCacheAside(deps Deps) *CacheAsideStrategy {
	return &CacheAsideStrategy{base: newBase(deps)}
}

func (s *CacheAsideStrategy) Get(ctx context.Context, key string, loader types.LoaderFunc) (any, error) {
	return s.getAside(ctx, key, loader)
}

// Set writes to the backend, then removes the cached entry. On backend
// failure nothing changes locally: the cached value, if any, is still
// the last one the backend accepted.
func (s *CacheAsideStrategy) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := s.backend.Store(ctx, key, value, ttl); err != nil {
		return &types.BackendWriteError{Key: key, Err: err}
	}
	s.store.Remove(key)
	return nil
}

func (s *CacheAsideStrategy) Delete(ctx context.Context, key string) error {
	if err := s.backend.Remove(ctx, key); err != nil {
		return &types.BackendWriteError{Key: key, Err: err}
	}
	s.store.Remove(key)
	return nil
}

func (s *CacheAsideStrategy) Flush(context.Context) error { return nil }

func (s *CacheAsideStrategy) Close() {}
