package strategy

import (
	"context"
	"errors"

	"github.com/krisalay/caching/types"
	"golang.org/x/sync/singleflight"
)

/*
ReadThroughStrategy makes the engine itself the loader: on a miss it
calls the backend transparently and the caller's loader argument is
ignored. Writes behave exactly like write-through.

Concurrent misses on the same key are deduplicated with singleflight, so
a cold hot-key costs one backend load, not one per waiting goroutine.
*/
type ReadThroughStrategy struct {
	WriteThroughStrategy
	sf singleflight.Group
}

func NewReadThrough(deps Deps) *ReadThroughStrategy {
	return &ReadThroughStrategy{
		WriteThroughStrategy: WriteThroughStrategy{base: newBase(deps)},
	}
}

func (s *ReadThroughStrategy) Get(ctx context.Context, key string, _ types.LoaderFunc) (any, error) {
	if ent, ok := s.lookup(key); ok {
		return ent.Value, nil
	}

	value, err, _ := s.sf.Do(key, func() (any, error) {
		value, err := s.backend.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		s.store.Put(key, value, s.ttl, s.clock.Now(), false)
		return value, nil
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, &types.BackendReadError{Key: key, Err: err}
	}
	return value, nil
}
