package strategy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/krisalay/caching/expiration"
	"github.com/krisalay/caching/types"
	"golang.org/x/sync/singleflight"
)

/*
RefreshAheadStrategy reloads entries from the backend shortly before they
expire, so steady readers keep hitting warm data instead of paying a miss
at every TTL boundary.

A read inside the refresh window returns the still-valid cached value
immediately and dispatches the reload in the background. A per-key
pending marker guarantees at most one reload in flight per key; further
reads in the window are plain hits. A failed reload reports a
refreshError event and leaves the stale-but-valid entry in place, to be
retried by a later read or expired naturally.

Misses load from the backend like read-through; writes behave like
write-through.
*/
type RefreshAheadStrategy struct {
	WriteThroughStrategy
	window time.Duration
	sf     singleflight.Group

	mu      sync.Mutex
	pending map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewRefreshAhead(deps Deps) *RefreshAheadStrategy {
	ctx, cancel := context.WithCancel(context.Background())
	return &RefreshAheadStrategy{
		WriteThroughStrategy: WriteThroughStrategy{base: newBase(deps)},
		window:               deps.RefreshWindow,
		pending:              make(map[string]struct{}),
		ctx:                  ctx,
		cancel:               cancel,
	}
}

func (s *RefreshAheadStrategy) Get(ctx context.Context, key string, _ types.LoaderFunc) (any, error) {
	if ent, ok := s.lookup(key); ok {
		if expiration.DueForRefresh(&ent, s.clock.Now(), s.window) {
			s.triggerRefresh(key)
		}
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

// Close stops dispatching reloads and waits for the in-flight ones. The
// backend calls themselves are left to finish; the engine never assumes
// a backend supports interruption.
func (s *RefreshAheadStrategy) Close() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

// triggerRefresh dispatches a background reload unless one is already
// pending for the key.
func (s *RefreshAheadStrategy) triggerRefresh(key string) {
	s.mu.Lock()
	if _, inFlight := s.pending[key]; inFlight {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.ctx.Done():
		s.mu.Unlock()
		return
	default:
	}
	s.pending[key] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.pending, key)
			s.mu.Unlock()
		}()

		value, err := s.backend.Load(s.ctx, key)
		now := s.clock.Now()
		if err != nil {
			s.emitter.Emit(types.Event{
				Kind: types.EventRefreshError,
				Key:  key,
				Time: now,
				Err:  &types.RefreshError{Key: key, Err: err},
			})
			return
		}
		// The commit is dropped if the key was deleted meanwhile.
		s.store.RefreshCommit(key, value, s.ttl, now)
	}()
}
