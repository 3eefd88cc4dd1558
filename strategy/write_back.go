package strategy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/krisalay/caching/types"
)

/*
WriteBackStrategy decouples writes from the backend: Set lands in the
store, marks the entry dirty, and returns. A background flusher
propagates dirty entries every FlushInterval.

Delivery is at least once and a write is never silently dropped: a failed
flush reports a flushError event, leaves the entry dirty, and the next
pass retries it. A dirty entry displaced from the cache by eviction or
expiry moves to the store's pending stash and is flushed from there. The flusher snapshots dirty entries under the store
lock, talks to the backend with the lock released, and commits by
clearing the dirty flag only when the entry's version is unchanged — a
write that lands mid-flight stays dirty for the next pass, so the backend
always ends up with the newest value.
*/
type WriteBackStrategy struct {
	base
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewWriteBack(deps Deps) *WriteBackStrategy {
	ctx, cancel := context.WithCancel(context.Background())
	s := &WriteBackStrategy{
		base:     newBase(deps),
		interval: deps.FlushInterval,
		ctx:      ctx,
		cancel:   cancel,
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	s.wg.Add(1)
	go s.flushLoop()
	return s
}

// Get is the cache-aside read path. A dirty entry is served like any
// other, so a writer reads its own not-yet-flushed write.
func (s *WriteBackStrategy) Get(ctx context.Context, key string, loader types.LoaderFunc) (any, error) {
	return s.getAside(ctx, key, loader)
}

func (s *WriteBackStrategy) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.store.Put(key, value, ttl, s.clock.Now(), true)
	return nil
}

// Delete removes locally and from the backend synchronously. A dirty
// entry deleted before its flush is superseded by the delete; its
// pending write is intentionally not delivered.
func (s *WriteBackStrategy) Delete(ctx context.Context, key string) error {
	s.store.Remove(key)
	if err := s.backend.Remove(ctx, key); err != nil {
		return &types.BackendWriteError{Key: key, Err: err}
	}
	return nil
}

// Flush runs one flush pass. Failures are reported per key through the
// event emitter regardless; the returned error aggregates them for
// callers who flush explicitly (shutdown, tests).
func (s *WriteBackStrategy) Flush(ctx context.Context) error {
	var errs []error
	for _, snap := range s.store.DirtySnapshot() {
		ttl := remainingTTL(snap, s.clock.Now())
		if err := s.backend.Store(ctx, snap.Key, snap.Value, ttl); err != nil {
			flushErr := &types.FlushError{Key: snap.Key, Err: err}
			s.emitter.Emit(types.Event{
				Kind: types.EventFlushError,
				Key:  snap.Key,
				Time: s.clock.Now(),
				Err:  flushErr,
			})
			errs = append(errs, flushErr)
			continue
		}
		s.store.ClearDirty(snap.Key, snap.Version)
	}
	return errors.Join(errs...)
}

// Close stops the flush loop and runs a final pass so a graceful
// shutdown leaves no dirty entry behind.
func (s *WriteBackStrategy) Close() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		_ = s.Flush(context.Background())
	})
}

func (s *WriteBackStrategy) flushLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = s.Flush(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

// remainingTTL converts a snapshot's absolute expiry back into a TTL for
// the backend write. An entry without expiry, or one that expired while
// waiting for its flush, is delivered without a backend TTL: the write
// itself must never be lost.
func remainingTTL(snap types.CacheEntry, now time.Time) time.Duration {
	if snap.ExpireAt.IsZero() {
		return 0
	}
	if d := snap.ExpireAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
