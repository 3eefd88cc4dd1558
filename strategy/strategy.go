package strategy

import (
	"context"
	"time"

	"github.com/krisalay/caching/store"
	"github.com/krisalay/caching/types"
)

/*
This package implements the consistency contracts between the in-memory
entry store and the backing store. A strategy decides what a read or
write means: who loads on a miss, whether a write reaches the backend
synchronously, asynchronously, or not at all, and what happens when the
backend fails.

The closed set of strategies is cache-aside, read-through, write-through,
write-back, and refresh-ahead.
*/

// Kind names a strategy in configuration.
type Kind string

const (
	// CacheAside: the caller's loader fills misses; a write goes to the
	// backend and invalidates the cached entry.
	CacheAside Kind = "cache-aside"

	// ReadThrough: the engine itself loads misses from the backend;
	// writes behave like write-through.
	ReadThrough Kind = "read-through"

	// WriteThrough: writes land in the store and the backend before Set
	// returns, or not at all.
	WriteThrough Kind = "write-through"

	// WriteBack: writes land in the store immediately and reach the
	// backend in background flush passes.
	WriteBack Kind = "write-back"

	// RefreshAhead: reads near expiry trigger a background reload so the
	// entry is fresh again before it expires; writes behave like
	// write-through.
	RefreshAhead Kind = "refresh-ahead"
)

/*
Strategy is the contract the cache front door dispatches through.

Get may invoke the caller-supplied loader (cache-aside family) or the
backend (read-through family) on a miss; strategies that never use the
loader ignore it. Set receives the TTL already resolved by the caller.
Flush forces pending asynchronous work to the backend and is a no-op for
synchronous strategies. Close stops background work; the strategy must
not be used afterwards.
*/
type Strategy interface {
	Get(ctx context.Context, key string, loader types.LoaderFunc) (any, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
	Close()
}

// Deps carries the collaborators every strategy is built from.
type Deps struct {
	Store   *store.Store
	Backend types.Backend
	Emitter types.Emitter
	Clock   types.Clock

	// DefaultTTL applies to entries the strategy creates itself, i.e.
	// miss fills and refresh commits.
	DefaultTTL time.Duration

	// RefreshWindow is how long before expiry a refresh-ahead reload
	// fires. Only the refresh-ahead strategy reads it.
	RefreshWindow time.Duration

	// FlushInterval is the period between write-back flush passes. Only
	// the write-back strategy reads it.
	FlushInterval time.Duration
}

// New builds the strategy for the given kind. Configuration validation
// happens before this point, so an unknown kind is a programming error.
func New(kind Kind, deps Deps) Strategy {
	switch kind {
	case CacheAside:
		return NewCacheAside(deps)
	case ReadThrough:
		return NewReadThrough(deps)
	case WriteThrough:
		return NewWriteThrough(deps)
	case WriteBack:
		return NewWriteBack(deps)
	case RefreshAhead:
		return NewRefreshAhead(deps)
	default:
		panic("strategy: unknown kind " + string(kind))
	}
}

// base bundles the collaborators and the read paths the strategies
// share.
type base struct {
	store   *store.Store
	backend types.Backend
	emitter types.Emitter
	clock   types.Clock
	ttl     time.Duration
}

func newBase(deps Deps) base {
	return base{
		store:   deps.Store,
		backend: deps.Backend,
		emitter: deps.Emitter,
		clock:   deps.Clock,
		ttl:     deps.DefaultTTL,
	}
}

// lookup reads the store and emits the hit or miss event.
func (b *base) lookup(key string) (types.CacheEntry, bool) {
	now := b.clock.Now()
	ent, ok := b.store.Get(key, now)
	if ok {
		b.emitter.Emit(types.Event{Kind: types.EventHit, Key: key, Time: now})
	} else {
		b.emitter.Emit(types.Event{Kind: types.EventMiss, Key: key, Time: now})
	}
	return ent, ok
}

/*
getAside is the cache-aside read path, shared by every strategy whose
miss is filled by the caller's loader: on a miss the loader fetches from
the source of truth, the result is cached with the default TTL, and
loader failures propagate untouched by cache state.
*/
func (b *base) getAside(ctx context.Context, key string, loader types.LoaderFunc) (any, error) {
	if ent, ok := b.lookup(key); ok {
		return ent.Value, nil
	}
	if loader == nil {
		return nil, types.ErrNotFound
	}
	value, err := loader(ctx, key)
	if err != nil {
		return nil, &types.LoadError{Key: key, Err: err}
	}
	b.store.Put(key, value, b.ttl, b.clock.Now(), false)
	return value, nil
}
