// Package caching is a backend-agnostic caching engine: pluggable
// consistency strategies (cache-aside, read-through, write-through,
// write-back, refresh-ahead) over a capacity-bounded entry store with
// LRU/LFU/FIFO eviction and TTL expiration.
package caching

import (
	"context"
	"sync"
	"time"

	"github.com/krisalay/caching/api"
	"github.com/krisalay/caching/eviction"
	"github.com/krisalay/caching/expiration"
	"github.com/krisalay/caching/store"
	"github.com/krisalay/caching/strategy"
	"github.com/krisalay/caching/types"
)

/*
Cache is the engine front door. It wires the entry store, the eviction
policy, the expiration rule, and the configured strategy into one
instance and dispatches every operation through the strategy.

Instances are independent: each owns its store, its eviction state, and
its background workers, so any number of caches coexist in one process.
*/
type Cache struct {
	cfg     Config
	store   *store.Store
	strat   strategy.Strategy
	emitter types.Emitter
	clock   types.Clock

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ api.Cache = (*Cache)(nil)

// Option overrides a collaborator at construction time.
type Option func(*Cache)

// WithEmitter registers the observer that receives engine events. The
// emitter is called synchronously on cache operations and must not
// block.
func WithEmitter(e types.Emitter) Option {
	return func(c *Cache) {
		if e != nil {
			c.emitter = e
		}
	}
}

// WithClock injects a custom time source. Tests use it to drive TTLs and
// refresh windows deterministically.
func WithClock(clk types.Clock) Option {
	return func(c *Cache) {
		if clk != nil {
			c.clock = clk
		}
	}
}

/*
New validates the configuration and builds a cache on top of the given
backend. Invalid settings and invalid combinations fail here with a
*types.ConfigError; a constructed cache never re-checks them.
*/
func New(cfg Config, backend types.Backend, opts ...Option) (*Cache, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, &types.ConfigError{Reason: "backend is required"}
	}

	c := &Cache{
		cfg:     cfg,
		emitter: types.NoopEmitter{},
		clock:   types.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}

	var exp expiration.Strategy = expiration.ExpireAfterWrite{}
	if cfg.SlidingTTL {
		exp = &expiration.ExpireAfterAccess{TTL: cfg.DefaultTTL}
	}

	c.store = store.New(store.Options{
		Capacity:   cfg.Capacity,
		Policy:     eviction.New(cfg.EvictionPolicy),
		Expiration: exp,
		OnEvict: func(key string) {
			c.emitter.Emit(types.Event{Kind: types.EventEviction, Key: key, Time: c.clock.Now()})
		},
		OnExpire: func(key string) {
			c.emitter.Emit(types.Event{Kind: types.EventExpire, Key: key, Time: c.clock.Now()})
		},
	})

	c.strat = strategy.New(cfg.Strategy, strategy.Deps{
		Store:         c.store,
		Backend:       backend,
		Emitter:       c.emitter,
		Clock:         c.clock,
		DefaultTTL:    cfg.DefaultTTL,
		RefreshWindow: cfg.RefreshAheadWindow,
		FlushInterval: cfg.WriteBackFlushInterval,
	})

	if cfg.SweepInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.wg.Add(1)
		go c.sweepLoop(ctx)
	}

	return c, nil
}

func (c *Cache) Get(ctx context.Context, key string) (any, error) {
	return c.strat.Get(ctx, key, nil)
}

func (c *Cache) GetWithLoader(ctx context.Context, key string, loader types.LoaderFunc) (any, error) {
	return c.strat.Get(ctx, key, loader)
}

func (c *Cache) Set(ctx context.Context, key string, value any) error {
	return c.strat.Set(ctx, key, value, c.cfg.DefaultTTL)
}

func (c *Cache) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.strat.Set(ctx, key, value, ttl)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.strat.Delete(ctx, key)
}

func (c *Cache) Has(key string) bool {
	_, ok := c.store.Peek(key, c.clock.Now())
	return ok
}

func (c *Cache) Len() int {
	return c.store.Len()
}

func (c *Cache) Expire(key string, ttl time.Duration) bool {
	return c.store.Expire(key, ttl, c.clock.Now())
}

func (c *Cache) TTL(key string) time.Duration {
	return c.store.TTL(key, c.clock.Now())
}

func (c *Cache) Flush(ctx context.Context) error {
	return c.strat.Flush(ctx)
}

func (c *Cache) Clear() {
	c.store.Clear()
}

// Close stops the sweep loop and the strategy's background workers.
// Write-back runs a final flush, so a graceful shutdown loses no writes.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
			c.wg.Wait()
		}
		c.strat.Close()
	})
}

func (c *Cache) sweepLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.store.Sweep(c.clock.Now())
		case <-ctx.Done():
			return
		}
	}
}
