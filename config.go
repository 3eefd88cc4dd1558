package caching

import (
	"fmt"
	"time"

	"github.com/krisalay/caching/eviction"
	"github.com/krisalay/caching/strategy"
	"github.com/krisalay/caching/types"
)

// DefaultFlushInterval is the write-back flush period used when the
// configuration leaves it unset.
const DefaultFlushInterval = time.Second

/*
Config describes one cache instance. It is read once in New and never
again; a running cache cannot be reconfigured.

The zero value of a field means "unset": policy defaults to LRU, strategy
to cache-aside, capacity 0 means unbounded, DefaultTTL 0 means entries do
not expire, SweepInterval 0 disables the background expiry sweep.
*/
type Config struct {
	// Capacity is the maximum number of entries. 0 means unbounded;
	// negative values are rejected.
	Capacity int

	// EvictionPolicy selects the victim when Capacity is exceeded.
	EvictionPolicy eviction.PolicyType

	// Strategy selects the consistency contract between cache and
	// backend.
	Strategy strategy.Kind

	// DefaultTTL applies to entries written without an explicit TTL and
	// to entries the engine loads itself.
	DefaultTTL time.Duration

	// SlidingTTL switches expiration to expire-after-access: every read
	// pushes an entry's expiry forward by DefaultTTL.
	SlidingTTL bool

	// RefreshAheadWindow is how long before expiry a read triggers a
	// background reload. Required for, and exclusive to, the
	// refresh-ahead strategy.
	RefreshAheadWindow time.Duration

	// WriteBackFlushInterval is the period between background flush
	// passes. Exclusive to the write-back strategy; defaults to
	// DefaultFlushInterval there.
	WriteBackFlushInterval time.Duration

	// SweepInterval enables a periodic sweep that removes entries which
	// expired without ever being read again.
	SweepInterval time.Duration
}

// withDefaults fills unset fields that have defaults.
func (c Config) withDefaults() Config {
	if c.EvictionPolicy == "" {
		c.EvictionPolicy = eviction.LRU
	}
	if c.Strategy == "" {
		c.Strategy = strategy.CacheAside
	}
	if c.Strategy == strategy.WriteBack && c.WriteBackFlushInterval == 0 {
		c.WriteBackFlushInterval = DefaultFlushInterval
	}
	return c
}

// validate rejects invalid settings and combinations. It runs after
// withDefaults, so empty selectors are already resolved.
func (c Config) validate() error {
	switch c.EvictionPolicy {
	case eviction.LRU, eviction.LFU, eviction.FIFO:
	default:
		return &types.ConfigError{Reason: fmt.Sprintf("unknown eviction policy %q", c.EvictionPolicy)}
	}

	switch c.Strategy {
	case strategy.CacheAside, strategy.ReadThrough, strategy.WriteThrough,
		strategy.WriteBack, strategy.RefreshAhead:
	default:
		return &types.ConfigError{Reason: fmt.Sprintf("unknown strategy %q", c.Strategy)}
	}

	if c.Capacity < 0 {
		return &types.ConfigError{Reason: "capacity must be at least 1, or 0 for unbounded"}
	}
	if c.DefaultTTL < 0 {
		return &types.ConfigError{Reason: "default TTL must not be negative"}
	}
	if c.SweepInterval < 0 {
		return &types.ConfigError{Reason: "sweep interval must not be negative"}
	}
	if c.SlidingTTL && c.DefaultTTL <= 0 {
		return &types.ConfigError{Reason: "sliding TTL requires a default TTL"}
	}

	if c.RefreshAheadWindow < 0 {
		return &types.ConfigError{Reason: "refresh-ahead window must not be negative"}
	}
	if c.RefreshAheadWindow > 0 && c.Strategy != strategy.RefreshAhead {
		return &types.ConfigError{Reason: "refresh-ahead window is only valid with the refresh-ahead strategy"}
	}
	if c.Strategy == strategy.RefreshAhead {
		if c.RefreshAheadWindow <= 0 {
			return &types.ConfigError{Reason: "refresh-ahead strategy requires a refresh-ahead window"}
		}
		if c.DefaultTTL <= 0 {
			return &types.ConfigError{Reason: "refresh-ahead strategy requires a default TTL"}
		}
	}

	if c.WriteBackFlushInterval < 0 {
		return &types.ConfigError{Reason: "write-back flush interval must not be negative"}
	}
	if c.WriteBackFlushInterval > 0 && c.Strategy != strategy.WriteBack {
		return &types.ConfigError{Reason: "write-back flush interval is only valid with the write-back strategy"}
	}

	return nil
}
