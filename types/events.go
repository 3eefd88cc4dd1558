package types

import (
	"sync/atomic"
	"time"
)

// EventKind identifies what happened inside the engine.
type EventKind string

const (
	EventHit          EventKind = "hit"
	EventMiss         EventKind = "miss"
	EventEviction     EventKind = "eviction"
	EventExpire       EventKind = "expire"
	EventFlushError   EventKind = "flushError"
	EventRefreshError EventKind = "refreshError"
)

// Event is a structured notification of one cache occurrence. Err is set
// only for the error kinds.
type Event struct {
	Kind EventKind
	Key  string
	Time time.Time
	Err  error
}

/*
Emitter receives engine events.

Delivery is best-effort and synchronous on the operation that caused the
event, so implementations must be fast and must never block. Anything
slow belongs behind the implementation's own queue.
*/
type Emitter interface {
	Emit(Event)
}

// NoopEmitter ignores all events. It is the default observer so the rest
// of the engine never has to nil-check.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}

// EmitterFunc adapts a plain function to the Emitter interface.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }

// CounterEmitter is the bundled fast observer: lock-free counters per
// event kind.
type CounterEmitter struct {
	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
	errors      atomic.Int64
}

func (c *CounterEmitter) Emit(ev Event) {
	switch ev.Kind {
	case EventHit:
		c.hits.Add(1)
	case EventMiss:
		c.misses.Add(1)
	case EventEviction:
		c.evictions.Add(1)
	case EventExpire:
		c.expirations.Add(1)
	case EventFlushError, EventRefreshError:
		c.errors.Add(1)
	}
}

func (c *CounterEmitter) Hits() int64        { return c.hits.Load() }
func (c *CounterEmitter) Misses() int64      { return c.misses.Load() }
func (c *CounterEmitter) Evictions() int64   { return c.evictions.Load() }
func (c *CounterEmitter) Expirations() int64 { return c.expirations.Load() }
func (c *CounterEmitter) Errors() int64      { return c.errors.Load() }

// HitRate returns hits/(hits+misses), or 0 before any access.
func (c *CounterEmitter) HitRate() float64 {
	hits, misses := c.hits.Load(), c.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
