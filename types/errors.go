package types

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key is absent from both the cache and,
// where the strategy consults it, the backing store.
var ErrNotFound = errors.New("caching: key not found")

// ConfigError reports an invalid configuration. It is fatal at
// construction time and never recovered from.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "caching: invalid configuration: " + e.Reason
}

// LoadError wraps a failure of a caller-supplied loader on the miss path.
// Cache state is unaffected when it is returned.
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("caching: load %q: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// BackendReadError wraps a backend Load failure.
type BackendReadError struct {
	Key string
	Err error
}

func (e *BackendReadError) Error() string {
	return fmt.Sprintf("caching: backend read %q: %v", e.Key, e.Err)
}

func (e *BackendReadError) Unwrap() error { return e.Err }

// BackendWriteError wraps a backend Store or Remove failure. Synchronous
// strategies roll back local state before returning it.
type BackendWriteError struct {
	Key string
	Err error
}

func (e *BackendWriteError) Error() string {
	return fmt.Sprintf("caching: backend write %q: %v", e.Key, e.Err)
}

func (e *BackendWriteError) Unwrap() error { return e.Err }

// FlushError wraps a backend write failure during a write-back flush
// pass. It is never returned to a caller; it travels inside a flushError
// event and the entry stays dirty for the next pass.
type FlushError struct {
	Key string
	Err error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("caching: flush %q: %v", e.Key, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }

// RefreshError wraps a backend load failure during a refresh-ahead
// reload. Like FlushError it surfaces only through the event emitter; the
// stale-but-valid value keeps being served.
type RefreshError struct {
	Key string
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("caching: refresh %q: %v", e.Key, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
