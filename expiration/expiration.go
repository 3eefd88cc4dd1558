// This package decides when cache entries are too old to serve.

package expiration

import (
	"time"

	"github.com/krisalay/caching/types"
)

/*
Strategy is the pluggable expiration rule. The entry store consults it on
every read; the sweep loop consults it in the background.

Expired entries are removed lazily on the read that discovers them, so an
entry past its expiry is never returned to a caller.
*/
type Strategy interface {

	// IsExpired reports whether the entry must be treated as absent at
	// the given time.
	IsExpired(ent *types.CacheEntry, now time.Time) bool

	// OnAccess is called after a successful read. Sliding strategies use
	// it to push the expiry forward; fixed strategies ignore it.
	OnAccess(ent *types.CacheEntry, now time.Time)
}

// Compute turns a TTL into an absolute expiry. A non-positive ttl means
// the entry never expires and yields the zero time.
func Compute(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// DueForRefresh reports whether a refresh-ahead reload should fire: the
// entry has an expiry, a window is configured, and now has entered
// [expiry-window, expiry). Entries already expired are not refresh
// candidates; the read path treats them as misses instead.
func DueForRefresh(ent *types.CacheEntry, now time.Time, window time.Duration) bool {
	if window <= 0 || ent.ExpireAt.IsZero() {
		return false
	}
	return !now.Before(ent.ExpireAt.Add(-window)) && now.Before(ent.ExpireAt)
}

// ExpireAfterWrite is the default rule: the expiry set at write time is
// final, reads do not extend it.
type ExpireAfterWrite struct{}

func (ExpireAfterWrite) IsExpired(ent *types.CacheEntry, now time.Time) bool {
	// The expiry instant itself is expired: at exactly ExpireAt the
	// entry is a miss, matching DueForRefresh's half-open window.
	return !ent.ExpireAt.IsZero() && !now.Before(ent.ExpireAt)
}

func (ExpireAfterWrite) OnAccess(*types.CacheEntry, time.Time) {}
