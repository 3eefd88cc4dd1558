package expiration

import (
	"time"

	"github.com/krisalay/caching/types"
)

/*
ExpireAfterAccess implements sliding TTL: every successful read pushes the
expiry forward by TTL, so an entry stays alive as long as it keeps being
used and dies TTL after its last read.

Entries written without a TTL keep no expiry; sliding only extends an
expiry that exists.
*/
type ExpireAfterAccess struct {
	TTL time.Duration
}

func (e *ExpireAfterAccess) IsExpired(ent *types.CacheEntry, now time.Time) bool {
	return !ent.ExpireAt.IsZero() && !now.Before(ent.ExpireAt)
}

func (e *ExpireAfterAccess) OnAccess(ent *types.CacheEntry, now time.Time) {
	if ent.ExpireAt.IsZero() {
		return
	}
	ent.ExpireAt = now.Add(e.TTL)
}
