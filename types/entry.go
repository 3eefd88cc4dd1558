package types

import "time"

/*
CacheEntry is the unit of storage for the whole engine.

The entry store owns every CacheEntry instance. All mutation happens under
the store's lock; code outside the store only ever sees value copies, never
shared pointers.
*/
type CacheEntry struct {
	Key            string
	Value          any
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpireAt       time.Time // zero => no TTL

	// AccessCount counts successful reads of this entry.
	AccessCount uint64

	// Version identifies one write: the store hands out a fresh one per
	// write and never repeats it. Background flushes use it to detect
	// that a newer write landed while they were talking to the backend.
	Version uint64

	// Dirty is true while a write-back value has not yet reached the
	// backing store.
	Dirty bool
}
