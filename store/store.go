package store

import (
	"sync"
	"time"

	"github.com/krisalay/caching/eviction"
	"github.com/krisalay/caching/expiration"
	"github.com/krisalay/caching/types"
)

/*
Store is the entry store: the only component that mutates entry state.

The entry map and the eviction policy's bookkeeping are one shared-
mutation unit. Every operation that touches both runs under one mutex, so
a key is tracked by the policy exactly when it is present in the map,
always.

Entries never leave the lock: public methods return value copies of
CacheEntry, not pointers into the map.

A dirty entry displaced by eviction or expiry is not discarded: its copy
moves to the pending stash, which DirtySnapshot drains alongside the live
dirty entries. The write still reaches the backend even though the entry
is gone from the cache.

OnEvict and OnExpire fire after the lock is released, so they may call
back into the store.
*/
type Store struct {
	mu      sync.Mutex
	entries map[string]*types.CacheEntry
	pending map[string]types.CacheEntry // unflushed writes of displaced entries
	version uint64                      // store-wide, every write gets a fresh one

	capacity int // 0 => unbounded
	policy   eviction.Policy
	exp      expiration.Strategy

	onEvict  func(key string)
	onExpire func(key string)
}

// Options configures a Store.
type Options struct {
	Capacity   int
	Policy     eviction.Policy
	Expiration expiration.Strategy
	OnEvict    func(key string)
	OnExpire   func(key string)
}

func New(opts Options) *Store {
	s := &Store{
		entries:  make(map[string]*types.CacheEntry),
		pending:  make(map[string]types.CacheEntry),
		capacity: opts.Capacity,
		policy:   opts.Policy,
		exp:      opts.Expiration,
		onEvict:  opts.OnEvict,
		onExpire: opts.OnExpire,
	}
	if s.policy == nil {
		s.policy = eviction.New(eviction.LRU)
	}
	if s.exp == nil {
		s.exp = expiration.ExpireAfterWrite{}
	}
	if s.onEvict == nil {
		s.onEvict = func(string) {}
	}
	if s.onExpire == nil {
		s.onExpire = func(string) {}
	}
	return s
}

/*
Get returns a copy of the live entry for key and records the access:
LastAccessedAt and AccessCount advance, sliding expirations push their
window forward, and the eviction policy sees the read.

An expired entry is removed here, fires the expire hook, and reads as
absent. Removal happens under the same lock that every other path takes,
so the hook fires at most once per expired entry no matter how lazy reads
and the background sweep interleave.
*/
func (s *Store) Get(key string, now time.Time) (types.CacheEntry, bool) {
	s.mu.Lock()

	ent, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return types.CacheEntry{}, false
	}
	if s.exp.IsExpired(ent, now) {
		s.stashDirtyLocked(ent)
		s.removeLocked(key)
		s.mu.Unlock()
		s.onExpire(key)
		return types.CacheEntry{}, false
	}

	ent.LastAccessedAt = now
	ent.AccessCount++
	s.exp.OnAccess(ent, now)
	s.policy.OnGet(key)
	copied := *ent
	s.mu.Unlock()
	return copied, true
}

// Peek reports the entry without recording an access and without
// removing it if expired. An expired entry reads as absent.
func (s *Store) Peek(key string, now time.Time) (types.CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || s.exp.IsExpired(ent, now) {
		return types.CacheEntry{}, false
	}
	return *ent, true
}

/*
Put inserts or overwrites the entry for key and returns a copy of its new
state.

Inserting into a full store asks the eviction policy for a victim first
and removes it, so the store never exceeds its capacity once the insert
completes. Overwrites keep CreatedAt (FIFO ages by first insertion) and
take a fresh Version; the expiry is recomputed from now and ttl.
*/
func (s *Store) Put(key string, value any, ttl time.Duration, now time.Time, dirty bool) types.CacheEntry {
	s.mu.Lock()

	if dirty {
		// The new write supersedes an undelivered one for the same key.
		delete(s.pending, key)
	}

	if ent, ok := s.entries[key]; ok {
		ent.Value = value
		ent.LastAccessedAt = now
		ent.ExpireAt = expiration.Compute(now, ttl)
		ent.Version = s.nextVersionLocked()
		ent.Dirty = dirty
		s.policy.OnPut(key)
		copied := *ent
		s.mu.Unlock()
		return copied
	}

	var evicted string
	if s.capacity > 0 && len(s.entries) >= s.capacity {
		if victim := s.policy.Evict(); victim != "" {
			s.stashDirtyLocked(s.entries[victim])
			delete(s.entries, victim)
			evicted = victim
		}
	}

	ent := &types.CacheEntry{
		Key:            key,
		Value:          value,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpireAt:       expiration.Compute(now, ttl),
		Version:        s.nextVersionLocked(),
		Dirty:          dirty,
	}
	s.entries[key] = ent
	s.policy.OnPut(key)
	copied := *ent
	s.mu.Unlock()

	if evicted != "" {
		s.onEvict(evicted)
	}
	return copied
}

// Remove deletes the entry for key. It returns a copy of the removed
// entry and false if the key was absent. Removing an absent key is safe.
// An explicit delete also discards any still-pending write for the key.
func (s *Store) Remove(key string) (types.CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, key)
	ent, ok := s.entries[key]
	if !ok {
		return types.CacheEntry{}, false
	}
	copied := *ent
	s.removeLocked(key)
	return copied, true
}

// CompareAndRemove deletes the entry only if its version still matches.
// Synchronous strategies use it to roll back their own write without
// destroying a newer one that landed in between.
func (s *Store) CompareAndRemove(key string, version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || ent.Version != version {
		return false
	}
	s.removeLocked(key)
	return true
}

// Touch updates LastAccessedAt and AccessCount without changing the
// value or notifying the eviction policy of a read.
func (s *Store) Touch(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return false
	}
	ent.LastAccessedAt = now
	ent.AccessCount++
	return true
}

// Keys returns a snapshot of all present keys in no particular order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries, including ones that are expired but
// not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// DirtySnapshot copies every dirty entry, pending writes of displaced
// entries included. The write-back flusher takes this snapshot, releases
// the lock, and talks to the backend outside it.
func (s *Store) DirtySnapshot() []types.CacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dirty []types.CacheEntry
	for _, ent := range s.pending {
		dirty = append(dirty, ent)
	}
	for _, ent := range s.entries {
		if ent.Dirty {
			dirty = append(dirty, *ent)
		}
	}
	return dirty
}

// ClearDirty marks the entry clean, but only if its version is unchanged
// since the snapshot: a write that landed mid-flush keeps the entry dirty
// so the next pass delivers it. A delivered pending write leaves the
// stash the same way.
func (s *Store) ClearDirty(key string, version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[key]; ok && p.Version == version {
		delete(s.pending, key)
		return true
	}
	ent, ok := s.entries[key]
	if !ok || ent.Version != version || !ent.Dirty {
		return false
	}
	ent.Dirty = false
	return true
}

// RefreshCommit replaces the value and expiry of a still-present entry
// with freshly loaded state. The result of a refresh that raced an
// explicit delete is dropped.
func (s *Store) RefreshCommit(key string, value any, ttl time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return false
	}
	ent.Value = value
	ent.ExpireAt = expiration.Compute(now, ttl)
	ent.Version = s.nextVersionLocked()
	return true
}

// Expire resets the expiry of an existing entry to now+ttl. It reports
// whether the key was present.
func (s *Store) Expire(key string, ttl time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return false
	}
	ent.ExpireAt = expiration.Compute(now, ttl)
	return true
}

// TTL returns the remaining time-to-live for key:
// -1 when the key exists without a TTL, -2 when the key is absent or
// already expired (Redis semantics).
func (s *Store) TTL(key string, now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || s.exp.IsExpired(ent, now) {
		return -2
	}
	if ent.ExpireAt.IsZero() {
		return -1
	}
	return ent.ExpireAt.Sub(now)
}

// Sweep removes every expired entry, firing the expire hook once per
// removal, and returns how many were removed. The periodic sweep bounds
// the growth of entries that expired but were never read again.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()

	var expired []string
	for key, ent := range s.entries {
		if s.exp.IsExpired(ent, now) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		s.stashDirtyLocked(s.entries[key])
		s.removeLocked(key)
	}
	s.mu.Unlock()

	for _, key := range expired {
		s.onExpire(key)
	}
	return len(expired)
}

// Clear removes every entry, pending writes included, without firing
// hooks.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		s.removeLocked(key)
	}
	s.pending = make(map[string]types.CacheEntry)
}

// removeLocked keeps map and eviction state in step. Callers hold mu.
func (s *Store) removeLocked(key string) {
	delete(s.entries, key)
	s.policy.Remove(key)
}

// nextVersionLocked hands out store-wide write versions. A version never
// repeats, so a snapshot taken from one incarnation of a key can never
// match a later incarnation. Callers hold mu.
func (s *Store) nextVersionLocked() uint64 {
	s.version++
	return s.version
}

// stashDirtyLocked preserves the unflushed write of an entry about to be
// displaced by eviction or expiry. Callers hold mu.
func (s *Store) stashDirtyLocked(ent *types.CacheEntry) {
	if ent == nil || !ent.Dirty {
		return
	}
	s.pending[ent.Key] = *ent
}
