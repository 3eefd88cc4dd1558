package eviction

/*
This package decides which key is removed when the cache runs out of
space.

Policy is the contract every eviction algorithm must satisfy. The store
calls these methods as access and insertion signals arrive; the policy
only tracks ordering metadata and never owns entry lifetime.

Implementations are NOT safe for concurrent use on their own. The entry
store updates its map and its policy as one unit under one lock, which is
what keeps the two structures mirror images of each other.
*/
type Policy interface {

	// OnGet records a successful read of key. LRU reorders, LFU counts,
	// FIFO ignores it.
	OnGet(key string)

	// OnPut records an insertion or overwrite of key.
	OnPut(key string)

	// Remove drops all bookkeeping for a key that left the store for any
	// reason other than this policy's own victim selection.
	Remove(key string)

	// Evict selects and forgets the victim key. It returns "" when the
	// policy tracks nothing, which callers must treat as "no victim
	// available".
	Evict() string

	// Len reports how many keys the policy currently tracks.
	Len() int
}

// PolicyType names a supported eviction policy in configuration.
type PolicyType string

const (
	// LRU evicts the key unused for the longest time. Timestamp ties
	// resolve by insertion order: inserted earlier means evicted earlier.
	LRU PolicyType = "LRU"

	// LFU evicts the key with the fewest recorded accesses. Ties resolve
	// to the least recently accessed of the tied keys.
	LFU PolicyType = "LFU"

	// FIFO evicts the oldest inserted key regardless of access.
	FIFO PolicyType = "FIFO"
)

// New builds the policy for the given type. Configuration validation
// happens before this point, so an unknown type is a programming error.
func New(t PolicyType) Policy {
	switch t {
	case LRU:
		return newLRU()
	case LFU:
		return newLFU()
	case FIFO:
		return newFIFO()
	default:
		panic("eviction: unknown policy " + string(t))
	}
}

// Compile-time interface assertions.
var (
	_ Policy = (*lru)(nil)
	_ Policy = (*lfu)(nil)
	_ Policy = (*fifo)(nil)
)
