// This file implements LFU eviction.

package eviction

import "container/list"

/*
lfu groups keys into frequency buckets. Each bucket is a list kept in
recency order (front = most recently touched), and minFreq tracks the
lowest populated bucket so eviction never scans.

Evicting from the back of the minFreq bucket gives the documented
tie-break for free: among keys with equal access counts, the least
recently accessed one goes first.
*/
type lfu struct {
	freqs   map[uint64]*list.List    // frequency -> keys in recency order
	items   map[string]*list.Element // key -> element in its bucket
	keyFreq map[string]uint64        // key -> current frequency
	minFreq uint64
}

func newLFU() *lfu {
	return &lfu{
		freqs:   make(map[uint64]*list.List),
		items:   make(map[string]*list.Element),
		keyFreq: make(map[string]uint64),
	}
}

func (l *lfu) OnGet(key string) {
	freq, ok := l.keyFreq[key]
	if !ok {
		return
	}
	l.unlink(key, freq)
	l.link(key, freq+1)
}

// OnPut starts a new key at frequency 1. An overwrite refreshes recency
// within the key's bucket but is not a read: only OnGet raises the
// frequency, so a key written over and over and never read still evicts
// before one that was actually read.
func (l *lfu) OnPut(key string) {
	if freq, ok := l.keyFreq[key]; ok {
		l.freqs[freq].MoveToFront(l.items[key])
		return
	}
	l.link(key, 1)
	l.minFreq = 1
}

func (l *lfu) Evict() string {
	if len(l.keyFreq) == 0 {
		return ""
	}
	// Remove can leave minFreq pointing at a gap between buckets.
	bucket := l.freqs[l.minFreq]
	if bucket == nil {
		l.minFreq = 0
		for f := range l.freqs {
			if l.minFreq == 0 || f < l.minFreq {
				l.minFreq = f
			}
		}
		bucket = l.freqs[l.minFreq]
	}
	elem := bucket.Back()
	key := elem.Value.(string)

	bucket.Remove(elem)
	if bucket.Len() == 0 {
		delete(l.freqs, l.minFreq)
	}
	delete(l.items, key)
	delete(l.keyFreq, key)
	return key
}

func (l *lfu) Remove(key string) {
	freq, ok := l.keyFreq[key]
	if !ok {
		return
	}
	l.unlink(key, freq)
	delete(l.items, key)
	delete(l.keyFreq, key)
}

func (l *lfu) Len() int { return len(l.keyFreq) }

// unlink removes key from its current bucket, advancing minFreq past a
// bucket that just emptied.
func (l *lfu) unlink(key string, freq uint64) {
	bucket := l.freqs[freq]
	bucket.Remove(l.items[key])
	if bucket.Len() == 0 {
		delete(l.freqs, freq)
		if l.minFreq == freq {
			l.minFreq++
		}
	}
}

// link places key at the front of the bucket for freq, creating the
// bucket on first use.
func (l *lfu) link(key string, freq uint64) {
	if l.freqs[freq] == nil {
		l.freqs[freq] = list.New()
	}
	l.items[key] = l.freqs[freq].PushFront(key)
	l.keyFreq[key] = freq
}
