// This file implements LRU eviction.

package eviction

import "container/list"

/*
lru keeps keys in a doubly-linked list ordered by recency of use: front is
most recently used, back is the victim.

Because a new key is pushed to the front and an untouched key only drifts
toward the back, two keys that were never accessed evict in insertion
order, which is the documented tie-break.
*/
type lru struct {
	order *list.List
	items map[string]*list.Element
}

func newLRU() *lru {
	return &lru{
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (l *lru) OnGet(key string) {
	if elem, ok := l.items[key]; ok {
		l.order.MoveToFront(elem)
	}
}

// OnPut treats an overwrite as a use: the key moves to the front either
// way.
func (l *lru) OnPut(key string) {
	if elem, ok := l.items[key]; ok {
		l.order.MoveToFront(elem)
		return
	}
	l.items[key] = l.order.PushFront(key)
}

func (l *lru) Evict() string {
	elem := l.order.Back()
	if elem == nil {
		return ""
	}
	key := elem.Value.(string)
	l.order.Remove(elem)
	delete(l.items, key)
	return key
}

func (l *lru) Remove(key string) {
	if elem, ok := l.items[key]; ok {
		l.order.Remove(elem)
		delete(l.items, key)
	}
}

func (l *lru) Len() int { return len(l.items) }
