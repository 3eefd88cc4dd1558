// This file implements FIFO eviction.

package eviction

import "container/list"

// fifo keeps keys in insertion order. Reads and overwrites never reorder;
// the oldest inserted key is always the victim.
type fifo struct {
	order *list.List
	items map[string]*list.Element
}

func newFIFO() *fifo {
	return &fifo{
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

// OnGet is a no-op: FIFO ignores access.
func (f *fifo) OnGet(string) {}

func (f *fifo) OnPut(key string) {
	if _, ok := f.items[key]; ok {
		return
	}
	f.items[key] = f.order.PushFront(key)
}

func (f *fifo) Evict() string {
	elem := f.order.Back()
	if elem == nil {
		return ""
	}
	key := elem.Value.(string)
	f.order.Remove(elem)
	delete(f.items, key)
	return key
}

func (f *fifo) Remove(key string) {
	if elem, ok := f.items[key]; ok {
		f.order.Remove(elem)
		delete(f.items, key)
	}
}

func (f *fifo) Len() int { return len(f.items) }
