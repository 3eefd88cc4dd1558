package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	caching "github.com/krisalay/caching"
	"github.com/krisalay/caching/eviction"
	"github.com/krisalay/caching/strategy"
	"github.com/krisalay/caching/types"
)

// ================= BACKING STORE =================

type InMemoryBackend struct {
	mu   sync.RWMutex
	data map[string]any
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{data: make(map[string]any)}
}

func (b *InMemoryBackend) Load(ctx context.Context, key string) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	if !ok {
		return nil, types.ErrNotFound
	}
	fmt.Println("BACKEND → load:", key)
	return v, nil
}

func (b *InMemoryBackend) Store(ctx context.Context, key string, value any, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Println("BACKEND → store:", key)
	b.data[key] = value
	return nil
}

func (b *InMemoryBackend) Remove(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

func main() {
	ctx := context.Background()

	backend := NewInMemoryBackend()
	backend.data["user:1"] = "alice"
	backend.data["user:2"] = "bob"

	counters := &types.CounterEmitter{}

	c, err := caching.New(caching.Config{
		Capacity:       2,
		EvictionPolicy: eviction.LRU,
		Strategy:       strategy.ReadThrough,
		DefaultTTL:     30 * time.Second,
	}, backend, caching.WithEmitter(counters))
	if err != nil {
		panic(err)
	}
	defer c.Close()

	// First read misses and loads from the backend, second one hits.
	v, _ := c.Get(ctx, "user:1")
	fmt.Println("GET user:1 =", v)
	v, _ = c.Get(ctx, "user:1")
	fmt.Println("GET user:1 =", v)

	// Fill past capacity: user:2 and user:3 push the least recently
	// used key out.
	_ = c.Set(ctx, "user:2", "bob")
	_ = c.Set(ctx, "user:3", "carol")
	fmt.Println("cached entries:", c.Len())

	fmt.Println("\n==================== METRICS ====================")
	fmt.Printf("HITS      : %d\n", counters.Hits())
	fmt.Printf("MISSES    : %d\n", counters.Misses())
	fmt.Printf("EVICTIONS : %d\n", counters.Evictions())
	fmt.Printf("HIT RATE  : %.2f\n", counters.HitRate())
}
