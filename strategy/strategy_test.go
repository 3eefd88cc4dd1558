package strategy_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/krisalay/caching/eviction"
	"github.com/krisalay/caching/store"
	"github.com/krisalay/caching/strategy"
	"github.com/krisalay/caching/types"
)

var errBackendDown = errors.New("backend down")

//
// ================= TEST DOUBLES =================
//

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeBackend is an in-memory backend with failure switches and an
// optional gate that blocks Load until released.
type fakeBackend struct {
	mu        sync.Mutex
	data      map[string]any
	loads     map[string]int
	stores    map[string]int
	failLoad  bool
	failStore bool
	loadGate  chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		data:   make(map[string]any),
		loads:  make(map[string]int),
		stores: make(map[string]int),
	}
}

func (b *fakeBackend) Load(_ context.Context, key string) (any, error) {
	b.mu.Lock()
	b.loads[key]++
	gate := b.loadGate
	fail := b.failLoad
	v, ok := b.data[key]
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail {
		return nil, errBackendDown
	}
	if !ok {
		return nil, types.ErrNotFound
	}
	return v, nil
}

func (b *fakeBackend) Store(_ context.Context, key string, value any, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failStore {
		return errBackendDown
	}
	b.stores[key]++
	b.data[key] = value
	return nil
}

func (b *fakeBackend) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

func (b *fakeBackend) value(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok
}

func (b *fakeBackend) loadCount(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads[key]
}

func (b *fakeBackend) storeCount(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stores[key]
}

func (b *fakeBackend) setFailStore(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failStore = fail
}

// recordingEmitter collects events for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []types.Event
}

func (e *recordingEmitter) Emit(ev types.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *recordingEmitter) count(kind types.EventKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func newDeps(backend types.Backend, clk types.Clock, emitter types.Emitter) strategy.Deps {
	if clk == nil {
		clk = newMockClock()
	}
	if emitter == nil {
		emitter = types.NoopEmitter{}
	}
	return strategy.Deps{
		Store:   store.New(store.Options{Policy: eviction.New(eviction.LRU)}),
		Backend: backend,
		Emitter: emitter,
		Clock:   clk,
	}
}

//
// ================= CACHE-ASIDE =================
//

func TestCacheAsideLoaderInvokedOnce(t *testing.T) {
	ctx := context.Background()
	deps := newDeps(newFakeBackend(), nil, nil)
	s := strategy.NewCacheAside(deps)

	calls := 0
	loader := func(context.Context, string) (any, error) {
		calls++
		return "v", nil
	}

	v, err := s.Get(ctx, "k", loader)
	require.NoError(t, err)
	require.Equal(t, "v", v)
	require.Equal(t, 1, calls)

	v, err = s.Get(ctx, "k", loader)
	require.NoError(t, err)
	require.Equal(t, "v", v)
	require.Equal(t, 1, calls, "second read must be served from cache")
}

func TestCacheAsideMissWithoutLoader(t *testing.T) {
	s := strategy.NewCacheAside(newDeps(newFakeBackend(), nil, nil))

	_, err := s.Get(context.Background(), "k", nil)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestCacheAsideLoaderFailure(t *testing.T) {
	deps := newDeps(newFakeBackend(), nil, nil)
	s := strategy.NewCacheAside(deps)

	boom := errors.New("source unavailable")
	_, err := s.Get(context.Background(), "k", func(context.Context, string) (any, error) {
		return nil, boom
	})

	var loadErr *types.LoadError
	require.ErrorAs(t, err, &loadErr)
	require.ErrorIs(t, err, boom)
	require.Zero(t, deps.Store.Len(), "a failed load must not cache anything")
}

func TestCacheAsideSetInvalidates(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	deps := newDeps(backend, nil, nil)
	s := strategy.NewCacheAside(deps)

	_, err := s.Get(ctx, "k", func(context.Context, string) (any, error) { return "old", nil })
	require.NoError(t, err)
	require.Equal(t, 1, deps.Store.Len())

	require.NoError(t, s.Set(ctx, "k", "new", 0))

	v, ok := backend.value("k")
	require.True(t, ok)
	require.Equal(t, "new", v)
	require.Zero(t, deps.Store.Len(), "write must invalidate, not update")
}

func TestCacheAsideSetBackendFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	deps := newDeps(backend, nil, nil)
	s := strategy.NewCacheAside(deps)

	_, err := s.Get(ctx, "k", func(context.Context, string) (any, error) { return "old", nil })
	require.NoError(t, err)

	backend.setFailStore(true)
	err = s.Set(ctx, "k", "new", 0)

	var writeErr *types.BackendWriteError
	require.ErrorAs(t, err, &writeErr)
	require.Equal(t, 1, deps.Store.Len(), "failed write must leave cache state alone")
}

//
// ================= WRITE-THROUGH =================
//

func TestWriteThroughSetReachesBoth(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	deps := newDeps(backend, nil, nil)
	s := strategy.NewWriteThrough(deps)

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))

	v, err := s.Get(ctx, "k", nil)
	require.NoError(t, err)
	require.Equal(t, "v", v)

	bv, ok := backend.value("k")
	require.True(t, ok)
	require.Equal(t, "v", bv)
}

func TestWriteThroughRollsBackOnBackendFailure(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.setFailStore(true)
	deps := newDeps(backend, nil, nil)
	s := strategy.NewWriteThrough(deps)

	err := s.Set(ctx, "k", "x", 0)
	var writeErr *types.BackendWriteError
	require.ErrorAs(t, err, &writeErr)

	_, err = s.Get(ctx, "k", nil)
	require.ErrorIs(t, err, types.ErrNotFound, "rolled-back write must not be readable")
	_, ok := backend.value("k")
	require.False(t, ok)
}

func TestWriteThroughDelete(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	deps := newDeps(backend, nil, nil)
	s := strategy.NewWriteThrough(deps)

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	require.NoError(t, s.Delete(ctx, "k"))

	_, ok := backend.value("k")
	require.False(t, ok)
	require.Zero(t, deps.Store.Len())
}

//
// ================= READ-THROUGH =================
//

func TestReadThroughLoadsFromBackendOnce(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data["k"] = "v"
	s := strategy.NewReadThrough(newDeps(backend, nil, nil))

	v, err := s.Get(ctx, "k", nil)
	require.NoError(t, err)
	require.Equal(t, "v", v)

	v, err = s.Get(ctx, "k", nil)
	require.NoError(t, err)
	require.Equal(t, "v", v)
	require.Equal(t, 1, backend.loadCount("k"))
}

func TestReadThroughIgnoresCallerLoader(t *testing.T) {
	backend := newFakeBackend()
	backend.data["k"] = "backend"
	s := strategy.NewReadThrough(newDeps(backend, nil, nil))

	v, err := s.Get(context.Background(), "k", func(context.Context, string) (any, error) {
		t.Fatal("caller loader must not be invoked")
		return nil, nil
	})
	require.NoError(t, err)
	require.Equal(t, "backend", v)
}

func TestReadThroughMissingKey(t *testing.T) {
	s := strategy.NewReadThrough(newDeps(newFakeBackend(), nil, nil))

	_, err := s.Get(context.Background(), "k", nil)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestReadThroughBackendFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failLoad = true
	deps := newDeps(backend, nil, nil)
	s := strategy.NewReadThrough(deps)

	_, err := s.Get(context.Background(), "k", nil)
	var readErr *types.BackendReadError
	require.ErrorAs(t, err, &readErr)
	require.ErrorIs(t, err, errBackendDown)
	require.Zero(t, deps.Store.Len(), "nothing is cached on a failed load")
}

func TestReadThroughDeduplicatesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	backend.data["k"] = "v"
	backend.loadGate = make(chan struct{})
	s := strategy.NewReadThrough(newDeps(backend, nil, nil))

	const readers = 5
	var wg sync.WaitGroup
	results := make([]any, readers)
	errs := make([]error, readers)
	for i := 0; i < readers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.Get(ctx, "k", nil)
		}()
	}

	// Wait until the single shared load is in flight, then release it.
	require.Eventually(t, func() bool { return backend.loadCount("k") == 1 },
		time.Second, time.Millisecond)
	close(backend.loadGate)
	wg.Wait()

	require.Equal(t, 1, backend.loadCount("k"))
	for i := 0; i < readers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "v", results[i])
	}
}

//
// ================= WRITE-BACK =================
//

// newWriteBack uses an interval long enough that tests drive flushes
// explicitly.
func newWriteBack(t *testing.T, backend types.Backend, emitter types.Emitter) (*strategy.WriteBackStrategy, strategy.Deps) {
	t.Helper()
	deps := newDeps(backend, nil, emitter)
	deps.FlushInterval = time.Hour
	s := strategy.NewWriteBack(deps)
	t.Cleanup(s.Close)
	return s, deps
}

func TestWriteBackReadYourOwnWrite(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s, _ := newWriteBack(t, backend, nil)

	require.NoError(t, s.Set(ctx, "k", "v", 0))

	v, err := s.Get(ctx, "k", nil)
	require.NoError(t, err)
	require.Equal(t, "v", v, "a dirty entry serves its own write")
	_, ok := backend.value("k")
	require.False(t, ok, "backend must not have been written yet")
}

func TestWriteBackFlushDeliversLatestWrite(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s, _ := newWriteBack(t, backend, nil)

	require.NoError(t, s.Set(ctx, "k", 1, 0))
	require.NoError(t, s.Set(ctx, "k", 2, 0))
	require.NoError(t, s.Flush(ctx))

	v, ok := backend.value("k")
	require.True(t, ok)
	require.Equal(t, 2, v, "flush commits the newest value, no lost update")
	require.Equal(t, 1, backend.storeCount("k"), "consecutive writes coalesce into one flush")

	// Nothing left to flush.
	require.NoError(t, s.Flush(ctx))
	require.Equal(t, 1, backend.storeCount("k"))
}

func TestWriteBackFlushFailureRetriesNextPass(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	emitter := &recordingEmitter{}
	s, _ := newWriteBack(t, backend, emitter)

	require.NoError(t, s.Set(ctx, "k", "v", 0))

	backend.setFailStore(true)
	err := s.Flush(ctx)
	var flushErr *types.FlushError
	require.ErrorAs(t, err, &flushErr)
	require.Equal(t, 1, emitter.count(types.EventFlushError))
	_, ok := backend.value("k")
	require.False(t, ok)

	// The entry stayed dirty: the next pass delivers it.
	backend.setFailStore(false)
	require.NoError(t, s.Flush(ctx))
	v, ok := backend.value("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestWriteBackPeriodicFlush(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	deps := newDeps(backend, nil, nil)
	deps.FlushInterval = 5 * time.Millisecond
	s := strategy.NewWriteBack(deps)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "k", "v", 0))

	require.Eventually(t, func() bool {
		v, ok := backend.value("k")
		return ok && v == "v"
	}, time.Second, time.Millisecond)
}

func TestWriteBackCloseFlushesPendingWrites(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	deps := newDeps(backend, nil, nil)
	deps.FlushInterval = time.Hour
	s := strategy.NewWriteBack(deps)

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	s.Close()

	v, ok := backend.value("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestWriteBackEvictionDoesNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	deps := newDeps(backend, nil, nil)
	deps.Store = store.New(store.Options{
		Capacity: 1,
		Policy:   eviction.New(eviction.LRU),
	})
	deps.FlushInterval = time.Hour
	s := strategy.NewWriteBack(deps)

	// k1 is evicted before any flush ran; its write must still arrive.
	require.NoError(t, s.Set(ctx, "k1", "v1", 0))
	require.NoError(t, s.Set(ctx, "k2", "v2", 0))
	s.Close()

	v1, ok := backend.value("k1")
	require.True(t, ok)
	require.Equal(t, "v1", v1)
	v2, ok := backend.value("k2")
	require.True(t, ok)
	require.Equal(t, "v2", v2)
}

func TestWriteBackExpiryDoesNotLoseWrites(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	clk := newMockClock()
	deps := newDeps(backend, clk, nil)
	deps.FlushInterval = time.Hour
	s := strategy.NewWriteBack(deps)

	require.NoError(t, s.Set(ctx, "k", "v", time.Second))
	clk.Advance(2 * time.Second)

	// The entry expired unread and the sweep dropped it before the
	// flusher ever saw it.
	deps.Store.Sweep(clk.Now())
	require.NoError(t, s.Flush(ctx))
	s.Close()

	v, ok := backend.value("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

//
// ================= REFRESH-AHEAD =================
//

func newRefreshAhead(t *testing.T, backend types.Backend, clk types.Clock, emitter types.Emitter) (*strategy.RefreshAheadStrategy, strategy.Deps) {
	t.Helper()
	deps := newDeps(backend, clk, emitter)
	deps.DefaultTTL = 10 * time.Second
	deps.RefreshWindow = 3 * time.Second
	s := strategy.NewRefreshAhead(deps)
	t.Cleanup(s.Close)
	return s, deps
}

func TestRefreshAheadReloadsWithinWindow(t *testing.T) {
	ctx := context.Background()
	clk := newMockClock()
	backend := newFakeBackend()
	s, deps := newRefreshAhead(t, backend, clk, nil)

	require.NoError(t, s.Set(ctx, "k", "stale", 10*time.Second))
	backend.mu.Lock()
	backend.data["k"] = "fresh"
	backend.mu.Unlock()

	// Inside [expiry-window, expiry): the read serves the cached value
	// and kicks off the reload.
	clk.Advance(8 * time.Second)
	v, err := s.Get(ctx, "k", nil)
	require.NoError(t, err)
	require.Equal(t, "stale", v, "the read must not block on the reload")

	require.Eventually(t, func() bool {
		ent, ok := deps.Store.Peek("k", clk.Now())
		return ok && ent.Value == "fresh"
	}, time.Second, time.Millisecond)
	require.Equal(t, 1, backend.loadCount("k"))

	// The committed entry carries a new expiry.
	require.Greater(t, deps.Store.TTL("k", clk.Now()), 5*time.Second)
}

func TestRefreshAheadSingleReloadPerKey(t *testing.T) {
	ctx := context.Background()
	clk := newMockClock()
	backend := newFakeBackend()
	backend.loadGate = make(chan struct{})
	s, _ := newRefreshAhead(t, backend, clk, nil)

	require.NoError(t, s.Set(ctx, "k", "stale", 10*time.Second))
	backend.mu.Lock()
	backend.data["k"] = "fresh"
	backend.mu.Unlock()

	clk.Advance(8 * time.Second)
	_, err := s.Get(ctx, "k", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return backend.loadCount("k") == 1 },
		time.Second, time.Millisecond)

	// Further reads in the window ride on the pending reload.
	for n := 0; n < 3; n++ {
		v, err := s.Get(ctx, "k", nil)
		require.NoError(t, err)
		require.Equal(t, "stale", v)
	}
	require.Equal(t, 1, backend.loadCount("k"))

	close(backend.loadGate)
}

func TestRefreshAheadFailureKeepsServingStale(t *testing.T) {
	ctx := context.Background()
	clk := newMockClock()
	backend := newFakeBackend()
	emitter := &recordingEmitter{}
	s, deps := newRefreshAhead(t, backend, clk, emitter)

	require.NoError(t, s.Set(ctx, "k", "stale", 10*time.Second))
	backend.mu.Lock()
	backend.failLoad = true
	backend.mu.Unlock()

	clk.Advance(8 * time.Second)
	v, err := s.Get(ctx, "k", nil)
	require.NoError(t, err)
	require.Equal(t, "stale", v)

	require.Eventually(t, func() bool {
		return emitter.count(types.EventRefreshError) == 1
	}, time.Second, time.Millisecond)

	// The stale-but-valid value stays; a later read may retry.
	ent, ok := deps.Store.Peek("k", clk.Now())
	require.True(t, ok)
	require.Equal(t, "stale", ent.Value)
}

func TestRefreshAheadOutsideWindowDoesNotReload(t *testing.T) {
	ctx := context.Background()
	clk := newMockClock()
	backend := newFakeBackend()
	s, _ := newRefreshAhead(t, backend, clk, nil)

	require.NoError(t, s.Set(ctx, "k", "v", 10*time.Second))

	clk.Advance(2 * time.Second)
	_, err := s.Get(ctx, "k", nil)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	require.Zero(t, backend.loadCount("k"))
}

func TestRefreshAheadMissLoadsFromBackend(t *testing.T) {
	backend := newFakeBackend()
	backend.data["k"] = "v"
	s, _ := newRefreshAhead(t, backend, nil, nil)

	v, err := s.Get(context.Background(), "k", nil)
	require.NoError(t, err)
	require.Equal(t, "v", v)
	require.Equal(t, 1, backend.loadCount("k"))
}
