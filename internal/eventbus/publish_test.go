package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}

func TestPublishNoSubscribers(t *testing.T) {
	b := newRunningBus(t, Config{})
	id, err := b.Publish(context.Background(), "nobody/home", "test", nil)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("event id %q is not a uuid: %v", id, err)
	}
}

func TestPublishEmptyType(t *testing.T) {
	b := newRunningBus(t, Config{})
	if _, err := b.Publish(context.Background(), "", "test", nil); err == nil {
		t.Fatal("expected error for empty event type")
	}
}

func TestSyncDeliveryCompletesBeforeReturn(t *testing.T) {
	b := newRunningBus(t, Config{})
	var calls atomic.Int64
	if _, err := b.Subscribe("sync/test", func(Event) {
		time.Sleep(2 * time.Millisecond)
		calls.Add(1)
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := b.Publish(context.Background(), "sync/test", "test", nil, Sync()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatal("synchronous publish returned before the handler ran")
	}
}

func TestSyncDeliveryPreservesOrder(t *testing.T) {
	b := newRunningBus(t, Config{})
	var mu sync.Mutex
	var seen []int
	if _, err := b.Subscribe("ordered", func(ev Event) {
		mu.Lock()
		seen = append(seen, ev.Payload["seq"].(int))
		mu.Unlock()
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	const n = 20
	for i := 0; i < n; i++ {
		payload := map[string]any{"seq": i}
		if _, err := b.Publish(context.Background(), "ordered", "test", payload, Sync()); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != n {
		t.Fatalf("delivered %d of %d", len(seen), n)
	}
	for i, got := range seen {
		if got != i {
			t.Fatalf("event %d delivered out of order (got seq %d)", i, got)
		}
	}
}

func TestAsyncDeliveryExactlyOnce(t *testing.T) {
	b := newRunningBus(t, Config{Workers: 4})
	var mu sync.Mutex
	counts := make(map[string]int)
	if _, err := b.Subscribe("load/test", func(ev Event) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		counts[ev.ID]++
		mu.Unlock()
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	const n = 100
	ids := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		id, err := b.Publish(context.Background(), "load/test", "test", nil)
		if err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
		ids[id] = true
	}
	waitFor(t, 5*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(counts) == n
	})
	mu.Lock()
	defer mu.Unlock()
	for id := range ids {
		if counts[id] != 1 {
			t.Fatalf("event %s delivered %d times", id, counts[id])
		}
	}
}

func TestWildcardAndFilter(t *testing.T) {
	b := newRunningBus(t, Config{})
	var all, filtered atomic.Int64
	if _, err := b.Subscribe(Wildcard, func(Event) { all.Add(1) }); err != nil {
		t.Fatalf("subscribe wildcard: %v", err)
	}
	_, err := b.Subscribe("orders/created", func(Event) { filtered.Add(1) },
		WithFilter(map[string]any{"region": "eu"}))
	if err != nil {
		t.Fatalf("subscribe filtered: %v", err)
	}

	pub := func(typ string, payload map[string]any) {
		t.Helper()
		if _, err := b.Publish(context.Background(), typ, "test", payload, Sync()); err != nil {
			t.Fatalf("publish %s: %v", typ, err)
		}
	}
	pub("orders/created", map[string]any{"region": "eu"})   // both
	pub("orders/created", map[string]any{"region": "us"})   // wildcard only
	pub("orders/created", map[string]any{"customer": "x"})  // key missing: wildcard only
	pub("orders/created", nil)                              // nil payload: wildcard only
	pub("orders/deleted", map[string]any{"region": "eu"})   // type mismatch: wildcard only

	if got := all.Load(); got != 5 {
		t.Fatalf("wildcard saw %d events, want 5", got)
	}
	if got := filtered.Load(); got != 1 {
		t.Fatalf("filtered subscriber saw %d events, want 1", got)
	}
}

func TestWildcardFilterApplies(t *testing.T) {
	b := newRunningBus(t, Config{})
	var hits atomic.Int64
	_, err := b.Subscribe(Wildcard, func(Event) { hits.Add(1) },
		WithFilter(map[string]any{"severity": "high"}))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := b.Publish(context.Background(), "alerts", "test", map[string]any{"severity": "low"}, Sync()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := b.Publish(context.Background(), "alerts", "test", map[string]any{"severity": "high"}, Sync()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("filtered wildcard saw %d events, want 1", got)
	}
}

func TestCallbackPanicContained(t *testing.T) {
	b := newRunningBus(t, Config{})
	var healthy atomic.Int64
	if _, err := b.Subscribe("boom", func(Event) { panic("handler exploded") }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := b.Subscribe("boom", func(Event) { healthy.Add(1) }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := b.Publish(context.Background(), "boom", "test", nil, Sync()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if healthy.Load() != 1 {
		t.Fatal("sibling handler did not run after panic")
	}
	if snap := b.Snapshot(); snap.CallbackFailures != 1 {
		t.Fatalf("callback failures = %d, want 1", snap.CallbackFailures)
	}
}

func TestPublishBackpressure(t *testing.T) {
	b := newRunningBus(t, Config{Workers: 1, QueueSize: 1, PublishTimeout: 50 * time.Millisecond})
	entered := make(chan struct{})
	release := make(chan struct{})
	if _, err := b.Subscribe("slow", func(Event) {
		close(entered)
		<-release
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer close(release)

	if _, err := b.Publish(context.Background(), "slow", "test", nil); err != nil {
		t.Fatalf("publish 1: %v", err)
	}
	<-entered // worker is now blocked inside the handler
	if _, err := b.Publish(context.Background(), "slow", "test", nil); err != nil {
		t.Fatalf("publish 2: %v", err)
	}
	start := time.Now()
	_, err := b.Publish(context.Background(), "slow", "test", nil)
	if !IsQueueFull(err) {
		t.Fatalf("expected queue-full error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("queue-full returned after %v, expected to wait near the timeout", elapsed)
	}
	if snap := b.Snapshot(); snap.Rejected != 1 {
		t.Fatalf("rejected = %d, want 1", snap.Rejected)
	}
}

func TestPublishCancelledContext(t *testing.T) {
	b := newRunningBus(t, Config{})
	if _, err := b.Subscribe("ctx", func(Event) {}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Publish(ctx, "ctx", "test", nil); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCorrelationIDPropagates(t *testing.T) {
	b := newRunningBus(t, Config{})
	var got string
	if _, err := b.Subscribe("corr", func(ev Event) { got = ev.CorrelationID }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := b.Publish(context.Background(), "corr", "test", nil, Sync(), WithCorrelationID("req-42")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got != "req-42" {
		t.Fatalf("correlation id = %q", got)
	}
}
