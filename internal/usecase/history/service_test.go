package history

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/marketfeed/internal/domain/market"
	"github.com/kailas-cloud/marketfeed/internal/metrics"
)

// --- Mocks ---

type mockResolver struct {
	id string
	ok bool
}

func (m *mockResolver) Resolve(_ context.Context, _ string) (string, bool) { return m.id, m.ok }

type mockPrices struct {
	fn    func(tokenID string) ([]market.PricePoint, error)
	calls atomic.Int32
}

func (m *mockPrices) PriceHistory(_ context.Context, tokenID string) ([]market.PricePoint, error) {
	m.calls.Add(1)
	return m.fn(tokenID)
}

type mockCache struct {
	mu     sync.Mutex
	data   map[string]market.History
	getErr error
	puts   int
}

func newMockCache() *mockCache { return &mockCache{data: map[string]market.History{}} }

func (m *mockCache) Get(_ context.Context, slug string) (market.History, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return market.History{}, false, m.getErr
	}
	h, ok := m.data[slug]
	return h, ok, nil
}

func (m *mockCache) Put(_ context.Context, h market.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.data[h.Slug] = h
	return nil
}

// --- Helpers ---

var series = []market.PricePoint{{Time: 1_700_000_000, Value: 0.42}, {Time: 1_700_003_600, Value: 0.44}}

type clock struct{ t time.Time }

func (c *clock) now() time.Time       { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(prices *mockPrices, cache *mockCache, c *clock) *Service {
	return New(&mockResolver{id: "tok", ok: true}, prices, cache, 300*time.Second, nil).WithClock(c.now)
}

func staticPrices(pts []market.PricePoint) *mockPrices {
	return &mockPrices{fn: func(string) ([]market.PricePoint, error) { return pts, nil }}
}

// --- Tests ---

func TestHistory_HitWithinTTL(t *testing.T) {
	c := &clock{t: time.Unix(1_700_100_000, 0)}
	prices := staticPrices(series)
	cache := newMockCache()
	svc := newTestService(prices, cache, c)
	hits := metrics.CacheTotal.WithLabelValues("history", "hit")
	before := testutil.ToFloat64(hits)

	if got := svc.History(context.Background(), "s"); len(got) != 2 {
		t.Fatalf("first call = %v", got)
	}
	c.add(299 * time.Second)
	if got := svc.History(context.Background(), "s"); len(got) != 2 {
		t.Fatalf("second call = %v", got)
	}

	if n := prices.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
	if got := testutil.ToFloat64(hits); got != before+1 {
		t.Errorf("hit counter = %v, want %v", got, before+1)
	}
	if !cache.data["s"].InsertedAt.Equal(time.Unix(1_700_100_000, 0)) {
		t.Errorf("inserted at = %v", cache.data["s"].InsertedAt)
	}
}

func TestHistory_RefetchAfterTTL(t *testing.T) {
	c := &clock{t: time.Unix(1_700_100_000, 0)}
	prices := staticPrices(series)
	svc := newTestService(prices, newMockCache(), c)

	svc.History(context.Background(), "s")
	c.add(300 * time.Second)
	svc.History(context.Background(), "s")

	if n := prices.calls.Load(); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestHistory_EmptyEntryIsNeverAHit(t *testing.T) {
	c := &clock{t: time.Unix(1_700_100_000, 0)}
	cache := newMockCache()
	cache.data["s"] = market.History{Slug: "s", InsertedAt: c.t}
	prices := staticPrices(series)

	got := newTestService(prices, cache, c).History(context.Background(), "s")

	if len(got) != 2 || prices.calls.Load() != 1 {
		t.Errorf("got %v with %d upstream calls", got, prices.calls.Load())
	}
}

func TestHistory_NothingCachedOnFailure(t *testing.T) {
	tests := []struct {
		name     string
		resolver *mockResolver
		prices   *mockPrices
	}{
		{"token not found", &mockResolver{}, staticPrices(series)},
		{"upstream error", &mockResolver{id: "tok", ok: true},
			&mockPrices{fn: func(string) ([]market.PricePoint, error) { return nil, errors.New("502") }}},
		{"empty series", &mockResolver{id: "tok", ok: true}, staticPrices(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMockCache()
			svc := New(tt.resolver, tt.prices, cache, 0, nil)

			if got := svc.History(context.Background(), "s"); len(got) != 0 {
				t.Errorf("got %v, want empty", got)
			}
			if cache.puts != 0 {
				t.Errorf("cache puts = %d, want 0", cache.puts)
			}
		})
	}
}

func TestHistory_CacheReadErrorFetches(t *testing.T) {
	cache := newMockCache()
	cache.getErr = errors.New("redis down")
	prices := staticPrices(series)

	got := newTestService(prices, cache, &clock{t: time.Unix(0, 0)}).History(context.Background(), "s")

	if len(got) != 2 || prices.calls.Load() != 1 {
		t.Errorf("got %v with %d upstream calls", got, prices.calls.Load())
	}
}

func TestHistory_ConcurrentMissesCoalesced(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	prices := &mockPrices{fn: func(string) ([]market.PricePoint, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return series, nil
	}}
	svc := newTestService(prices, newMockCache(), &clock{t: time.Unix(1_700_100_000, 0)})

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]market.PricePoint, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = svc.History(context.Background(), "s")
		}()
	}

	<-started
	// Give the remaining callers time to join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := prices.calls.Load(); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}
	for i, r := range results {
		if len(r) != 2 {
			t.Errorf("caller %d got %v", i, r)
		}
	}
}
