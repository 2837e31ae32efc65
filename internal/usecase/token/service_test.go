package token

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/marketfeed/internal/domain"
)

// --- Mocks ---

type mockCatalog struct {
	body  []byte
	err   error
	calls int
}

func (m *mockCatalog) Market(_ context.Context, _ string) ([]byte, error) {
	m.calls++
	return m.body, m.err
}

type mockCache struct {
	data   map[string]string
	getErr error
	putErr error
	puts   int
}

func newMockCache() *mockCache { return &mockCache{data: map[string]string{}} }

func (m *mockCache) Get(_ context.Context, slug string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	id, ok := m.data[slug]
	return id, ok, nil
}

func (m *mockCache) Put(_ context.Context, slug, id string) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.data[slug] = id
	return nil
}

// --- Tests ---

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantID string
		wantOK bool
	}{
		{"text-encoded list", `[{"clobTokenIds":"[\"abc\",\"def\"]"}]`, "abc", true},
		{"literal list", `{"clobTokenIds":["lit"]}`, "lit", true},
		{"nested snake case", `[{"markets":[{"clob_token_ids":["xyz"]}]}]`, "xyz", true},
		{"neither", `[{"question":"no ids"}]`, "", false},
		{"undecodable text", `[{"clobTokenIds":"not a list"}]`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMockCache()
			svc := New(&mockCatalog{body: []byte(tt.body)}, cache, nil)

			id, ok := svc.Resolve(context.Background(), "slug")

			if id != tt.wantID || ok != tt.wantOK {
				t.Fatalf("Resolve = (%q, %v), want (%q, %v)", id, ok, tt.wantID, tt.wantOK)
			}
			if _, cached := cache.data["slug"]; cached != tt.wantOK {
				t.Errorf("cached = %v, want %v", cached, tt.wantOK)
			}
		})
	}
}

func TestResolve_CacheHitSkipsCatalog(t *testing.T) {
	cache := newMockCache()
	cache.data["slug"] = "cached"
	catalog := &mockCatalog{body: []byte(`{"clobTokenIds":["fresh"]}`)}

	id, ok := New(catalog, cache, nil).Resolve(context.Background(), "slug")

	if !ok || id != "cached" {
		t.Fatalf("Resolve = (%q, %v)", id, ok)
	}
	if catalog.calls != 0 {
		t.Errorf("catalog called %d times", catalog.calls)
	}
}

func TestResolve_SecondCallServedFromCache(t *testing.T) {
	cache := newMockCache()
	catalog := &mockCatalog{body: []byte(`{"clobTokenIds":["t1"]}`)}
	svc := New(catalog, cache, nil)

	for range 2 {
		if id, ok := svc.Resolve(context.Background(), "slug"); !ok || id != "t1" {
			t.Fatalf("Resolve = (%q, %v)", id, ok)
		}
	}
	if catalog.calls != 1 {
		t.Errorf("catalog called %d times, want 1", catalog.calls)
	}
}

func TestResolve_CatalogFailureNotCached(t *testing.T) {
	cache := newMockCache()
	catalog := &mockCatalog{err: &domain.UpstreamError{Service: "polymarket", Op: "market", Status: 500}}

	if _, ok := New(catalog, cache, nil).Resolve(context.Background(), "slug"); ok {
		t.Fatal("expected not found")
	}
	if cache.puts != 0 {
		t.Errorf("failure was cached")
	}
}

func TestResolve_CacheErrorsIgnored(t *testing.T) {
	cache := newMockCache()
	cache.getErr = errors.New("redis down")
	cache.putErr = errors.New("redis down")
	catalog := &mockCatalog{body: []byte(`{"clobTokenIds":["t1"]}`)}

	id, ok := New(catalog, cache, nil).Resolve(context.Background(), "slug")

	if !ok || id != "t1" {
		t.Fatalf("Resolve = (%q, %v)", id, ok)
	}
	if catalog.calls != 1 || cache.puts != 1 {
		t.Errorf("catalog calls = %d, puts = %d", catalog.calls, cache.puts)
	}
}
