package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/kailas-cloud/marketfeed/internal/domain"
	"github.com/kailas-cloud/marketfeed/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

// captured is the last request seen by the fake engine.
type captured struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func fakeEngine(t *testing.T, status int, reply string) (*Client, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	c := New(&Config{
		APIKey:      "secret",
		SearchURL:   srv.URL + "/",
		FeaturesURL: srv.URL,
		ScoringURL:  srv.URL,
		RankingURL:  srv.URL,
		StoriesURL:  srv.URL,
	})
	return c, got
}

func TestPost_BearerAuth(t *testing.T) {
	c, got := fakeEngine(t, http.StatusOK, `{"ok":true}`)

	if _, err := c.post(context.Background(), "test", c.searchURL+"/ping", map[string]int{"a": 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.method != http.MethodPost {
		t.Errorf("method = %s", got.method)
	}
	if got.auth != "Bearer secret" {
		t.Errorf("auth = %q", got.auth)
	}
	if got.path != "/ping" {
		t.Errorf("path = %q", got.path)
	}
}

func TestPost_NonSuccessStatus(t *testing.T) {
	c, _ := fakeEngine(t, http.StatusBadGateway, `{"error":"boom"}`)

	_, err := c.post(context.Background(), "test", c.searchURL+"/x", struct{}{})

	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	var ue *domain.UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusBadGateway || ue.Op != "test" {
		t.Fatalf("unexpected upstream error: %#v", err)
	}
}

func TestPost_TransportError(t *testing.T) {
	c := New(&Config{SearchURL: "http://127.0.0.1:1"})

	_, err := c.post(context.Background(), "test", c.searchURL+"/x", struct{}{})

	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestPost_CanceledContext(t *testing.T) {
	c, _ := fakeEngine(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.post(ctx, "test", c.searchURL+"/x", struct{}{})

	if !errors.Is(err, domain.ErrUpstream) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled upstream error, got %v", err)
	}
}

func TestDecodeAt(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
		ok   bool
	}{
		{"bare array", `[1,2,3]`, 3, true},
		{"nested", `{"data":{"hits":[1]}}`, 1, true},
		{"null skipped", `{"hits":null,"data":{"hits":[1,2]}}`, 2, true},
		{"wrong type", `{"hits":"nope"}`, 0, false},
		{"not json", `nope`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out []int
			ok := decodeAt([]byte(tt.body), &out, nil, []string{"hits"}, []string{"data", "hits"})
			if ok != tt.ok || len(out) != tt.want {
				t.Errorf("decodeAt = %v (%d items), want %v (%d)", ok, len(out), tt.ok, tt.want)
			}
		})
	}
}
