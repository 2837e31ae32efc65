package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:   HTTPConfig{Port: 8080},
		Engine: EngineConfig{APIKey: "test-key"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_CacheDriver(t *testing.T) {
	tests := []struct {
		driver  string
		addrs   []string
		wantErr string
	}{
		{"memory", nil, ""},
		{"redis", []string{"localhost:6379"}, ""},
		{"valkey", []string{"localhost:6379"}, ""},
		{"redis", nil, `cache.addrs is required for driver "redis"`},
		{"memcached", nil, `cache.driver must be "memory", "redis" or "valkey", got "memcached"`},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := validConfig()
			cfg.Cache.Driver = tt.driver
			cfg.Cache.Addrs = tt.addrs

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("unexpected error message:\ngot:  %v\nwant: %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MissingEngineKey(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.APIKey = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing engine api key")
	}
}

func TestValidate_InvalidMix(t *testing.T) {
	cfg := validConfig()
	cfg.Feed.Mix = []MixConfig{{Field: "topic_score", Direction: "up", Weight: 1}}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "feed.mix[0].direction") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_VectorizerNeedsKey(t *testing.T) {
	cfg := validConfig()
	cfg.Vectorizer.Model = "text-embedding-3-small"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for vectorizer without api key")
	}

	cfg.Vectorizer.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Cache.Driver != "memory" {
		t.Errorf("expected Driver=memory, got %q", cfg.Cache.Driver)
	}
	if cfg.Cache.Capacity != 100_000 {
		t.Errorf("expected Capacity=100000, got %d", cfg.Cache.Capacity)
	}
	if cfg.Cache.KeyPrefix != "marketfeed:" {
		t.Errorf("expected KeyPrefix='marketfeed:', got %q", cfg.Cache.KeyPrefix)
	}
	if cfg.Engine.SearchURL != cfg.Engine.BaseURL || cfg.Engine.StoriesURL != cfg.Engine.BaseURL {
		t.Errorf("service URLs should default to base URL: %+v", cfg.Engine)
	}
	if cfg.Polymarket.Interval != "1w" || cfg.Polymarket.Fidelity != 60 {
		t.Errorf("unexpected polymarket defaults: %+v", cfg.Polymarket)
	}
	if cfg.History.TTLSec != 300 {
		t.Errorf("expected TTLSec=300, got %d", cfg.History.TTLSec)
	}

	f := cfg.Feed
	if f.PersonalizedSize != 150 || f.DefaultSize != 100 {
		t.Errorf("unexpected sizes: %d/%d", f.PersonalizedSize, f.DefaultSize)
	}
	if len(f.SelectFields) != 20 {
		t.Errorf("expected 20 select fields, got %d", len(f.SelectFields))
	}
	if len(f.Boosts) != 2 || f.Boosts[0].Field != "ai_labels_med" || f.Boosts[1].MaxBoost != 3 {
		t.Errorf("unexpected boosts: %+v", f.Boosts)
	}
	if len(f.Mix) != 3 || f.Mix[2].Field != "rerank_polymkt1" || f.Mix[2].Weight != 20 {
		t.Errorf("unexpected mix: %+v", f.Mix)
	}
	if f.Window != (WindowConfig{Every: 5, Field: "cluster_1", Limit: 2}) {
		t.Errorf("unexpected window: %+v", f.Window)
	}
	if f.Diversity.Lambda != 0.5 || f.Diversity.Horizon != 20 {
		t.Errorf("unexpected diversity: %+v", f.Diversity)
	}
	if cfg.Vectorizer.Enabled() {
		t.Error("vectorizer should be disabled by default")
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Cache:   CacheConfig{Driver: "redis", KeyPrefix: "custom:"},
		Engine:  EngineConfig{BaseURL: "http://engine", SearchURL: "http://search"},
		History: HistoryConfig{TTLSec: 60},
		Feed:    FeedConfig{PersonalizedSize: 50, Window: WindowConfig{Every: 3, Field: "cluster_2", Limit: 1}},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Cache.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Cache.KeyPrefix)
	}
	if cfg.Engine.SearchURL != "http://search" || cfg.Engine.RankingURL != "http://engine" {
		t.Errorf("unexpected engine urls: %+v", cfg.Engine)
	}
	if cfg.History.TTLSec != 60 {
		t.Errorf("expected TTLSec=60, got %d", cfg.History.TTLSec)
	}
	if cfg.Feed.PersonalizedSize != 50 || cfg.Feed.Window.Field != "cluster_2" {
		t.Errorf("feed overrides lost: %+v", cfg.Feed)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MF_TEST_KEY", "secret")

	got := string(expandEnvVars([]byte("a: ${MF_TEST_KEY}\nb: ${MF_TEST_UNSET:-fallback}\nc: ${MF_TEST_UNSET}")))
	want := "a: secret\nb: fallback\nc: "
	if got != want {
		t.Errorf("expandEnvVars() = %q, want %q", got, want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o750); err != nil {
		t.Fatal(err)
	}
	yml := "http:\n  port: 9090\nengine:\n  api_key: ${MF_TEST_ENGINE_KEY:-k}\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 || cfg.Engine.APIKey != "k" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Feed.ItemsIndex != "polymarket-items" {
		t.Errorf("defaults not applied: %q", cfg.Feed.ItemsIndex)
	}
}
