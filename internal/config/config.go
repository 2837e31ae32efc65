package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the marketfeed configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Cache      CacheConfig      `yaml:"cache"`
	Engine     EngineConfig     `yaml:"engine"`
	Polymarket PolymarketConfig `yaml:"polymarket"`
	Feed       FeedConfig       `yaml:"feed"`
	History    HistoryConfig    `yaml:"history"`
	Vectorizer VectorizerConfig `yaml:"vectorizer"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds inbound API authentication settings. Empty disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig selects the key-value store behind the token, history and embedding caches.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis, valkey (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	Capacity         uint64   `yaml:"capacity"` // memory driver only: max keys before LRU eviction
}

// EngineConfig holds the search/feature/scoring/ranking engine endpoints.
// Per-service URLs default to BaseURL.
type EngineConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	SearchURL   string `yaml:"search_url"`
	FeaturesURL string `yaml:"features_url"`
	ScoringURL  string `yaml:"scoring_url"`
	RankingURL  string `yaml:"ranking_url"`
	StoriesURL  string `yaml:"stories_url"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// PolymarketConfig holds the catalog and time-series API settings.
type PolymarketConfig struct {
	GammaURL   string  `yaml:"gamma_url"`
	CLOBURL    string  `yaml:"clob_url"`
	TimeoutSec int     `yaml:"timeout_sec"`
	RateLimit  float64 `yaml:"rate_limit"` // requests per second, shared by both APIs
	Burst      int     `yaml:"burst"`
	Interval   string  `yaml:"interval"`
	Fidelity   int     `yaml:"fidelity"`
}

// FeedConfig holds the feed pipeline knobs.
type FeedConfig struct {
	ItemsIndex       string          `yaml:"items_index"`
	UsersIndex       string          `yaml:"users_index"`
	PersonalizedSize int             `yaml:"personalized_size"`
	DefaultSize      int             `yaml:"default_size"`
	SortField        string          `yaml:"sort_field"`
	SortOrder        string          `yaml:"sort_order"`
	MinQueryLength   int             `yaml:"min_query_length"`
	QueryPadding     string          `yaml:"query_padding"`
	SelectFields     []string        `yaml:"select_fields"`
	Filters          FilterConfig    `yaml:"filters"`
	Boosts           []BoostConfig   `yaml:"boosts"`
	FeaturesVersion  string          `yaml:"features_version"`
	ModelPath        string          `yaml:"model_path"`
	ScoreKey         string          `yaml:"score_key"`
	Mix              []MixConfig     `yaml:"mix"`
	Diversity        DiversityConfig `yaml:"diversity"`
	Window           WindowConfig    `yaml:"window"`
}

// FilterConfig holds the shared retrieval filters.
type FilterConfig struct {
	MinLiquidity      float64 `yaml:"min_liquidity"`
	MinVolume         float64 `yaml:"min_volume"`
	MinVolume24h      float64 `yaml:"min_volume_24h"`
	EndDateWindowDays int     `yaml:"end_date_window_days"`
}

// BoostConfig is one group boost on the user's lookup document.
type BoostConfig struct {
	Field    string  `yaml:"field"`
	Group    string  `yaml:"group"`
	MinBoost float64 `yaml:"min_boost"`
	MaxBoost float64 `yaml:"max_boost"`
	N        int     `yaml:"n"`
}

// MixConfig is one weighted term of the ranking mix.
type MixConfig struct {
	Field     string  `yaml:"field"`
	Direction string  `yaml:"direction"`
	Weight    float64 `yaml:"weight"`
}

// DiversityConfig holds the ranking diversity settings.
type DiversityConfig struct {
	Method  string  `yaml:"method"`
	Lambda  float64 `yaml:"lambda"`
	Horizon int     `yaml:"horizon"`
}

// WindowConfig caps how many items sharing Field may appear in every Every consecutive items.
type WindowConfig struct {
	Every int    `yaml:"every"`
	Field string `yaml:"field"`
	Limit int    `yaml:"limit"`
}

// HistoryConfig holds price history cache settings.
type HistoryConfig struct {
	TTLSec       int `yaml:"ttl_sec"`
	RetentionSec int `yaml:"retention_sec"`
}

// VectorizerConfig holds the optional query embedding settings. Empty model disables it.
type VectorizerConfig struct {
	Provider         string `yaml:"provider"`
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheTTLSec      int    `yaml:"cache_ttl_sec"`
}

// Enabled reports whether free-text queries should be embedded.
func (v VectorizerConfig) Enabled() bool { return v.Model != "" }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "marketfeed:"
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = 100_000
	}

	c.applyEngineDefaults()
	c.applyPolymarketDefaults()
	c.applyFeedDefaults()

	if c.History.TTLSec <= 0 {
		c.History.TTLSec = 300
	}
	if c.History.RetentionSec <= 0 {
		c.History.RetentionSec = 86400
	}

	if c.Vectorizer.Provider == "" {
		c.Vectorizer.Provider = "openai"
	}
	if c.Vectorizer.CacheTTLSec <= 0 {
		c.Vectorizer.CacheTTLSec = 7 * 86400
	}
}

func (c *Config) applyEngineDefaults() {
	e := &c.Engine
	if e.BaseURL == "" {
		e.BaseURL = "https://api.mbd.xyz/v3/studio"
	}
	for _, u := range []*string{&e.SearchURL, &e.FeaturesURL, &e.ScoringURL, &e.RankingURL, &e.StoriesURL} {
		if *u == "" {
			*u = e.BaseURL
		}
	}
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 10
	}
}

func (c *Config) applyPolymarketDefaults() {
	p := &c.Polymarket
	if p.GammaURL == "" {
		p.GammaURL = "https://gamma-api.polymarket.com"
	}
	if p.CLOBURL == "" {
		p.CLOBURL = "https://clob.polymarket.com"
	}
	if p.TimeoutSec <= 0 {
		p.TimeoutSec = 10
	}
	if p.RateLimit <= 0 {
		p.RateLimit = 10
	}
	if p.Burst <= 0 {
		p.Burst = 20
	}
	if p.Interval == "" {
		p.Interval = "1w"
	}
	if p.Fidelity <= 0 {
		p.Fidelity = 60
	}
}

// DefaultSelectFields is the attribute allow-list of the unpersonalized feed.
var DefaultSelectFields = []string{
	"question", "description", "active", "liquidity", "liquidity_num",
	"volume_24hr", "spread", "best_ask", "last_trade_price", "end_date",
	"one_hour_price_change", "one_day_price_change", "one_week_price_change",
	"one_month_price_change", "ai_labels_med", "image", "slug", "outcomes",
	"outcome_prices", "tags",
}

func (c *Config) applyFeedDefaults() {
	f := &c.Feed
	if f.ItemsIndex == "" {
		f.ItemsIndex = "polymarket-items"
	}
	if f.UsersIndex == "" {
		f.UsersIndex = "polymarket-wallets"
	}
	if f.PersonalizedSize <= 0 {
		f.PersonalizedSize = 150
	}
	if f.DefaultSize <= 0 {
		f.DefaultSize = 100
	}
	if f.SortField == "" {
		f.SortField = "volume_24hr"
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	}
	if f.MinQueryLength <= 0 {
		f.MinQueryLength = 5
	}
	if f.QueryPadding == "" {
		f.QueryPadding = " markets predictions"
	}
	if len(f.SelectFields) == 0 {
		f.SelectFields = append([]string(nil), DefaultSelectFields...)
	}
	if f.Filters.MinLiquidity <= 0 {
		f.Filters.MinLiquidity = 5000
	}
	if f.Filters.MinVolume <= 0 {
		f.Filters.MinVolume = 500
	}
	if f.Filters.MinVolume24h <= 0 {
		f.Filters.MinVolume24h = 100
	}
	if f.Filters.EndDateWindowDays <= 0 {
		f.Filters.EndDateWindowDays = 365
	}
	if len(f.Boosts) == 0 {
		f.Boosts = []BoostConfig{
			{Field: "ai_labels_med", Group: "label", MinBoost: 1, MaxBoost: 5, N: 5},
			{Field: "tags", Group: "tag", MinBoost: 1, MaxBoost: 3, N: 5},
		}
	}
	if f.FeaturesVersion == "" {
		f.FeaturesVersion = "v1"
	}
	if f.ModelPath == "" {
		f.ModelPath = "/scoring/ranking_model/polymarket-rerank-v1"
	}
	if f.ScoreKey == "" {
		f.ScoreKey = "ranking_model_polymarket_rerank_v1"
	}
	if len(f.Mix) == 0 {
		f.Mix = []MixConfig{
			{Field: "topic_score", Direction: "desc", Weight: 40},
			{Field: "user_affinity_score", Direction: "desc", Weight: 40},
			{Field: "rerank_polymkt1", Direction: "desc", Weight: 20},
		}
	}
	if f.Diversity.Method == "" {
		f.Diversity.Method = "semantic"
	}
	if f.Diversity.Lambda <= 0 {
		f.Diversity.Lambda = 0.5
	}
	if f.Diversity.Horizon <= 0 {
		f.Diversity.Horizon = 20
	}
	if f.Window.Every <= 0 {
		f.Window.Every = 5
	}
	if f.Window.Field == "" {
		f.Window.Field = "cluster_1"
	}
	if f.Window.Limit <= 0 {
		f.Window.Limit = 2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Cache.Driver {
	case "memory":
	case "redis", "valkey":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be \"memory\", \"redis\" or \"valkey\", got %q", c.Cache.Driver)
	}

	if c.Engine.APIKey == "" {
		return fmt.Errorf("engine.api_key is required")
	}

	if c.Feed.SortOrder != "asc" && c.Feed.SortOrder != "desc" {
		return fmt.Errorf("feed.sort_order must be \"asc\" or \"desc\", got %q", c.Feed.SortOrder)
	}
	for i, m := range c.Feed.Mix {
		if m.Field == "" {
			return fmt.Errorf("feed.mix[%d].field is required", i)
		}
		if m.Direction != "asc" && m.Direction != "desc" {
			return fmt.Errorf("feed.mix[%d].direction must be \"asc\" or \"desc\", got %q", i, m.Direction)
		}
		if m.Weight < 0 {
			return fmt.Errorf("feed.mix[%d].weight must not be negative", i)
		}
	}
	for i, b := range c.Feed.Boosts {
		if b.Field == "" || b.Group == "" || b.N <= 0 || b.MinBoost > b.MaxBoost {
			return fmt.Errorf("feed.boosts[%d] is invalid: %+v", i, b)
		}
	}
	if c.Feed.Diversity.Lambda > 1 {
		return fmt.Errorf("feed.diversity.lambda must be within (0, 1], got %v", c.Feed.Diversity.Lambda)
	}

	if c.Vectorizer.Enabled() && c.Vectorizer.APIKey == "" {
		return fmt.Errorf("vectorizer.api_key is required when vectorizer.model is set")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
