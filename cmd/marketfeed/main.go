package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketfeed/internal/config"
	"github.com/kailas-cloud/marketfeed/internal/db"
	"github.com/kailas-cloud/marketfeed/internal/db/memory"
	dbRedis "github.com/kailas-cloud/marketfeed/internal/db/redis"
	"github.com/kailas-cloud/marketfeed/internal/domain"
	"github.com/kailas-cloud/marketfeed/internal/domain/ranking"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/marketfeed/internal/logger"
	"github.com/kailas-cloud/marketfeed/internal/metrics"
	"github.com/kailas-cloud/marketfeed/internal/repository/embcache"
	"github.com/kailas-cloud/marketfeed/internal/repository/historycache"
	"github.com/kailas-cloud/marketfeed/internal/repository/tokencache"
	chiTransport "github.com/kailas-cloud/marketfeed/internal/transport/chi"
	"github.com/kailas-cloud/marketfeed/internal/transport/engine"
	openaiEmb "github.com/kailas-cloud/marketfeed/internal/transport/openai"
	"github.com/kailas-cloud/marketfeed/internal/transport/polymarket"
	chartuc "github.com/kailas-cloud/marketfeed/internal/usecase/chart"
	feeduc "github.com/kailas-cloud/marketfeed/internal/usecase/feed"
	healthuc "github.com/kailas-cloud/marketfeed/internal/usecase/health"
	historyuc "github.com/kailas-cloud/marketfeed/internal/usecase/history"
	storiesuc "github.com/kailas-cloud/marketfeed/internal/usecase/stories"
	tokenuc "github.com/kailas-cloud/marketfeed/internal/usecase/token"
	"github.com/kailas-cloud/marketfeed/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting marketfeed API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
		zap.Bool("vectorizer", cfg.Vectorizer.Enabled()),
	)

	store, err := newStore(cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache not ready", zap.Error(err))
	}
	logger.Info("Connected to cache")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	engineClient := engine.New(&engine.Config{
		APIKey:      cfg.Engine.APIKey,
		SearchURL:   cfg.Engine.SearchURL,
		FeaturesURL: cfg.Engine.FeaturesURL,
		ScoringURL:  cfg.Engine.ScoringURL,
		RankingURL:  cfg.Engine.RankingURL,
		StoriesURL:  cfg.Engine.StoriesURL,
		Timeout:     time.Duration(cfg.Engine.TimeoutSec) * time.Second,
		Logger:      logger,
	})
	polyClient := polymarket.New(&polymarket.Config{
		GammaURL:  cfg.Polymarket.GammaURL,
		CLOBURL:   cfg.Polymarket.CLOBURL,
		Timeout:   time.Duration(cfg.Polymarket.TimeoutSec) * time.Second,
		RateLimit: cfg.Polymarket.RateLimit,
		Burst:     cfg.Polymarket.Burst,
		Interval:  cfg.Polymarket.Interval,
		Fidelity:  cfg.Polymarket.Fidelity,
		Logger:    logger,
	})

	// Pass nil interfaces (not typed nil pointers) when the vectorizer is off.
	var embedder domain.Embedder
	var embedChecker healthuc.Checker
	var feedEmbedder feeduc.Embedder
	if cfg.Vectorizer.Enabled() {
		embedder = buildEmbedder(cfg.Vectorizer, store, logger)
		embedChecker = newEmbeddingHealthChecker(embedder)
		feedEmbedder = embedder
		logger.Info("Query vectorizer enabled",
			zap.String("provider", cfg.Vectorizer.Provider),
			zap.String("model", cfg.Vectorizer.Model),
			zap.Int("dimensions", cfg.Vectorizer.Dimensions),
		)
	}

	tokenSvc := tokenuc.New(polyClient, tokencache.New(store), logger)
	historySvc := historyuc.New(
		tokenSvc, polyClient,
		historycache.New(store, time.Duration(cfg.History.RetentionSec)*time.Second),
		time.Duration(cfg.History.TTLSec)*time.Second, logger,
	)
	chartSvc := chartuc.New(historySvc)
	storiesSvc := storiesuc.New(engineClient)
	feedSvc := feeduc.New(engineClient, feedEmbedder, feedOptions(cfg.Feed), logger)
	healthSvc := healthuc.New(store, map[string]healthuc.Checker{"vectorizer": embedChecker})

	server := chiTransport.NewServer(feedSvc, chartSvc, storiesSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// newStore picks the KV backend. Valkey speaks the same protocol, so it shares the redis store.
func newStore(c config.CacheConfig) (db.Store, error) {
	switch c.Driver {
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    c.Addrs,
			Password: c.Password,
			DB:       c.DB,
			Prefix:   c.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("%s store: %w", c.Driver, err)
		}
		return s, nil
	case "memory":
		return memory.NewStore(memory.Config{Capacity: c.Capacity}), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", c.Driver)
	}
}

// feedOptions maps the feed config onto pipeline options.
func feedOptions(c config.FeedConfig) feeduc.Options {
	boosts := make([]feeduc.Boost, 0, len(c.Boosts))
	for _, b := range c.Boosts {
		boosts = append(boosts, feeduc.Boost{
			Field: b.Field, Group: b.Group, MinBoost: b.MinBoost, MaxBoost: b.MaxBoost, N: b.N,
		})
	}

	mix := make([]ranking.MixTerm, 0, len(c.Mix))
	for _, m := range c.Mix {
		mix = append(mix, ranking.MixTerm{Field: m.Field, Direction: m.Direction, Percentage: m.Weight})
	}

	spec := ranking.Spec{Method: "mix", Mix: mix}
	if c.Diversity.Method != "" {
		spec.Diversity = &ranking.Diversity{
			Method: c.Diversity.Method, Lambda: c.Diversity.Lambda, Horizon: c.Diversity.Horizon,
		}
	}
	if c.Window.Every > 0 && c.Window.Field != "" {
		spec.Window = &ranking.Window{
			Every:  c.Window.Every,
			Limits: []ranking.FieldLimit{{Field: c.Window.Field, Max: c.Window.Limit}},
		}
	}

	return feeduc.Options{
		ItemsIndex:       c.ItemsIndex,
		UsersIndex:       c.UsersIndex,
		PersonalizedSize: c.PersonalizedSize,
		DefaultSize:      c.DefaultSize,
		SortField:        c.SortField,
		SortOrder:        request.Direction(c.SortOrder),
		MinQueryLength:   c.MinQueryLength,
		QueryPadding:     c.QueryPadding,
		SelectFields:     c.SelectFields,
		Filters: feeduc.Filters{
			MinLiquidity:  c.Filters.MinLiquidity,
			MinVolume:     c.Filters.MinVolume,
			MinVolume24h:  c.Filters.MinVolume24h,
			EndDateWindow: time.Duration(c.Filters.EndDateWindowDays) * 24 * time.Hour,
		},
		Boosts:          boosts,
		FeaturesVersion: c.FeaturesVersion,
		ModelPath:       c.ModelPath,
		ScoreKey:        c.ScoreKey,
		Ranking:         spec,
	}
}

// embeddingHealthChecker adapts domain.Embedder to health.Checker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
func buildEmbedder(c config.VectorizerConfig, store db.KVStore, logger *zap.Logger) domain.Embedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Model:      c.Model,
		Dimensions: c.Dimensions,
		Provider:   c.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = embcache.New(
		base, store, c.Model, time.Duration(c.CacheTTLSec)*time.Second, metrics.CacheTotal, logger,
	)

	// Instruction prefix is outermost so the cache key includes it.
	if c.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, c.QueryInstruction)
	}
	return embedder
}
