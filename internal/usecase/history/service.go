// Package history serves cached market price series.
package history

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/marketfeed/internal/domain/market"
	"github.com/kailas-cloud/marketfeed/internal/logger"
	"github.com/kailas-cloud/marketfeed/internal/metrics"
)

// DefaultTTL is how long a fetched series is served before refetching.
const DefaultTTL = 300 * time.Second

// Service returns price history with a TTL cache in front of the CLOB.
// Concurrent misses for one slug share a single upstream fetch.
type Service struct {
	tokens TokenResolver
	prices PriceSource
	cache  Cache
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group
	logger *zap.Logger
}

// New creates a history service. ttl <= 0 selects DefaultTTL.
func New(tokens TokenResolver, prices PriceSource, cache Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{tokens: tokens, prices: prices, cache: cache, ttl: ttl, now: time.Now, logger: logger}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// History returns the price series for slug, or nil when none can be obtained.
// Empty or failed fetches are never cached.
func (s *Service) History(ctx context.Context, slug string) []market.PricePoint {
	log := logger.FromContext(ctx, s.logger).With(zap.String("slug", slug))

	h, ok, err := s.cache.Get(ctx, slug)
	if err != nil {
		log.Warn("History cache read failed", zap.Error(err))
	}
	if ok && h.Fresh(s.now(), s.ttl) {
		metrics.CacheTotal.WithLabelValues("history", "hit").Inc()
		return h.Points
	}
	metrics.CacheTotal.WithLabelValues("history", "miss").Inc()

	v, _, _ := s.group.Do(slug, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), log, slug), nil
	})
	points, _ := v.([]market.PricePoint)
	return points
}

func (s *Service) fetch(ctx context.Context, log *zap.Logger, slug string) []market.PricePoint {
	tokenID, ok := s.tokens.Resolve(ctx, slug)
	if !ok {
		return nil
	}

	points, err := s.prices.PriceHistory(ctx, tokenID)
	if err != nil {
		log.Debug("Price history fetch failed", zap.String("token_id", tokenID), zap.Error(err))
		return nil
	}
	if len(points) == 0 {
		return nil
	}

	h := market.History{Slug: slug, Points: points, InsertedAt: s.now()}
	if err := s.cache.Put(ctx, h); err != nil {
		log.Warn("History cache write failed", zap.Error(err))
	}
	return points
}
