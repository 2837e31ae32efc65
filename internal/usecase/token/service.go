// Package token resolves a market slug to the CLOB token id of its first outcome.
package token

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketfeed/internal/domain/market"
	"github.com/kailas-cloud/marketfeed/internal/logger"
	"github.com/kailas-cloud/marketfeed/internal/metrics"
)

// Service resolves and caches token ids. Only successes are cached.
type Service struct {
	catalog Catalog
	cache   Cache
	logger  *zap.Logger
}

// New creates a token resolver.
func New(catalog Catalog, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, cache: cache, logger: logger}
}

// Resolve returns the token id for slug. Catalog failures and records without a
// token id are reported as not found.
func (s *Service) Resolve(ctx context.Context, slug string) (string, bool) {
	log := logger.FromContext(ctx, s.logger).With(zap.String("slug", slug))

	id, ok, err := s.cache.Get(ctx, slug)
	if err != nil {
		log.Warn("Token cache read failed", zap.Error(err))
	}
	if ok {
		metrics.CacheTotal.WithLabelValues("token", "hit").Inc()
		return id, true
	}
	metrics.CacheTotal.WithLabelValues("token", "miss").Inc()

	raw, err := s.catalog.Market(ctx, slug)
	if err != nil {
		log.Debug("Catalog lookup failed", zap.Error(err))
		return "", false
	}

	id, ok = market.ExtractTokenID(raw)
	if !ok {
		log.Debug("Catalog record has no token id")
		return "", false
	}

	if err := s.cache.Put(ctx, slug, id); err != nil {
		log.Warn("Token cache write failed", zap.Error(err))
	}
	return id, true
}
