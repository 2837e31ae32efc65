// Package chart picks the series a market chart is drawn from: real history when
// available, a synthesized sparkline otherwise.
package chart

import (
	"context"
	"time"

	"github.com/kailas-cloud/marketfeed/internal/domain/market"
	"github.com/kailas-cloud/marketfeed/internal/domain/sparkline"
	"github.com/kailas-cloud/marketfeed/internal/metrics"
)

// HistorySource returns cached or fetched price history.
type HistorySource interface {
	History(ctx context.Context, slug string) []market.PricePoint
}

// Result is a chart series. Synthetic marks a generated approximation.
type Result struct {
	Points    []market.PricePoint
	Synthetic bool
}

// Service builds chart series.
type Service struct {
	history HistorySource
	now     func() time.Time
}

// New creates a chart service.
func New(history HistorySource) *Service {
	return &Service{history: history, now: time.Now}
}

// WithClock overrides the time source used for synthesized timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Chart returns history for slug. When none exists and in is provided, a sparkline is
// synthesized from the current price and its known changes.
func (s *Service) Chart(ctx context.Context, slug string, in *sparkline.Input) Result {
	if points := s.history.History(ctx, slug); len(points) > 0 {
		return Result{Points: points}
	}
	if in == nil {
		return Result{Points: []market.PricePoint{}}
	}
	metrics.SparklineFallbacksTotal.Inc()
	return Result{Points: sparkline.Generate(s.now(), *in), Synthetic: true}
}
