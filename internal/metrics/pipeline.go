package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "marketfeed"

// Feed pipeline, cache and upstream Prometheus metrics.
var (
	FeedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "Feed requests by last completed stage and personalization",
		},
		[]string{"stage", "personalized"},
	)

	FeedFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fallbacks_total",
			Help:      "Personalization fallbacks by failed stage",
		},
		[]string{"stage"},
	)

	FeedWindowViolationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_window_violations_total",
			Help:      "Ranking responses that broke the requested per-window field cap",
		},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Cache lookups by cache and result",
		},
		[]string{"cache", "result"}, // cache: history/token/embedding, result: hit/miss
	)

	SparklineFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sparkline_fallbacks_total",
			Help:      "Charts served from a synthesized series",
		},
	)

	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outbound requests by client, operation and status",
		},
		[]string{"client", "op", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Outbound request duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"client", "op"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers feed, cache and upstream metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(FeedRequestsTotal)
	prometheus.MustRegister(FeedFallbacksTotal)
	prometheus.MustRegister(FeedWindowViolationsTotal)
	prometheus.MustRegister(CacheTotal)
	prometheus.MustRegister(SparklineFallbacksTotal)
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamRequestDuration)
	pipelineMetricsRegistered = true
}
