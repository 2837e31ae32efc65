// Package chi exposes the feed, chart and stories endpoints over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/marketfeed/internal/domain"
	"github.com/kailas-cloud/marketfeed/internal/domain/sparkline"
	"github.com/kailas-cloud/marketfeed/internal/logger"
	"github.com/kailas-cloud/marketfeed/internal/metrics"
	feeduc "github.com/kailas-cloud/marketfeed/internal/usecase/feed"
	healthuc "github.com/kailas-cloud/marketfeed/internal/usecase/health"
)

const (
	maxBodyBytes = 1 << 20
	historyCache = "public, s-maxage=300, stale-while-revalidate=600"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	feed          FeedRunner
	chart         Charter
	stories       StoryGenerator
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	feed FeedRunner,
	chart Charter,
	stories StoryGenerator,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		feed:    feed,
		chart:   chart,
		stories: stories,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		invalidRequestHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeUpstreamError),
		sentinelHandler(domain.ErrUpstream, http.StatusBadGateway, CodeUpstreamError),
	}
	return s
}

// Routes builds the router with the full middleware stack.
func (s *Server) Routes(apiKeys []string) http.Handler {
	r := gochi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Post("/feed", s.Feed)
	r.Get("/price-history", s.PriceHistory)
	r.Post("/stories", s.Stories)
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// Feed handles POST /feed.
func (s *Server) Feed(w http.ResponseWriter, r *http.Request) {
	var req FeedRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.feed.Run(r.Context(), feeduc.Query{
		Wallet:    req.Wallet,
		Text:      req.Query,
		Topics:    req.Topics,
		SortField: req.SortField,
		SortOrder: req.SortOrder,
		Size:      req.Size,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, FeedResponse{
		Markets:      res.Markets,
		Trades:       res.Trades,
		Personalized: res.Personalized,
		Stage:        string(res.Stage),
		TotalHits:    res.TotalHits,
	})
}

// PriceHistory handles GET /price-history.
func (s *Server) PriceHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	slug := q.Get("slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, CodeInvalid, "slug is required")
		return
	}

	res := s.chart.Chart(r.Context(), slug, sparklineInput(q.Get, slug))

	if !res.Synthetic && len(res.Points) > 0 {
		w.Header().Set("Cache-Control", historyCache)
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: res.Points, Synthetic: res.Synthetic})
}

// sparklineInput reads the optional synthesis hints. Without a parsable price there is nothing to
// synthesize from; malformed change values are treated as unknown.
func sparklineInput(get func(string) string, slug string) *sparkline.Input {
	price, ok := parseFloat(get("price"))
	if !ok {
		return nil
	}
	id := get("id")
	if id == "" {
		id = slug
	}
	return &sparkline.Input{
		ID:        id,
		Current:   price,
		Change1h:  optionalFloat(get("change_1h")),
		Change24h: optionalFloat(get("change_24h")),
		Change7d:  optionalFloat(get("change_7d")),
		Change30d: optionalFloat(get("change_30d")),
	}
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func optionalFloat(s string) *float64 {
	v, ok := parseFloat(s)
	if !ok {
		return nil
	}
	return &v
}

// Stories handles POST /stories.
func (s *Server) Stories(w http.ResponseWriter, r *http.Request) {
	var req StoriesRequest
	if !s.decode(w, r, &req) {
		return
	}

	raw, err := s.stories.Generate(r.Context(), req.Wallet, req.NumStories)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// invalidRequestHandler reports validation failures verbatim; they describe the caller's input.
func invalidRequestHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidRequest) {
		return false
	}
	writeError(w, http.StatusBadRequest, CodeInvalid, err.Error())
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Only the sentinel's own message reaches the client.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
