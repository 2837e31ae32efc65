// Package engine is the HTTP client for the recommendation engine: search, features,
// scoring, ranking and stories.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/marketfeed/internal/domain"
	"github.com/kailas-cloud/marketfeed/internal/metrics"
)

const (
	service        = "engine"
	defaultTimeout = 10 * time.Second
	// maxErrorBody bounds how much of a failed response is kept for logging.
	maxErrorBody = 512
)

// Config holds the engine endpoints. Each *URL is a base the operation path is appended to.
type Config struct {
	APIKey      string
	SearchURL   string
	FeaturesURL string
	ScoringURL  string
	RankingURL  string
	StoriesURL  string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Client talks to the engine over JSON/HTTP with bearer auth.
type Client struct {
	apiKey      string
	searchURL   string
	featuresURL string
	scoringURL  string
	rankingURL  string
	storiesURL  string
	http        *http.Client
	logger      *zap.Logger
}

// New creates an engine client.
func New(cfg *Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:      cfg.APIKey,
		searchURL:   trim(cfg.SearchURL),
		featuresURL: trim(cfg.FeaturesURL),
		scoringURL:  trim(cfg.ScoringURL),
		rankingURL:  trim(cfg.RankingURL),
		storiesURL:  trim(cfg.StoriesURL),
		http:        hc,
		logger:      logger,
	}
}

func trim(u string) string { return strings.TrimRight(u, "/") }

// post sends body as JSON and returns the raw response body of a 2xx reply.
// Every failure is a *domain.UpstreamError.
func (c *Client) post(ctx context.Context, op, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.UpstreamError{Service: service, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(service, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(service, op, "error").Inc()
		return nil, &domain.UpstreamError{Service: service, Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.UpstreamRequestsTotal.WithLabelValues(service, op, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamError{Service: service, Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("Engine request failed",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data[:min(len(data), maxErrorBody)]),
		)
		return nil, &domain.UpstreamError{Service: service, Op: op, Status: resp.StatusCode}
	}

	return data, nil
}

var errMalformed = errors.New("malformed response")

// decodeAt unmarshals the first of paths present in body into out.
// A path is a list of object keys; an empty path is the body itself.
func decodeAt(body []byte, out any, paths ...[]string) bool {
	for _, path := range paths {
		raw, ok := lookup(body, path)
		if !ok {
			continue
		}
		if json.Unmarshal(raw, out) == nil {
			return true
		}
	}
	return false
}

func lookup(body []byte, path []string) (json.RawMessage, bool) {
	raw := json.RawMessage(body)
	for _, key := range path {
		var obj map[string]json.RawMessage
		if json.Unmarshal(raw, &obj) != nil {
			return nil, false
		}
		next, ok := obj[key]
		if !ok || string(next) == "null" {
			return nil, false
		}
		raw = next
	}
	return raw, true
}
