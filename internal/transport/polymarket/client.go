// Package polymarket reads the public Polymarket market catalog (Gamma) and price series (CLOB).
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/marketfeed/internal/domain"
	"github.com/kailas-cloud/marketfeed/internal/domain/market"
	"github.com/kailas-cloud/marketfeed/internal/metrics"
)

const (
	service         = "polymarket"
	defaultTimeout  = 10 * time.Second
	defaultInterval = "1w"
	defaultFidelity = 60
)

// Config holds Polymarket endpoints and the shared outbound rate limit.
type Config struct {
	GammaURL   string
	CLOBURL    string
	Timeout    time.Duration
	RateLimit  float64 // requests per second, <= 0 disables limiting
	Burst      int
	Interval   string
	Fidelity   int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is a read-only Polymarket client. All calls share one token bucket.
type Client struct {
	gammaURL string
	clobURL  string
	interval string
	fidelity int
	http     *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// New creates a Polymarket client.
func New(cfg *Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	interval := cfg.Interval
	if interval == "" {
		interval = defaultInterval
	}
	fidelity := cfg.Fidelity
	if fidelity <= 0 {
		fidelity = defaultFidelity
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		gammaURL: strings.TrimRight(cfg.GammaURL, "/"),
		clobURL:  strings.TrimRight(cfg.CLOBURL, "/"),
		interval: interval,
		fidelity: fidelity,
		http:     hc,
		limiter:  limiter,
		logger:   logger,
	}
}

// Market returns the raw catalog response for slug (a single object or a list).
func (c *Client) Market(ctx context.Context, slug string) ([]byte, error) {
	q := url.Values{"slug": {slug}}
	return c.get(ctx, "market", c.gammaURL+"/markets?"+q.Encode())
}

type historyResponse struct {
	History []struct {
		T int64   `json:"t"`
		P float64 `json:"p"`
	} `json:"history"`
}

// PriceHistory returns the trailing price series of an outcome token, oldest first as served.
func (c *Client) PriceHistory(ctx context.Context, tokenID string) ([]market.PricePoint, error) {
	q := url.Values{
		"market":   {tokenID},
		"interval": {c.interval},
		"fidelity": {strconv.Itoa(c.fidelity)},
	}
	body, err := c.get(ctx, "price_history", c.clobURL+"/prices-history?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp historyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.UpstreamError{Service: service, Op: "price_history", Err: fmt.Errorf("decode: %w", err)}
	}

	points := make([]market.PricePoint, len(resp.History))
	for i, h := range resp.History {
		points[i] = market.PricePoint{Time: h.T, Value: h.P}
	}
	return points, nil
}

func (c *Client) get(ctx context.Context, op, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(service, op, "rate_limited").Inc()
		return nil, &domain.UpstreamError{Service: service, Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, &domain.UpstreamError{Service: service, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(service, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(service, op, "error").Inc()
		return nil, &domain.UpstreamError{Service: service, Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.UpstreamRequestsTotal.WithLabelValues(service, op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("Polymarket request failed", zap.String("op", op), zap.Int("status", resp.StatusCode))
		return nil, &domain.UpstreamError{Service: service, Op: op, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamError{Service: service, Op: op, Status: resp.StatusCode, Err: err}
	}
	return body, nil
}
