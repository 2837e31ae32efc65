package chi

import (
	"github.com/kailas-cloud/marketfeed/internal/domain/candidate"
	"github.com/kailas-cloud/marketfeed/internal/domain/market"
)

// ErrorCode is the machine-readable error kind returned to clients.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest    ErrorCode = "bad_request"
	CodeInvalid       ErrorCode = "invalid_request"
	CodeUnauthorized  ErrorCode = "unauthorized"
	CodeNotFound      ErrorCode = "not_found"
	CodeUpstreamError ErrorCode = "upstream_error"
	CodeInternalError ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// FeedRequest is the body of POST /feed.
type FeedRequest struct {
	Wallet    string   `json:"wallet,omitempty"`
	Query     string   `json:"query,omitempty"`
	Topics    []string `json:"topics,omitempty"`
	SortField string   `json:"sort_field,omitempty"`
	SortOrder string   `json:"sort_order,omitempty"`
	Size      int      `json:"size,omitempty"`
}

// FeedResponse is the body returned by POST /feed.
type FeedResponse struct {
	Markets      []market.Market              `json:"markets"`
	Trades       map[string][]candidate.Trade `json:"trades"`
	Personalized bool                         `json:"personalized"`
	Stage        string                       `json:"stage"`
	TotalHits    int                          `json:"total_hits"`
}

// HistoryResponse is the body returned by GET /price-history.
type HistoryResponse struct {
	History   []market.PricePoint `json:"history"`
	Synthetic bool                `json:"synthetic"`
}

// StoriesRequest is the body of POST /stories.
type StoriesRequest struct {
	Wallet     string `json:"wallet"`
	NumStories int    `json:"num_stories,omitempty"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
