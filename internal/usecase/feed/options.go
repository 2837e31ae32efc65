package feed

import (
	"time"

	"github.com/kailas-cloud/marketfeed/internal/domain/ranking"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/request"
)

// Filters are the quality thresholds every retrieval applies.
type Filters struct {
	MinLiquidity  float64
	MinVolume     float64
	MinVolume24h  float64
	EndDateWindow time.Duration // end_date must fall within now +/- window
}

// Boost is a group boost on the user's lookup document.
type Boost struct {
	Field    string
	Group    string
	MinBoost float64
	MaxBoost float64
	N        int
}

// Options configure the pipeline.
type Options struct {
	ItemsIndex       string
	UsersIndex       string
	PersonalizedSize int
	DefaultSize      int
	SortField        string
	SortOrder        request.Direction
	MinQueryLength   int
	QueryPadding     string
	SelectFields     []string
	Filters          Filters
	Boosts           []Boost
	FeaturesVersion  string
	ModelPath        string
	ScoreKey         string
	Ranking          ranking.Spec
}
