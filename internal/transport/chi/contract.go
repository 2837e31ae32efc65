package chi

import (
	"context"
	"encoding/json"

	"github.com/kailas-cloud/marketfeed/internal/domain/sparkline"
	chartuc "github.com/kailas-cloud/marketfeed/internal/usecase/chart"
	feeduc "github.com/kailas-cloud/marketfeed/internal/usecase/feed"
	healthuc "github.com/kailas-cloud/marketfeed/internal/usecase/health"
)

// FeedRunner runs the feed pipeline.
type FeedRunner interface {
	Run(ctx context.Context, q feeduc.Query) (feeduc.Result, error)
}

// Charter builds chart series.
type Charter interface {
	Chart(ctx context.Context, slug string, in *sparkline.Input) chartuc.Result
}

// StoryGenerator generates wallet stories.
type StoryGenerator interface {
	Generate(ctx context.Context, wallet string, n int) (json.RawMessage, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
