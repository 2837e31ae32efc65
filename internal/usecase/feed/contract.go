package feed

import (
	"context"

	"github.com/kailas-cloud/marketfeed/internal/domain"
	"github.com/kailas-cloud/marketfeed/internal/domain/candidate"
	"github.com/kailas-cloud/marketfeed/internal/domain/ranking"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/request"
	"github.com/kailas-cloud/marketfeed/internal/domain/search/result"
)

// Retriever runs stage-1 candidate retrieval.
type Retriever interface {
	Search(ctx context.Context, req request.Request) ([]result.Result, error)
}

// Enricher fetches per-item features for a user.
type Enricher interface {
	Features(
		ctx context.Context, version string, items []*candidate.Candidate, user candidate.User,
	) ([]candidate.Enrichment, error)
}

// Scorer asks a model to order items for a user.
type Scorer interface {
	Score(ctx context.Context, modelPath, userID string, itemIDs []string) ([]string, error)
}

// Ranker produces the final placements.
type Ranker interface {
	Rank(ctx context.Context, cs []*candidate.Candidate, spec ranking.Spec) ([]ranking.Placement, error)
}

// Engine is the full engine surface the orchestrator needs.
type Engine interface {
	Retriever
	Enricher
	Scorer
	Ranker
}

// Embedder vectorizes free-text queries.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
