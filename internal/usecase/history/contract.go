package history

import (
	"context"

	"github.com/kailas-cloud/marketfeed/internal/domain/market"
)

// TokenResolver maps a slug to its CLOB token id.
type TokenResolver interface {
	Resolve(ctx context.Context, slug string) (string, bool)
}

// PriceSource fetches the trailing price series of a token.
type PriceSource interface {
	PriceHistory(ctx context.Context, tokenID string) ([]market.PricePoint, error)
}

// Cache stores price series per slug.
type Cache interface {
	Get(ctx context.Context, slug string) (market.History, bool, error)
	Put(ctx context.Context, h market.History) error
}
