package token

import "context"

// Catalog returns the raw catalog record(s) for a market slug.
type Catalog interface {
	Market(ctx context.Context, slug string) ([]byte, error)
}

// Cache persists resolved token ids.
type Cache interface {
	Get(ctx context.Context, slug string) (string, bool, error)
	Put(ctx context.Context, slug, tokenID string) error
}
