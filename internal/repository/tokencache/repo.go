// Package tokencache persists the slug to CLOB token id mapping.
package tokencache

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/marketfeed/internal/db"
)

const keyPrefix = "token:"

// store is the consumer interface for the token cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo keeps token ids for the lifetime of the store. Entries never expire:
// a market's token ids do not change once listed.
type Repo struct {
	store store
}

// New creates a token cache repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns the cached token id for slug. A miss is ("", false, nil).
func (r *Repo) Get(ctx context.Context, slug string) (string, bool, error) {
	data, err := r.store.Get(ctx, keyPrefix+slug)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get token %s: %w", slug, err)
	}
	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

// Put stores the token id for slug.
func (r *Repo) Put(ctx context.Context, slug, tokenID string) error {
	if err := r.store.Set(ctx, keyPrefix+slug, []byte(tokenID)); err != nil {
		return fmt.Errorf("put token %s: %w", slug, err)
	}
	return nil
}
