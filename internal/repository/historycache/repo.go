// Package historycache stores fetched price series per market slug.
package historycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/marketfeed/internal/db"
	"github.com/kailas-cloud/marketfeed/internal/domain/market"
)

const keyPrefix = "history:"

// store is the consumer interface for the history cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo persists entries. Freshness is the caller's decision; retention only bounds
// how long stale records linger in the store.
type Repo struct {
	store     store
	retention time.Duration
}

// New creates a history cache repository.
func New(s store, retention time.Duration) *Repo {
	return &Repo{store: s, retention: retention}
}

// Get loads the series for slug. A miss is a zero History and false.
func (r *Repo) Get(ctx context.Context, slug string) (market.History, bool, error) {
	data, err := r.store.Get(ctx, keyPrefix+slug)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return market.History{}, false, nil
		}
		return market.History{}, false, fmt.Errorf("get history %s: %w", slug, err)
	}

	var e market.History
	if err := json.Unmarshal(data, &e); err != nil {
		return market.History{}, false, fmt.Errorf("decode history %s: %w", slug, err)
	}
	return e, true, nil
}

// Put stores e, replacing any previous entry for the same slug.
func (r *Repo) Put(ctx context.Context, e market.History) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode history %s: %w", e.Slug, err)
	}
	if err := r.store.SetWithTTL(ctx, keyPrefix+e.Slug, data, r.retention); err != nil {
		return fmt.Errorf("put history %s: %w", e.Slug, err)
	}
	return nil
}
