// Package memory is an in-process db.Store for single-instance deployments and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/kailas-cloud/marketfeed/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// DefaultCapacity bounds the number of keys when Config.Capacity is zero.
const DefaultCapacity = 100_000

// Config holds the in-memory store settings.
type Config struct {
	// Capacity is the maximum number of keys; the least recently used key is evicted beyond it.
	Capacity uint64
	// Now overrides the clock used for expiry checks on read (tests).
	Now func() time.Time
}

type item struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Store keeps values in a ttlcache. A background janitor removes expired keys;
// reads also check expiry against the configured clock.
type Store struct {
	cache     *ttlcache.Cache[string, item]
	now       func() time.Time
	closeOnce sync.Once
}

// NewStore creates an empty store and starts its janitor. Close stops it.
func NewStore(cfg Config) *Store {
	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	cache := ttlcache.New[string, item](
		ttlcache.WithCapacity[string, item](capacity),
		ttlcache.WithDisableTouchOnHit[string, item](),
	)
	go cache.Start()

	return &Store{cache: cache, now: now}
}

// Get returns a copy of the stored value.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	e := s.cache.Get(key)
	if e == nil {
		return nil, db.ErrKeyNotFound
	}
	it := e.Value()
	if !it.expiresAt.IsZero() && !s.now().Before(it.expiresAt) {
		s.cache.Delete(key)
		return nil, db.ErrKeyNotFound
	}
	return clone(it.value), nil
}

// Set stores value without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.cache.Set(key, item{value: clone(value)}, ttlcache.NoTTL)
	return nil
}

// SetWithTTL stores value until ttl elapses. A non-positive ttl means no expiry.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Set(context.Background(), key, value)
	}
	s.cache.Set(key, item{value: clone(value), expiresAt: s.now().Add(ttl)}, ttl)
	return nil
}

// Del removes key.
func (s *Store) Del(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Len reports the number of stored keys, expired ones included until the janitor runs.
func (s *Store) Len() int { return s.cache.Len() }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close stops the janitor. Safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(s.cache.Stop)
}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
