// Package cache stores search results in the store under a TTL and
// collapses concurrent identical queries into one computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

// Key identifies a cached query.
type Key struct {
	Mode  string
	Query string
	Limit int
}

// QueryCache caches values of type T as JSON.
type QueryCache[T any] struct {
	st      store.Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache writing entries that expire after ttl. m may be nil.
func New[T any](st store.Store, ttl time.Duration, m *metrics.Metrics) *QueryCache[T] {
	return &QueryCache[T]{
		st:      st,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached value for k. Store and decode failures count as
// misses.
func (c *QueryCache[T]) Get(ctx context.Context, k Key) (T, bool) {
	var zero T
	key := buildKey(k)
	data, err := c.st.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return zero, false
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return zero, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", k.Query, "key", key)
	return v, true
}

// Set stores v under k. Failures are logged.
func (c *QueryCache[T]) Set(ctx context.Context, k Key, v T) {
	key := buildKey(k)
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.st.SetWithTTL(ctx, key, string(data), c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached value for k or computes and stores it.
// Concurrent callers with the same key share one compute call. The bool
// reports a cache hit.
func (c *QueryCache[T]) GetOrCompute(ctx context.Context, k Key, compute func() (T, error)) (T, bool, error) {
	if v, ok := c.Get(ctx, k); ok {
		return v, true, nil
	}
	val, err, _ := c.group.Do(buildKey(k), func() (any, error) {
		v, err := compute()
		if err != nil {
			return v, err
		}
		c.Set(ctx, k, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return val.(T), false, nil
}

// Invalidate removes every cached entry.
func (c *QueryCache[T]) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.st.DeleteByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache[T]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache[T]) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(k Key) string {
	raw := fmt.Sprintf("%s|%s|limit=%d", k.Mode, normalizeQuery(k.Query), k.Limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery folds case and whitespace. Lemma lookups and operator
// matching are case-insensitive, so the folded query means the same thing.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
