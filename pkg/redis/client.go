// Package redis implements store.Store on top of go-redis/v9. Batched reads
// and writes go through pipelines so a flush costs one round trip.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/resilience"
	"github.com/redis/go-redis/v9"
)

const scanCount = 100

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

var _ store.Store = (*Client)(nil)

// NewClient creates a Redis client and verifies the connection with a PING,
// retrying with backoff up to cfg.DialRetries attempts.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})
	err := resilience.Retry(ctx, "redis-dial", resilience.RetryConfig{MaxAttempts: cfg.DialRetries}, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, dialTimeout(cfg))
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

func dialTimeout(cfg config.RedisConfig) time.Duration {
	if cfg.DialTimeout > 0 {
		return cfg.DialTimeout
	}
	return 5 * time.Second
}

// Get returns the string value for key, or store.ErrNotFound.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if IsNilError(err) {
		return "", store.ErrNotFound
	}
	return v, err
}

// GetMany pipelines one GET per key. A failed entry is reported in its
// Lookup rather than failing the batch.
func (c *Client) GetMany(ctx context.Context, keys []string) ([]store.Lookup, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}
	// Exec reports the first failed command; per-command results are read below.
	if _, err := pipe.Exec(ctx); err != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("pipelined get: %w", err)
	}
	out := make([]store.Lookup, len(keys))
	for i, cmd := range cmds {
		v, err := cmd.Result()
		switch {
		case err == nil:
			out[i] = store.Lookup{Value: v, Found: true}
		case IsNilError(err):
		default:
			out[i] = store.Lookup{Err: fmt.Errorf("get %s: %w", keys[i], err)}
		}
	}
	return out, nil
}

func (c *Client) Set(ctx context.Context, key, value string) error {
	return c.rdb.Set(ctx, key, value, 0).Err()
}

func (c *Client) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Swap sets key and reports whether it held a value before.
func (c *Client) Swap(ctx context.Context, key, value string) (bool, error) {
	err := c.rdb.SetArgs(ctx, key, value, redis.SetArgs{Get: true}).Err()
	if IsNilError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.rdb.SMembers(ctx, key).Result()
}

func (c *Client) LLen(ctx context.Context, key string) (int64, error) {
	return c.rdb.LLen(ctx, key).Result()
}

func (c *Client) LRange(ctx context.Context, key string) ([]string, error) {
	return c.rdb.LRange(ctx, key, 0, -1).Result()
}

// Exec sends ops as a single non-transactional pipeline.
func (c *Client) Exec(ctx context.Context, ops []store.Op) error {
	if len(ops) == 0 {
		return nil
	}
	pipe := c.rdb.Pipeline()
	for i, op := range ops {
		switch op.Kind {
		case store.OpSet:
			pipe.Set(ctx, op.Key, op.Value, 0)
		case store.OpDel:
			pipe.Del(ctx, op.Key)
		case store.OpSAdd:
			pipe.SAdd(ctx, op.Key, op.Value)
		case store.OpSRem:
			pipe.SRem(ctx, op.Key, op.Value)
		case store.OpRPush:
			pipe.RPush(ctx, op.Key, op.Value)
		default:
			pipe.Discard()
			return fmt.Errorf("exec op %d: unsupported kind %s", i, op.Kind)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline of %d ops: %w", len(ops), err)
	}
	return nil
}

// DeleteByPattern scans for keys matching the glob pattern and deletes them,
// returning the number of keys removed.
func (c *Client) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("deleting key %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning pattern %s: %w", pattern, err)
	}
	return deleted, nil
}

// IsNilError reports whether err is a Redis nil (key-not-found) error.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
