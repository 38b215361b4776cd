package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("INV_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := NewClient(ctx, config.RedisConfig{
		Addr:        addr,
		DB:          15,
		PoolSize:    2,
		DialRetries: 1,
		DialTimeout: time.Second,
	})
	if err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		_, _ = c.DeleteByPattern(context.Background(), "inverton-test:*")
		_ = c.Close()
	})
	return c
}

func TestClientStore(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	existed, err := c.Swap(ctx, "inverton-test:path", "/a.txt")
	require.NoError(t, err)
	assert.False(t, existed)
	existed, err = c.Swap(ctx, "inverton-test:path", "/b.txt")
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = c.Get(ctx, "inverton-test:missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	res, err := c.GetMany(ctx, []string{"inverton-test:path", "inverton-test:missing"})
	require.NoError(t, err)
	assert.Equal(t, store.Lookup{Value: "/b.txt", Found: true}, res[0])
	assert.False(t, res[1].Found)
	assert.NoError(t, res[1].Err)

	require.NoError(t, c.Exec(ctx, []store.Op{
		{Kind: store.OpSAdd, Key: "inverton-test:set", Value: "d1"},
		{Kind: store.OpRPush, Key: "inverton-test:list", Value: "1:1:3"},
		{Kind: store.OpRPush, Key: "inverton-test:list", Value: "1:2:3"},
	}))
	members, err := c.SMembers(ctx, "inverton-test:set")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, members)
	list, err := c.LRange(ctx, "inverton-test:list")
	require.NoError(t, err)
	assert.Equal(t, []string{"1:1:3", "1:2:3"}, list)

	deleted, err := c.DeleteByPattern(ctx, "inverton-test:*")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}
