package aggregator

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/analytics"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	dsn := os.Getenv("INV_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INV_TEST_POSTGRES_DSN not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Skipf("postgres unreachable: %v", err)
	}

	s := NewStore(db)
	require.NoError(t, s.EnsureSchema(ctx))
	want := analytics.AggregatedStats{TotalSearches: 7, TotalDocIndexed: 3}
	require.NoError(t, s.SaveSnapshot(ctx, want))

	got, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.TotalSearches)
	assert.Equal(t, int64(3), got.TotalDocIndexed)
}
