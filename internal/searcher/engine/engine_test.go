package engine

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/docinfo"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/strategy"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverton/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	st     *store.Memory
	docs   *docinfo.StoreService
	norm   *normalizer.Normalizer
	queue  *queue.Queue
	engine *Engine
	dir    string
}

func newFixture(t testing.TB, opts ...Option) *fixture {
	t.Helper()
	st := store.NewMemory()
	docs, err := docinfo.New(st, docinfo.Options{Language: "en"})
	require.NoError(t, err)
	norm := normalizer.New(docs)
	svc := indexer.NewService(st, norm, config.IndexerConfig{NormalizeBatchSize: 200, WriteBatchSize: 200})
	return &fixture{
		st:     st,
		docs:   docs,
		norm:   norm,
		queue:  queue.New(svc, 2),
		engine: New(st, docs, norm, opts...),
		dir:    t.TempDir(),
	}
}

func (f *fixture) ingest(t testing.TB, name, content string) (path, docID string) {
	t.Helper()
	path = filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	docID = f.queue.Enqueue(context.Background(), path)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.queue.Wait(ctx))
	return path, docID
}

func TestIngestAndKeywordSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	path, docID := f.ingest(t, "fox.txt", "The quick brown fox jumps over the lazy dog.")

	results, err := f.engine.Search(ctx, "fox", Options{Mode: strategy.ModeKeyword, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, path, results[0].Path)
	assert.Equal(t, docID, results[0].DocID)

	again := f.queue.Enqueue(ctx, path)
	require.NoError(t, f.queue.Wait(ctx))
	assert.Equal(t, docID, again)

	total, err := f.docs.TotalDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, int64(2), f.queue.Stats().Processed)
}

func TestSearchRanksByScoreThenDocID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ingest(t, "a.txt", "fox fox fox")
	f.ingest(t, "b.txt", "fox")
	f.ingest(t, "c.txt", "dog")
	f.ingest(t, "d.txt", "cat")

	results, err := f.engine.Search(ctx, "fox", Options{Mode: strategy.ModeKeyword})
	require.NoError(t, err)
	require.Len(t, results, 2)
	idf := math.Log10(4.0 / 2.0)
	assert.InDelta(t, 3*idf, results[0].Score, 1e-9)
	assert.Equal(t, filepath.Join(f.dir, "a.txt"), results[0].Path)
	assert.InDelta(t, idf, results[1].Score, 1e-9)

	results, err = f.engine.Search(ctx, "dog OR cat", Options{Mode: strategy.ModeBoolean})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Less(t, results[0].DocID, results[1].DocID)

	results, err = f.engine.Search(ctx, "fox", Options{Mode: strategy.ModeKeyword, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestPhraseSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	path, _ := f.ingest(t, "a.txt", "the quick brown fox")
	f.ingest(t, "b.txt", "brown dog and a quick fox")

	results, err := f.engine.Search(ctx, "quick brown", Options{Mode: strategy.ModePhrase})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, path, results[0].Path)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestBooleanQueryErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.Search(ctx, "fox AND", Options{Mode: strategy.ModeBoolean})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)

	_, err = f.engine.Search(ctx, "fox & dog", Options{Mode: strategy.ModeBoolean})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
}

func TestEmptyQueryReturnsNoResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.st.Set(ctx, store.StopwordKey("en", "the"), "1"))
	f.ingest(t, "a.txt", "the fox")

	for _, q := range []string{"", "   ", "the", "!!!"} {
		results, err := f.engine.Search(ctx, q, Options{Mode: strategy.ModeKeyword})
		require.NoError(t, err, q)
		assert.Empty(t, results, q)
	}
}

func TestUnknownPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.st.Exec(ctx, []store.Op{
		{Kind: store.OpSAdd, Key: store.TermKey("ghost"), Value: "d9"},
		{Kind: store.OpRPush, Key: store.PostingKey("ghost", "d9"), Value: "1:1:5"},
	}))

	results, err := f.engine.Search(ctx, "ghost", Options{Mode: strategy.ModeBoolean})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, UnknownPath, results[0].Path)
}

type recordingObserver struct {
	observations []Observation
}

func (r *recordingObserver) ObserveSearch(_ context.Context, obs Observation) {
	r.observations = append(r.observations, obs)
}

func TestCacheMetricsAndObserver(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	obs := &recordingObserver{}

	f := newFixture(t)
	qc := cache.New[[]Result](f.st, time.Minute, m)
	f.engine = New(f.st, f.docs, f.norm, WithCache(qc), WithMetrics(m), WithObserver(obs))
	f.ingest(t, "a.txt", "fox")

	first, err := f.engine.Search(ctx, "fox", Options{Mode: strategy.ModeKeyword, Limit: 10})
	require.NoError(t, err)
	second, err := f.engine.Search(ctx, "FOX", Options{Mode: strategy.ModeKeyword, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, obs.observations, 2)
	assert.False(t, obs.observations[0].CacheHit)
	assert.True(t, obs.observations[1].CacheHit)

	hits, misses := f.engine.CacheStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(metrics.ResultHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues(metrics.ResultMiss)))

	deleted, err := f.engine.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func BenchmarkSearch(b *testing.B) {
	f := newFixture(b)
	words := []string{"search", "index", "query", "token", "lemma", "posting", "phrase", "boolean", "score", "rank"}
	for i := range 200 {
		content := ""
		for j := range 50 {
			content += words[(i*7+j*3)%len(words)] + " "
		}
		f.ingest(b, fmt.Sprintf("doc-%03d.txt", i), content)
	}

	cases := []struct {
		name  string
		query string
		mode  strategy.Mode
	}{
		{"keyword", "search index query", strategy.ModeKeyword},
		{"phrase", "index query", strategy.ModePhrase},
		{"boolean", "(search OR token) AND NOT lemma", strategy.ModeBoolean},
	}
	ctx := context.Background()
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := f.engine.Search(ctx, c.query, Options{Mode: c.mode, Limit: 10}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
