package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/docinfo"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t testing.TB, st store.Store, batch int) *Service {
	t.Helper()
	docs, err := docinfo.New(st, docinfo.Options{Language: "en"})
	require.NoError(t, err)
	return NewService(st, normalizer.New(docs), config.IndexerConfig{
		NormalizeBatchSize: batch,
		WriteBatchSize:     batch,
	})
}

func writeFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIndexFileWritesPostings(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Set(ctx, store.StopwordKey("en", "the"), "1"))
	require.NoError(t, st.Set(ctx, store.LemmaKey("en", "jumps"), "jump"))
	svc := newTestService(t, st, 2)

	path := writeFile(t, "fox.txt", "The quick brown fox\r\n\njumps over the lazy fox.")
	require.NoError(t, svc.IndexFile(ctx, path, "d1"))

	got, err := st.Get(ctx, store.DocPathKey("d1"))
	require.NoError(t, err)
	assert.Equal(t, path, got)

	total, err := st.Get(ctx, store.TotalDocsKey)
	require.NoError(t, err)
	assert.Equal(t, "1", total)

	positions, err := st.LRange(ctx, store.PostingKey("fox", "d1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1:4:3", "3:9:3"}, positions)

	jump, err := st.LRange(ctx, store.PostingKey("jump", "d1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"3:5:5"}, jump)

	ids, err := st.SMembers(ctx, store.TermKey("the"))
	require.NoError(t, err)
	assert.Empty(t, ids, "stopwords are not indexed")
}

func TestReindexReplacesPostings(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newTestService(t, st, 200)

	path := writeFile(t, "doc.txt", "alpha beta alpha")
	require.NoError(t, svc.IndexFile(ctx, path, "d1"))
	require.NoError(t, os.WriteFile(path, []byte("beta gamma"), 0o644))
	require.NoError(t, svc.IndexFile(ctx, path, "d1"))

	total, err := st.Get(ctx, store.TotalDocsKey)
	require.NoError(t, err)
	assert.Equal(t, "1", total)

	ids, _ := st.SMembers(ctx, store.TermKey("alpha"))
	assert.Empty(t, ids)
	beta, _ := st.LRange(ctx, store.PostingKey("beta", "d1"))
	assert.Equal(t, []string{"1:1:4"}, beta)
	gamma, _ := st.LRange(ctx, store.PostingKey("gamma", "d1"))
	assert.Equal(t, []string{"1:2:5"}, gamma)
}

func TestIndexFileMissing(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newTestService(t, st, 200)

	err := svc.IndexFile(ctx, filepath.Join(t.TempDir(), "nope.txt"), "d1")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = st.Get(ctx, store.DocPathKey("d1"))
	assert.ErrorIs(t, err, store.ErrNotFound, "unreadable files are not registered")
}

func BenchmarkIndexFile(b *testing.B) {
	line := "The quick brown fox jumps over the lazy dog while the search engine indexes every word.\n"
	for _, lines := range []int{10, 1000} {
		b.Run(fmt.Sprintf("lines_%d", lines), func(b *testing.B) {
			path := writeFile(b, "doc.txt", strings.Repeat(line, lines))
			svc := newTestService(b, store.NewMemory(), 200)
			ctx := context.Background()
			b.ReportAllocs()
			for b.Loop() {
				if err := svc.IndexFile(ctx, path, "bench"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func TestIndexFileRejectsDirectory(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newTestService(t, st, 200)

	err := svc.IndexFile(ctx, t.TempDir(), "d1")
	require.ErrorIs(t, err, ErrNotRegular)

	_, err = st.Get(ctx, store.DocPathKey("d1"))
	assert.ErrorIs(t, err, store.ErrNotFound, "directories are not registered")
	_, err = st.Get(ctx, store.TotalDocsKey)
	assert.ErrorIs(t, err, store.ErrNotFound, "directories are not counted")
}
