package lexicon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*store.Memory
	batches []int
}

func (c *countingStore) Exec(ctx context.Context, ops []store.Op) error {
	c.batches = append(c.batches, len(ops))
	return c.Memory.Exec(ctx, ops)
}

func get(t *testing.T, st store.Store, key string) (string, bool) {
	t.Helper()
	v, err := st.Get(context.Background(), key)
	if err == store.ErrNotFound {
		return "", false
	}
	require.NoError(t, err)
	return v, true
}

func TestLoadLemmasSkipsInvalidLines(t *testing.T) {
	st := &countingStore{Memory: store.NewMemory()}
	l := NewLoader(st, "en", 1000)

	input := strings.Join([]string{
		"valid;data",
		"invalid_line_no_separator",
		";",
		"term;_",
		"_;lemma",
		"same;same",
		"",
		"Another;Valid\r",
	}, "\n")
	res, err := l.LoadLemmas(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, Result{Loaded: 2, Skipped: 6}, res)
	assert.Equal(t, []int{2}, st.batches, "one flush at end of input")

	v, ok := get(t, st, store.LemmaKey("en", "valid"))
	require.True(t, ok)
	assert.Equal(t, "data", v)
	v, ok = get(t, st, store.LemmaKey("en", "another"))
	require.True(t, ok)
	assert.Equal(t, "valid", v)
	_, ok = get(t, st, store.LemmaKey("en", "same"))
	assert.False(t, ok)
}

func TestLoadFlushesAtBatchSize(t *testing.T) {
	st := &countingStore{Memory: store.NewMemory()}
	l := NewLoader(st, "en", 2)

	res, err := l.LoadLemmas(context.Background(), strings.NewReader("a;b\nc;d\ne;f\ng;h\ni;j"))
	require.NoError(t, err)
	assert.Equal(t, 5, res.Loaded)
	assert.Equal(t, []int{2, 2, 1}, st.batches)
}

func TestLoadStopwords(t *testing.T) {
	st := store.NewMemory()
	l := NewLoader(st, "de", 0)

	res, err := l.LoadStopwords(context.Background(), strings.NewReader("der\n\n  Die \ndas\n"))
	require.NoError(t, err)
	assert.Equal(t, Result{Loaded: 3, Skipped: 1}, res)
	for _, w := range []string{"der", "die", "das"} {
		v, ok := get(t, st, store.StopwordKey("de", w))
		assert.True(t, ok, w)
		assert.Equal(t, "1", v)
	}
}

func TestLoadFilesConcurrently(t *testing.T) {
	dir := t.TempDir()
	lemmas := filepath.Join(dir, "lemmas.csv")
	stop := filepath.Join(dir, "stopwords.txt")
	require.NoError(t, os.WriteFile(lemmas, []byte("jumps;jump\nfoxes;fox\n"), 0o644))
	require.NoError(t, os.WriteFile(stop, []byte("the\na\n"), 0o644))
	missing := filepath.Join(dir, "missing.csv")

	st := store.NewMemory()
	l := NewLoader(st, "en", 1000)
	results, err := l.LoadFiles(context.Background(), []File{
		{Path: lemmas, Kind: Lemmas},
		{Path: stop, Kind: Stopwords},
		{Path: missing, Kind: Lemmas},
	}, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 2, results[lemmas].Loaded)
	assert.Equal(t, 2, results[stop].Loaded)

	v, ok := get(t, st, store.LemmaKey("en", "foxes"))
	require.True(t, ok)
	assert.Equal(t, "fox", v)
	_, ok = get(t, st, store.StopwordKey("en", "the"))
	assert.True(t, ok)
}
