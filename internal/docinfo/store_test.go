package docinfo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails GetMany entries whose key contains a marker.
type flakyStore struct {
	*store.Memory
	marker  string
	getMany int
}

func (f *flakyStore) GetMany(ctx context.Context, keys []string) ([]store.Lookup, error) {
	f.getMany++
	res, err := f.Memory.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		if f.marker != "" && strings.Contains(k, f.marker) {
			res[i] = store.Lookup{Err: errors.New("injected")}
		}
	}
	return res, nil
}

func seed(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.Exec(ctx, []store.Op{
		{Kind: store.OpSet, Key: store.LemmaKey("en", "jumps"), Value: "jump"},
		{Kind: store.OpSet, Key: store.LemmaKey("en", "foxes"), Value: "fox"},
		{Kind: store.OpSet, Key: store.StopwordKey("en", "the"), Value: "1"},
		{Kind: store.OpSAdd, Key: store.TermKey("fox"), Value: "d1"},
		{Kind: store.OpRPush, Key: store.PostingKey("fox", "d1"), Value: "1:4:3"},
		{Kind: store.OpRPush, Key: store.PostingKey("fox", "d1"), Value: "2:12:3"},
	}))
}

func TestTotalDocumentsDefaultsToOne(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc, err := New(st, Options{})
	require.NoError(t, err)

	n, err := svc.TotalDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = st.Incr(ctx, store.TotalDocsKey)
	require.NoError(t, err)
	_, err = st.Incr(ctx, store.TotalDocsKey)
	require.NoError(t, err)
	n, err = svc.TotalDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPostingLookups(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seed(t, st)
	svc, err := New(st, Options{Language: "en"})
	require.NoError(t, err)

	ids, err := svc.DocIDsForTerm(ctx, "fox")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids)

	tf, err := svc.TermFrequency(ctx, "fox", "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, tf)

	pos, err := svc.TermPositions(ctx, "fox", "d1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1:4:3", "2:12:3"}, pos)

	ids, err = svc.DocIDsForTerm(ctx, "cat")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLemmasUseCache(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{Memory: store.NewMemory()}
	seed(t, st)
	svc, err := New(st, Options{LemmaCacheSize: 16})
	require.NoError(t, err)

	got, err := svc.Lemmas(ctx, []string{"Jumps", "foxes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"jump", "fox"}, got)
	assert.Equal(t, 1, st.getMany)

	got, err = svc.Lemmas(ctx, []string{"jumps", "FOXES"})
	require.NoError(t, err)
	assert.Equal(t, []string{"jump", "fox"}, got)
	assert.Equal(t, 1, st.getMany, "second lookup should be served from cache")
}

func TestLemmasSeeDictionaryLoadedLater(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{Memory: store.NewMemory()}
	svc, err := New(st, Options{LemmaCacheSize: 16})
	require.NoError(t, err)

	got, err := svc.Lemmas(ctx, []string{"Running"})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got)

	require.NoError(t, st.Set(ctx, store.LemmaKey("en", "running"), "run"))

	got, err = svc.Lemmas(ctx, []string{"Running"})
	require.NoError(t, err)
	assert.Equal(t, []string{"run"}, got)
	assert.Equal(t, 2, st.getMany)
}

func TestLemmaCacheEntriesExpire(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{Memory: store.NewMemory()}
	seed(t, st)
	svc, err := New(st, Options{LemmaCacheSize: 16, LemmaCacheTTL: 50 * time.Millisecond})
	require.NoError(t, err)

	got, err := svc.Lemmas(ctx, []string{"jumps"})
	require.NoError(t, err)
	require.Equal(t, []string{"jump"}, got)

	require.NoError(t, st.Set(ctx, store.LemmaKey("en", "jumps"), "leap"))

	assert.Eventually(t, func() bool {
		got, err := svc.Lemmas(ctx, []string{"jumps"})
		return err == nil && got[0] == "leap"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestBatchPartialFailure(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{Memory: store.NewMemory(), marker: "foxes"}
	seed(t, st)
	svc, err := New(st, Options{})
	require.NoError(t, err)

	got, err := svc.Lemmas(ctx, []string{"jumps", "foxes"})
	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.Contains(t, partial.Failed, 1)
	assert.Equal(t, []string{"jump", ""}, got)

	st.marker = "sw:en:the"
	stop, err := svc.AreStopWords(ctx, []string{"the", "fox"})
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []bool{false, false}, stop)
	assert.Len(t, partial.Failed, 1)
}

func TestAreStopWords(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	seed(t, st)
	svc, err := New(st, Options{})
	require.NoError(t, err)

	got, err := svc.AreStopWords(ctx, []string{"the", "fox"})
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, got)
}
