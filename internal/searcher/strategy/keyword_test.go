package strategy

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordEmptyTerms(t *testing.T) {
	docs := newFakeDocs(10)
	got, err := Keyword{}.Score(context.Background(), nil, docs)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, docs.totalHits)
	assert.Empty(t, docs.idCalls)
}

func TestKeywordSkipsUnknownTerm(t *testing.T) {
	docs := newFakeDocs(10)
	got, err := Keyword{}.Score(context.Background(), []string{"a"}, docs)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, docs.tfCalls)
}

func TestKeywordTFIDFExact(t *testing.T) {
	docs := newFakeDocs(100)
	docs.add("fox", "d1", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	docs.add("fox", "d2").add("fox", "d3").add("fox", "d4")

	got, err := Keyword{}.Score(context.Background(), []string{"fox"}, docs)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.InDelta(t, 10*math.Log10(25), got["d1"], 1e-12)
	assert.InDelta(t, math.Log10(25), got["d2"], 1e-12)
	assert.Equal(t, 4, docs.tfCalls)
}

func TestKeywordSumsAcrossTerms(t *testing.T) {
	docs := newFakeDocs(6)
	docs.add("a", "d1", 1, 2, 3).add("a", "d2", 4)
	docs.add("b", "d1", 5, 6, 7, 8).add("b", "d3", 1, 2).add("b", "d4").add("b", "d5")

	got, err := Keyword{}.Score(context.Background(), []string{"a", "b"}, docs)
	require.NoError(t, err)
	idfA := math.Log10(6.0 / 2)
	idfB := math.Log10(6.0 / 4)
	assert.InDelta(t, 3*idfA+4*idfB, got["d1"], 1e-12)
	assert.InDelta(t, idfA, got["d2"], 1e-12)
	assert.InDelta(t, 2*idfB, got["d3"], 1e-12)
	assert.Contains(t, got, "d5")
}

func TestKeywordDuplicateTermsCountTwice(t *testing.T) {
	docs := newFakeDocs(10)
	docs.add("a", "d1", 1, 2).add("a", "d2", 3)

	once, err := Keyword{}.Score(context.Background(), []string{"a"}, docs)
	require.NoError(t, err)
	twice, err := Keyword{}.Score(context.Background(), []string{"a", "a"}, docs)
	require.NoError(t, err)
	assert.InDelta(t, 2*once["d1"], twice["d1"], 1e-12)
	assert.Equal(t, 2, docs.idCalls["a"]-1)
}

func TestKeywordIDFNotClamped(t *testing.T) {
	docs := newFakeDocs(2)
	docs.add("a", "d1").add("a", "d2")
	got, err := Keyword{}.Score(context.Background(), []string{"a"}, docs)
	require.NoError(t, err)
	assert.Zero(t, got["d1"])

	docs = newFakeDocs(1)
	docs.add("a", "d1").add("a", "d2")
	got, err = Keyword{}.Score(context.Background(), []string{"a"}, docs)
	require.NoError(t, err)
	assert.Less(t, got["d1"], 0.0)
	assert.False(t, math.IsNaN(got["d1"]))
}
