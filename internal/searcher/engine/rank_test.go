package engine

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankOrdersByScoreThenDocID(t *testing.T) {
	scores := map[string]float64{"c": 1, "a": 1, "b": 2, "d": 0}
	got := rank(scores, 0)
	assert.Equal(t, []Result{
		{DocID: "b", Score: 2},
		{DocID: "a", Score: 1},
		{DocID: "c", Score: 1},
		{DocID: "d", Score: 0},
	}, got)
}

func TestRankBoundedMatchesFullSort(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	scores := make(map[string]float64, 500)
	for i := range 500 {
		// Few distinct scores so ties are common.
		scores[fmt.Sprintf("doc-%03d", i)] = float64(r.IntN(20))
	}
	full := rank(scores, 0)
	for _, limit := range []int{1, 7, 50, 499, 500, 501} {
		want := full[:min(limit, len(full))]
		assert.Equal(t, want, rank(scores, limit), "limit %d", limit)
	}
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, rank(nil, 10))
	assert.Empty(t, rank(map[string]float64{}, 0))
}
