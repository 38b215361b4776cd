package engine

import (
	"container/heap"
	"sort"
)

// rank orders scores by descending score, then ascending docID, keeping at
// most limit results. limit <= 0 keeps all. A bounded heap is used when only
// a few of many matches are wanted.
func rank(scores map[string]float64, limit int) []Result {
	if limit <= 0 || limit >= len(scores) {
		results := make([]Result, 0, len(scores))
		for id, score := range scores {
			results = append(results, Result{DocID: id, Score: score})
		}
		sort.Slice(results, func(i, j int) bool { return better(results[i], results[j]) })
		return results
	}

	h := make(worstFirst, 0, limit+1)
	for id, score := range scores {
		heap.Push(&h, Result{DocID: id, Score: score})
		if h.Len() > limit {
			heap.Pop(&h)
		}
	}
	results := make([]Result, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(&h).(Result)
	}
	return results
}

func better(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// worstFirst is a min-heap with the lowest ranked result on top.
type worstFirst []Result

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(Result)) }

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
