package strategy

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/docinfo"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/index"
)

// Phrase matches documents containing the terms at consecutive word
// ordinals. Matches score 1.
type Phrase struct{}

func (Phrase) Score(ctx context.Context, terms []string, docs docinfo.Service) (map[string]float64, error) {
	scores := make(map[string]float64)
	if len(terms) == 0 {
		return scores, nil
	}

	var candidates []string
	for i, term := range terms {
		ids, err := docs.DocIDsForTerm(ctx, term)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return scores, nil
		}
		if i == 0 {
			candidates = ids
			continue
		}
		candidates = intersect(candidates, newDocSet(ids))
	}

	for _, id := range candidates {
		positions := make(map[string][]int, len(terms))
		for _, term := range terms {
			if _, done := positions[term]; done {
				continue
			}
			p, err := wordPositions(ctx, docs, term, id)
			if err != nil {
				return nil, err
			}
			positions[term] = p
		}
		if hasRun(terms, positions) {
			scores[id] = 1.0
		}
	}
	return scores, nil
}

func intersect(ids []string, set docSet) []string {
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// wordPositions returns the sorted word ordinals of term in docID.
func wordPositions(ctx context.Context, docs docinfo.Service, term, docID string) ([]int, error) {
	records, err := docs.TermPositions(ctx, term, docID)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(records))
	for _, rec := range records {
		p, err := index.ParsePosition(rec)
		if err != nil {
			slog.Default().Warn("skipping malformed position record",
				"component", "phrase-strategy", "term", term, "doc_id", docID, "error", err)
			continue
		}
		out = append(out, p.Word)
	}
	sort.Ints(out)
	return out, nil
}

// hasRun reports whether some start p of terms[0] has terms[i] at p+i for
// every i.
func hasRun(terms []string, positions map[string][]int) bool {
	for _, start := range positions[terms[0]] {
		if matchesFrom(start, terms, positions) {
			return true
		}
	}
	return false
}

func matchesFrom(start int, terms []string, positions map[string][]int) bool {
	for i := 1; i < len(terms); i++ {
		list := positions[terms[i]]
		want := start + i
		j := sort.SearchInts(list, want)
		if j == len(list) || list[j] != want {
			return false
		}
	}
	return true
}
