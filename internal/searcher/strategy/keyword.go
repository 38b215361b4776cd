package strategy

import (
	"context"
	"math"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/docinfo"
)

// Keyword scores by TF-IDF with idf = log10(total/df). Every query term
// contributes, so a repeated term counts twice. idf is not clamped and
// goes negative for terms present in more documents than the stored total.
type Keyword struct{}

func (Keyword) Score(ctx context.Context, terms []string, docs docinfo.Service) (map[string]float64, error) {
	scores := make(map[string]float64)
	total, err := docs.TotalDocuments(ctx)
	if err != nil {
		return nil, err
	}
	for _, term := range terms {
		ids, err := docs.DocIDsForTerm(ctx, term)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			continue
		}
		idf := math.Log10(float64(total) / float64(len(ids)))
		for _, id := range ids {
			tf, err := docs.TermFrequency(ctx, term, id)
			if err != nil {
				return nil, err
			}
			scores[id] += float64(tf) * idf
		}
	}
	return scores, nil
}
