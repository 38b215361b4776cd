// Package docinfo answers the index and dictionary lookups that the
// normalizer, the search strategies and the engine need.
package docinfo

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Service is the read side of the inverted index plus the lemma and
// stopword dictionaries.
type Service interface {
	// TotalDocuments returns the number of indexed documents, 1 if unknown.
	TotalDocuments(ctx context.Context) (int, error)
	DocIDsForTerm(ctx context.Context, term string) ([]string, error)
	// TermPositions returns the raw "line:position:length" records.
	TermPositions(ctx context.Context, term, docID string) ([]string, error)
	TermFrequency(ctx context.Context, term, docID string) (int, error)
	// Lemmas returns one entry per term; "" means no lemma is known.
	Lemmas(ctx context.Context, terms []string) ([]string, error)
	AreStopWords(ctx context.Context, lemmas []string) ([]bool, error)
}

// PartialError reports the entries of a batch lookup that failed. The
// accompanying result slice is still complete; failed entries hold their
// zero value.
type PartialError struct {
	Failed map[int]error
}

func (e *PartialError) Error() string {
	idx := make([]int, 0, len(e.Failed))
	for i := range e.Failed {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		parts = append(parts, fmt.Sprintf("#%d: %v", i, e.Failed[i]))
	}
	return fmt.Sprintf("%d lookups failed: %s", len(idx), strings.Join(parts, "; "))
}
