package strategy

import (
	"context"
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/docinfo"
)

// fakeDocs serves postings from memory and counts collaborator calls.
type fakeDocs struct {
	docinfo.Service
	total     int
	postings  map[string]map[string][]string // term -> doc -> records
	idCalls   map[string]int
	tfCalls   int
	totalHits int
}

func newFakeDocs(total int) *fakeDocs {
	return &fakeDocs{
		total:    total,
		postings: make(map[string]map[string][]string),
		idCalls:  make(map[string]int),
	}
}

// add records term at the given word ordinals in doc.
func (f *fakeDocs) add(term, doc string, words ...int) *fakeDocs {
	docs, ok := f.postings[term]
	if !ok {
		docs = make(map[string][]string)
		f.postings[term] = docs
	}
	for _, w := range words {
		docs[doc] = append(docs[doc], fmt.Sprintf("1:%d:%d", w, len(term)))
	}
	if len(words) == 0 {
		docs[doc] = append(docs[doc], "1:1:1")
	}
	return f
}

func (f *fakeDocs) TotalDocuments(context.Context) (int, error) {
	f.totalHits++
	return f.total, nil
}

func (f *fakeDocs) DocIDsForTerm(_ context.Context, term string) ([]string, error) {
	f.idCalls[term]++
	ids := make([]string, 0, len(f.postings[term]))
	for id := range f.postings[term] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeDocs) TermPositions(_ context.Context, term, docID string) ([]string, error) {
	return f.postings[term][docID], nil
}

func (f *fakeDocs) TermFrequency(_ context.Context, term, docID string) (int, error) {
	f.tfCalls++
	return len(f.postings[term][docID]), nil
}

func ids(scores map[string]float64) []string {
	out := make([]string, 0, len(scores))
	for id := range scores {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
