// Package index writes postings for normalized tokens into the store.
package index

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
)

// Writer accumulates the postings of one document and flushes them as a
// single pipelined batch once BatchSize tokens are buffered. Call Finish
// after the last token. A Writer is not safe for concurrent use.
type Writer struct {
	st        store.Store
	docID     string
	batchSize int

	ops     []store.Op
	tokens  int
	lemmas  map[string]struct{}
	written int
	flushes int
}

// NewWriter returns a Writer for docID. batchSize below one means one.
func NewWriter(st store.Store, docID string, batchSize int) *Writer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Writer{
		st:        st,
		docID:     docID,
		batchSize: batchSize,
		lemmas:    make(map[string]struct{}),
	}
}

// Add buffers tok, flushing when the batch is full.
func (w *Writer) Add(ctx context.Context, tok normalizer.NormalizedToken) error {
	if _, seen := w.lemmas[tok.Lemma]; !seen {
		w.lemmas[tok.Lemma] = struct{}{}
		w.ops = append(w.ops,
			store.Op{Kind: store.OpSAdd, Key: store.TermKey(tok.Lemma), Value: w.docID},
			store.Op{Kind: store.OpSAdd, Key: store.DocTermsKey(w.docID), Value: tok.Lemma},
		)
	}
	pos := Position{Line: tok.Line, Word: tok.Position, Length: tok.Length}
	w.ops = append(w.ops, store.Op{Kind: store.OpRPush, Key: store.PostingKey(tok.Lemma, w.docID), Value: pos.String()})
	w.tokens++
	if w.tokens >= w.batchSize {
		return w.flush(ctx)
	}
	return nil
}

// Finish flushes whatever is buffered.
func (w *Writer) Finish(ctx context.Context) error {
	return w.flush(ctx)
}

// Written returns the number of tokens flushed so far.
func (w *Writer) Written() int { return w.written }

// Flushes returns the number of store round trips made.
func (w *Writer) Flushes() int { return w.flushes }

func (w *Writer) flush(ctx context.Context) error {
	if w.tokens == 0 {
		return nil
	}
	if err := w.st.Exec(ctx, w.ops); err != nil {
		return fmt.Errorf("flushing %d postings for %s: %w", w.tokens, w.docID, err)
	}
	w.written += w.tokens
	w.flushes++
	w.tokens = 0
	w.ops = w.ops[:0]
	clear(w.lemmas)
	return nil
}

// Purge removes every posting previously written for docID.
func Purge(ctx context.Context, st store.Store, docID string) (int, error) {
	lemmas, err := st.SMembers(ctx, store.DocTermsKey(docID))
	if err != nil {
		return 0, fmt.Errorf("listing terms of %s: %w", docID, err)
	}
	if len(lemmas) == 0 {
		return 0, nil
	}
	ops := make([]store.Op, 0, 2*len(lemmas)+1)
	for _, lemma := range lemmas {
		ops = append(ops,
			store.Op{Kind: store.OpSRem, Key: store.TermKey(lemma), Value: docID},
			store.Op{Kind: store.OpDel, Key: store.PostingKey(lemma, docID)},
		)
	}
	ops = append(ops, store.Op{Kind: store.OpDel, Key: store.DocTermsKey(docID)})
	if err := st.Exec(ctx, ops); err != nil {
		return 0, fmt.Errorf("purging %s: %w", docID, err)
	}
	return len(lemmas), nil
}
