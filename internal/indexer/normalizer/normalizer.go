// Package normalizer maps surface terms to dictionary lemmas and drops
// stopwords. Lookups are batched per call so one chunk costs one round trip
// per dictionary.
package normalizer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/docinfo"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/tokenizer"
)

// NormalizedToken is a Token with its resolved lemma.
type NormalizedToken struct {
	tokenizer.Token
	Lemma string
}

// Normalizer resolves lemmas and stopwords through a docinfo.Service.
type Normalizer struct {
	docs   docinfo.Service
	logger *slog.Logger
}

func New(docs docinfo.Service) *Normalizer {
	return &Normalizer{
		docs:   docs,
		logger: slog.Default().With("component", "normalizer"),
	}
}

// Normalize lemmatizes terms. In free mode stopwords are removed and the
// remaining lemmas keep their order, duplicates included. In boolean mode
// nothing is removed: terms become lemmas, operators are uppercased and
// parentheses pass through.
//
// Lookup failures fall back to the lowercased term and "not a stopword";
// the only error returned is a done context.
func (n *Normalizer) Normalize(ctx context.Context, terms []string, boolean bool) ([]string, error) {
	if boolean {
		return n.normalizeBoolean(ctx, terms)
	}
	lemmas := n.lemmas(ctx, terms)
	stop := n.stopwords(ctx, lemmas)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(lemmas))
	for i, lemma := range lemmas {
		if !stop[i] {
			out = append(out, lemma)
		}
	}
	return out, nil
}

func (n *Normalizer) normalizeBoolean(ctx context.Context, lexemes []string) ([]string, error) {
	var terms []string
	for _, lx := range lexemes {
		if !tokenizer.IsParen(lx) && !tokenizer.IsOperator(lx) {
			terms = append(terms, lx)
		}
	}
	lemmas := n.lemmas(ctx, terms)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(lexemes))
	next := 0
	for _, lx := range lexemes {
		switch {
		case tokenizer.IsParen(lx):
			out = append(out, lx)
		case tokenizer.IsOperator(lx):
			out = append(out, strings.ToUpper(lx))
		default:
			out = append(out, lemmas[next])
			next++
		}
	}
	return out, nil
}

// NormalizeTokens resolves a batch of document tokens, dropping stopwords.
func (n *Normalizer) NormalizeTokens(ctx context.Context, tokens []tokenizer.Token) ([]NormalizedToken, error) {
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	lemmas := n.lemmas(ctx, terms)
	stop := n.stopwords(ctx, lemmas)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]NormalizedToken, 0, len(tokens))
	for i, tok := range tokens {
		if stop[i] {
			continue
		}
		out = append(out, NormalizedToken{Token: tok, Lemma: lemmas[i]})
	}
	return out, nil
}

func (n *Normalizer) lemmas(ctx context.Context, terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	found, err := n.docs.Lemmas(ctx, terms)
	n.logLookupError("lemma", terms, err)
	out := make([]string, len(terms))
	for i, term := range terms {
		if i < len(found) && found[i] != "" {
			out[i] = found[i]
			continue
		}
		out[i] = strings.ToLower(term)
	}
	return out
}

func (n *Normalizer) stopwords(ctx context.Context, lemmas []string) []bool {
	out := make([]bool, len(lemmas))
	if len(lemmas) == 0 {
		return out
	}
	found, err := n.docs.AreStopWords(ctx, lemmas)
	n.logLookupError("stopword", lemmas, err)
	copy(out, found)
	return out
}

func (n *Normalizer) logLookupError(kind string, keys []string, err error) {
	if err == nil {
		return
	}
	var partial *docinfo.PartialError
	if errors.As(err, &partial) {
		for i, entryErr := range partial.Failed {
			if i < len(keys) {
				n.logger.Warn("lookup failed, using fallback", "kind", kind, "term", keys[i], "error", entryErr)
			}
		}
		return
	}
	n.logger.Warn("batch lookup failed, using fallbacks", "kind", kind, "count", len(keys), "error", err)
}
