package docinfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultLemmaCacheTTL = 5 * time.Minute

// Options configures a StoreService.
type Options struct {
	Language string
	// LemmaCacheSize bounds the in-process lemma cache; 0 disables it.
	LemmaCacheSize int
	// LemmaCacheTTL bounds how long a dictionary change can go unnoticed.
	// Only terms found in the store are cached.
	LemmaCacheTTL time.Duration
}

// StoreService implements Service over a store.Store.
type StoreService struct {
	st     store.Store
	lang   string
	lemmas *expirable.LRU[string, string]
	logger *slog.Logger
}

var _ Service = (*StoreService)(nil)

// New returns a StoreService reading from st.
func New(st store.Store, opts Options) (*StoreService, error) {
	if opts.Language == "" {
		opts.Language = "en"
	}
	s := &StoreService{
		st:     st,
		lang:   opts.Language,
		logger: slog.Default().With("component", "docinfo"),
	}
	if opts.LemmaCacheSize > 0 {
		ttl := opts.LemmaCacheTTL
		if ttl <= 0 {
			ttl = defaultLemmaCacheTTL
		}
		s.lemmas = expirable.NewLRU[string, string](opts.LemmaCacheSize, nil, ttl)
	}
	return s, nil
}

func (s *StoreService) TotalDocuments(ctx context.Context) (int, error) {
	v, err := s.st.Get(ctx, store.TotalDocsKey)
	if errors.Is(err, store.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", store.TotalDocsKey, err)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		s.logger.Warn("invalid document count, assuming 1", "value", v)
		return 1, nil
	}
	return n, nil
}

func (s *StoreService) DocIDsForTerm(ctx context.Context, term string) ([]string, error) {
	ids, err := s.st.SMembers(ctx, store.TermKey(term))
	if err != nil {
		return nil, fmt.Errorf("doc ids for %q: %w", term, err)
	}
	return ids, nil
}

func (s *StoreService) TermPositions(ctx context.Context, term, docID string) ([]string, error) {
	pos, err := s.st.LRange(ctx, store.PostingKey(term, docID))
	if err != nil {
		return nil, fmt.Errorf("positions for %q in %s: %w", term, docID, err)
	}
	return pos, nil
}

func (s *StoreService) TermFrequency(ctx context.Context, term, docID string) (int, error) {
	n, err := s.st.LLen(ctx, store.PostingKey(term, docID))
	if err != nil {
		return 0, fmt.Errorf("frequency of %q in %s: %w", term, docID, err)
	}
	return int(n), nil
}

// Lemmas resolves terms lowercased. Cached terms skip the store; the rest
// are fetched in one GetMany.
func (s *StoreService) Lemmas(ctx context.Context, terms []string) ([]string, error) {
	out := make([]string, len(terms))
	var (
		keys    []string
		pending []int
	)
	for i, term := range terms {
		lower := strings.ToLower(term)
		if s.lemmas != nil {
			if lemma, ok := s.lemmas.Get(lower); ok {
				out[i] = lemma
				continue
			}
		}
		keys = append(keys, store.LemmaKey(s.lang, lower))
		pending = append(pending, i)
	}
	if len(keys) == 0 {
		return out, nil
	}

	res, err := s.st.GetMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetching %d lemmas: %w", len(keys), err)
	}
	var partial *PartialError
	for j, i := range pending {
		r := res[j]
		if r.Err != nil {
			if partial == nil {
				partial = &PartialError{Failed: make(map[int]error)}
			}
			partial.Failed[i] = r.Err
			continue
		}
		out[i] = r.Value
		if r.Found && s.lemmas != nil {
			s.lemmas.Add(strings.ToLower(terms[i]), r.Value)
		}
	}
	if partial != nil {
		return out, partial
	}
	return out, nil
}

func (s *StoreService) AreStopWords(ctx context.Context, lemmas []string) ([]bool, error) {
	if len(lemmas) == 0 {
		return nil, nil
	}
	keys := make([]string, len(lemmas))
	for i, lemma := range lemmas {
		keys[i] = store.StopwordKey(s.lang, lemma)
	}
	res, err := s.st.GetMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("checking %d stopwords: %w", len(keys), err)
	}
	out := make([]bool, len(lemmas))
	var partial *PartialError
	for i, r := range res {
		if r.Err != nil {
			if partial == nil {
				partial = &PartialError{Failed: make(map[int]error)}
			}
			partial.Failed[i] = r.Err
			continue
		}
		out[i] = r.Found
	}
	if partial != nil {
		return out, partial
	}
	return out, nil
}
