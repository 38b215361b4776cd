// Package engine answers search queries: it tokenizes and normalizes the
// query, dispatches to the strategy for the requested mode, ranks the
// scored documents and resolves their paths.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/docinfo"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/strategy"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/tracing"
)

// UnknownPath is reported for documents whose path is not registered.
const UnknownPath = "Unknown"

// Options controls a single search. A Limit of 0 returns every match.
type Options struct {
	Mode  strategy.Mode
	Limit int
}

// Result is one ranked document.
type Result struct {
	DocID string  `json:"doc_id"`
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// Observation describes a finished search for an Observer.
type Observation struct {
	Query    string
	Mode     strategy.Mode
	Returned int
	CacheHit bool
	Latency  time.Duration
	Err      error
}

// Observer is notified after every search.
type Observer interface {
	ObserveSearch(ctx context.Context, obs Observation)
}

// Engine runs queries against the index held in a store.
type Engine struct {
	st       store.Store
	docs     docinfo.Service
	norm     *normalizer.Normalizer
	cache    *cache.QueryCache[[]Result]
	metrics  *metrics.Metrics
	observer Observer
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache serves repeated queries from c.
func WithCache(c *cache.QueryCache[[]Result]) Option {
	return func(e *Engine) { e.cache = c }
}

// WithMetrics records search latency, result counts and outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithObserver reports every search to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New returns an Engine reading postings through docs and paths from st.
func New(st store.Store, docs docinfo.Service, norm *normalizer.Normalizer, opts ...Option) *Engine {
	e := &Engine{
		st:     st,
		docs:   docs,
		norm:   norm,
		logger: slog.Default().With("component", "search-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns documents matching query ordered by descending score.
// Equal scores are ordered by docID.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "search")
	span.SetAttr("mode", opts.Mode.String())
	var (
		results []Result
		hit     bool
		err     error
	)
	if e.cache != nil {
		key := cache.Key{Mode: opts.Mode.String(), Query: query, Limit: opts.Limit}
		results, hit, err = e.cache.GetOrCompute(ctx, key, func() ([]Result, error) {
			return e.search(ctx, query, opts)
		})
	} else {
		results, err = e.search(ctx, query, opts)
	}
	latency := time.Since(start)
	span.SetAttr("cache_hit", hit)
	span.End()
	span.Log(ctx, e.logger, slog.LevelDebug)
	e.record(ctx, Observation{
		Query:    query,
		Mode:     opts.Mode,
		Returned: len(results),
		CacheHit: hit,
		Latency:  latency,
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Invalidate drops all cached results. It is a no-op without a cache.
func (e *Engine) Invalidate(ctx context.Context) (int64, error) {
	if e.cache == nil {
		return 0, nil
	}
	return e.cache.Invalidate(ctx)
}

// CacheEnabled reports whether results are cached.
func (e *Engine) CacheEnabled() bool { return e.cache != nil }

// CacheStats returns cache hit and miss counts.
func (e *Engine) CacheStats() (hits, misses int64) {
	if e.cache == nil {
		return 0, 0
	}
	return e.cache.Stats()
}

func (e *Engine) search(ctx context.Context, query string, opts Options) ([]Result, error) {
	boolean := opts.Mode == strategy.ModeBoolean
	_, span := tracing.Start(ctx, "tokenize")
	var terms []string
	if boolean {
		lexemes, err := tokenizer.Lexemes(query)
		span.End()
		if err != nil {
			return nil, err
		}
		terms = lexemes
	} else {
		terms = tokenizer.Tokenize(query)
		span.End()
	}

	_, span = tracing.Start(ctx, "normalize")
	normalized, err := e.norm.Normalize(ctx, terms, boolean)
	span.End()
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return []Result{}, nil
	}

	strat, err := strategy.For(opts.Mode)
	if err != nil {
		return nil, err
	}
	_, span = tracing.Start(ctx, "score")
	scores, err := strat.Score(ctx, normalized, e.docs)
	span.SetAttr("matched", len(scores))
	span.End()
	if err != nil {
		return nil, err
	}

	results := rank(scores, opts.Limit)
	_, span = tracing.Start(ctx, "resolve_paths")
	err = e.resolvePaths(ctx, results)
	span.End()
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) resolvePaths(ctx context.Context, results []Result) error {
	if len(results) == 0 {
		return nil
	}
	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = store.DocPathKey(r.DocID)
	}
	lookups, err := e.st.GetMany(ctx, keys)
	if err != nil {
		return err
	}
	for i := range results {
		results[i].Path = UnknownPath
		if i < len(lookups) && lookups[i].Found {
			results[i].Path = lookups[i].Value
		}
	}
	return nil
}

func (e *Engine) record(ctx context.Context, obs Observation) {
	log := e.logger
	if id := logger.RequestID(ctx); id != "" {
		log = log.With("request_id", id)
	}
	if obs.Err != nil {
		log.Warn("search failed", "query", obs.Query, "mode", obs.Mode.String(), "error", obs.Err)
	} else {
		log.Debug("search completed",
			"query", obs.Query,
			"mode", obs.Mode.String(),
			"returned", obs.Returned,
			"cache_hit", obs.CacheHit,
			"latency_ms", obs.Latency.Milliseconds(),
		)
	}
	if e.metrics != nil {
		e.metrics.SearchLatency.WithLabelValues(obs.Mode.String()).Observe(obs.Latency.Seconds())
		e.metrics.SearchQueriesTotal.WithLabelValues(resultType(obs)).Inc()
		if obs.Err == nil {
			e.metrics.SearchResultsCount.Observe(float64(obs.Returned))
		}
	}
	if e.observer != nil {
		e.observer.ObserveSearch(ctx, obs)
	}
}

func resultType(obs Observation) string {
	switch {
	case obs.Err != nil:
		return metrics.ResultError
	case obs.Returned == 0:
		return metrics.ResultZeroResult
	case obs.CacheHit:
		return metrics.ResultHit
	default:
		return metrics.ResultMiss
	}
}
