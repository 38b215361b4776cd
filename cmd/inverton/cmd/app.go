package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/docinfo"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/normalizer"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/store"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/inverton/pkg/redis"
)

// app holds the components every command builds on. Optional pieces stay
// nil when their section is disabled.
type app struct {
	cfg     *config.Config
	store   store.Store
	docs    *docinfo.StoreService
	norm    *normalizer.Normalizer
	indexer *indexer.Service
	queue   *queue.Queue

	pg      *postgres.Client
	catalog *catalog.Catalog

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	docs, err := docinfo.New(st, docinfo.Options{
		Language:       cfg.Indexer.Language,
		LemmaCacheSize: cfg.Indexer.LemmaCacheSize,
		LemmaCacheTTL:  cfg.Indexer.LemmaCacheTTL,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.docs = docs
	a.norm = normalizer.New(docs)
	a.indexer = indexer.NewService(st, a.norm, cfg.Indexer)
	a.queue = queue.New(a.indexer, cfg.Indexer.Concurrency)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		slog.Warn("using in-memory store; the index is lost on exit")
		return store.NewMemory(), nil
	default:
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		slog.Info("redis store connected", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
		return client, nil
	}
}

// openCatalog connects the optional Postgres document catalog.
func (a *app) openCatalog(ctx context.Context) error {
	if !a.cfg.Postgres.Enabled {
		return nil
	}
	pg, err := postgres.New(ctx, a.cfg.Postgres)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, pg.Close)
	cat := catalog.New(pg.DB)
	if err := cat.EnsureSchema(ctx); err != nil {
		return err
	}
	a.pg = pg
	a.catalog = cat
	slog.Info("document catalog enabled", "host", a.cfg.Postgres.Host, "database", a.cfg.Postgres.Database)
	return nil
}

// newEngine wires a search engine over the app's store. m may be nil.
func (a *app) newEngine(m *metrics.Metrics, extra ...engine.Option) *engine.Engine {
	var opts []engine.Option
	if a.cfg.Search.CacheEnabled {
		opts = append(opts, engine.WithCache(cache.New[[]engine.Result](a.store, a.cfg.Search.CacheTTL, m)))
	}
	if m != nil {
		opts = append(opts, engine.WithMetrics(m))
	}
	opts = append(opts, extra...)
	return engine.New(a.store, a.docs, a.norm, opts...)
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("closing resources", "error", err)
	}
}
