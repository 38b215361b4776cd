package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/queue"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/inverton/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/engine"
	searchhandler "github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search and indexing API",
		Long: `Serve the search and indexing API over HTTP.

Routes:
  GET  /api/v1/search?q=&mode=&limit=
  POST /api/v1/index            {"paths": [...]}
  GET  /api/v1/index/stats
  GET  /api/v1/cache/stats
  POST /api/v1/cache/invalidate
  GET  /api/v1/analytics        (kafka.enabled only)
  GET  /api/v1/documents        (postgres.enabled only)
  GET  /api/v1/documents/{id}   (postgres.enabled only)
  GET  /health/live
  GET  /health/ready

Only files below server.indexRoots can be indexed over HTTP or Kafka.
With kafka.enabled the server also consumes index requests and publishes
analytics events. With postgres.enabled it records document status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				root.cfg.Server.Port = port
			}
			return runServe(cmd.Context(), root)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override server.port")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions) error {
	cfg := root.cfg
	logger := slog.Default().With("component", "server")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openCatalog(ctx); err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown", "error", err)
			}
		}()
		a.queue.Subscribe(queue.MetricsListener(m))
	}
	if a.catalog != nil {
		a.queue.Subscribe(catalog.Listener(context.WithoutCancel(ctx), a.catalog))
	}

	roots, err := validator.NewRoots(cfg.Server.IndexRoots)
	if err != nil {
		return err
	}
	if len(roots.Dirs()) == 0 {
		logger.Warn("server.indexRoots is empty; remote index requests will be rejected")
	}

	g, gctx := errgroup.WithContext(ctx)

	var (
		engineOpts     []engine.Option
		analyticsStats *analytics.Handler
		brokerPinger   health.Pinger
	)
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		a.closers = append(a.closers, producer.Close)
		brokerPinger = producer

		collector := analytics.NewCollector(producer, cfg.Analytics, m)
		engineOpts = append(engineOpts, engine.WithObserver(collector))
		a.queue.Subscribe(collector.QueueListener())
		g.Go(func() error { return collector.Run(gctx) })

		agg := analytics.NewAggregator()
		analyticsStats = analytics.NewHandler(agg)
		eventsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, agg.Handler())
		g.Go(func() error { return eventsConsumer.Start(gctx) })

		requests := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexRequests, consumer.HandleMessage(a.queue, roots))
		g.Go(func() error { return requests.Start(gctx) })

		if a.pg != nil {
			snapshots := aggregator.NewStore(a.pg.DB)
			if err := snapshots.EnsureSchema(ctx); err != nil {
				return err
			}
			g.Go(func() error { return snapshots.Run(gctx, agg, cfg.Analytics.SnapshotInterval) })
		}
		logger.Info("kafka enabled",
			"brokers", cfg.Kafka.Brokers,
			"index_topic", cfg.Kafka.Topics.IndexRequests,
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
		)
	}

	eng := a.newEngine(m, engineOpts...)
	if eng.CacheEnabled() {
		a.queue.Subscribe(queue.InvalidateOnProcessed(context.WithoutCancel(ctx), eng))
	}

	checker := health.NewChecker()
	checker.Register("store", health.PingCheck(a.store, "store not configured"))
	var dbPinger health.Pinger
	if a.pg != nil {
		dbPinger = a.pg
	}
	checker.Register("postgres", health.OptionalPingCheck(dbPinger, "postgres disabled"))
	checker.Register("kafka", health.OptionalPingCheck(brokerPinger, "kafka disabled"))

	// Indexing outlives the request that asked for it and is drained on
	// shutdown, so tasks get a context that is never cancelled.
	ingest := ingesthandler.New(context.WithoutCancel(ctx), a.queue, a.docs, roots)
	search := searchhandler.New(eng, cfg.Search.DefaultLimit, cfg.Search.MaxResults)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", search.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", search.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", search.CacheInvalidate)
	mux.HandleFunc("POST /api/v1/index", ingest.Index)
	mux.HandleFunc("GET /api/v1/index/stats", ingest.Stats)
	if analyticsStats != nil {
		mux.HandleFunc("GET /api/v1/analytics", analyticsStats.Stats)
	}
	if a.catalog != nil {
		documents := catalog.NewHandler(a.catalog)
		mux.HandleFunc("GET /api/v1/documents", documents.List)
		mux.HandleFunc("GET /api/v1/documents/{id}", documents.Get)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit.Enabled {
		chain = middleware.RateLimit(middleware.NewLimiter(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))(chain)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	}
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		logger.Info("inverton listening",
			"addr", server.Addr,
			"store", cfg.Store.Backend,
			"cache", eng.CacheEnabled(),
			"concurrency", cfg.Indexer.Concurrency,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if werr := a.queue.Wait(drainCtx); werr != nil {
		logger.Warn("indexing queue not drained", "stats", a.queue.Stats(), "error", werr)
	}
	logger.Info("inverton stopped", "stats", a.queue.Stats())
	return err
}
