package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/resilience"
)

const breakerName = "analytics-kafka"

// Publisher writes a batch of events. *kafka.Producer implements it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers analytics events and publishes them in batches, either
// when BatchSize events are buffered or every FlushInterval. Publishing goes
// through a circuit breaker so an unavailable broker costs one rejected
// call per flush instead of a network timeout.
type Collector struct {
	publisher Publisher
	breaker   *resilience.CircuitBreaker
	metrics   *metrics.Metrics

	mu            sync.Mutex
	buffer        []kafka.Event
	batchSize     int
	flushInterval time.Duration
	flushCh       chan struct{}

	logger *slog.Logger
}

// NewCollector returns a Collector publishing through p. m may be nil.
func NewCollector(p Publisher, cfg config.AnalyticsConfig, m *metrics.Metrics) *Collector {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	return &Collector{
		publisher:     p,
		breaker:       resilience.NewCircuitBreaker(breakerName, resilience.BreakerConfig{}),
		metrics:       m,
		buffer:        make([]kafka.Event, 0, cfg.BatchSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		flushCh:       make(chan struct{}, 1),
		logger:        slog.Default().With("component", "analytics-collector"),
	}
}

// Run flushes until ctx is done, then makes a final flush with a short
// deadline.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()
	c.logger.Info("analytics collector started",
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
	for {
		select {
		case <-ticker.C:
			c.Flush(ctx)
		case <-c.flushCh:
			c.Flush(ctx)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			c.Flush(flushCtx)
			cancel()
			return nil
		}
	}
}

// Track buffers one event. A full batch wakes the flush loop.
func (c *Collector) Track(key string, value any) {
	c.mu.Lock()
	c.buffer = append(c.buffer, kafka.Event{Key: key, Value: value})
	full := len(c.buffer) >= c.batchSize
	c.mu.Unlock()

	if full {
		select {
		case c.flushCh <- struct{}{}:
		default:
		}
	}
}

// BufferLen returns the number of buffered events.
func (c *Collector) BufferLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// Flush publishes everything buffered. On failure the batch is put back,
// keeping at most three batches.
func (c *Collector) Flush(ctx context.Context) {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]kafka.Event, 0, c.batchSize)
	c.mu.Unlock()

	err := c.breaker.Execute(func() error {
		return c.publisher.PublishBatch(ctx, batch)
	})
	if c.metrics != nil {
		c.metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(float64(c.breaker.State()))
	}
	if err != nil {
		c.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
		c.mu.Lock()
		c.buffer = append(batch, c.buffer...)
		if limit := c.batchSize * 3; len(c.buffer) > limit {
			dropped := len(c.buffer) - limit
			c.buffer = c.buffer[:limit]
			c.logger.Warn("buffer overflow, events dropped", "dropped", dropped)
		}
		c.mu.Unlock()
		return
	}
	c.logger.Debug("batch flushed", "events", len(batch))
}

// ObserveSearch implements engine.Observer.
func (c *Collector) ObserveSearch(ctx context.Context, obs engine.Observation) {
	ev := SearchEvent{
		Type:      EventSearch,
		Query:     obs.Query,
		Mode:      obs.Mode.String(),
		Returned:  obs.Returned,
		LatencyMs: obs.Latency.Milliseconds(),
		CacheHit:  obs.CacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	}
	switch {
	case obs.Err != nil:
		ev.Type = EventSearchError
		ev.Error = obs.Err.Error()
	case obs.Returned == 0:
		ev.Type = EventZeroResult
	}
	c.Track(obs.Mode.String(), ev)
}

// QueueListener publishes an IndexEvent for every finished document.
func (c *Collector) QueueListener() queue.Listener {
	return func(ev queue.Event) {
		var out IndexEvent
		switch ev.Kind {
		case queue.EventProcessed:
			out = IndexEvent{Type: EventIndexDoc, DocumentID: ev.DocID, Path: ev.Path}
		case queue.EventFailed:
			out = IndexEvent{Type: EventIndexFailed, DocumentID: ev.DocID, Path: ev.Path}
			if ev.Err != nil {
				out.Error = ev.Err.Error()
			}
		default:
			return
		}
		out.Timestamp = time.Now().UTC()
		c.Track(ev.DocID, out)
	}
}
