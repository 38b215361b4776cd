package queue

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/metrics"
)

// MetricsListener mirrors queue progress into m.
func MetricsListener(m *metrics.Metrics) Listener {
	return func(ev Event) {
		switch ev.Kind {
		case EventProcessed:
			m.DocsIndexedTotal.Inc()
		case EventFailed:
			m.DocsFailedTotal.Inc()
		}
		s := ev.Stats
		m.QueueActive.Set(float64(s.Active))
		m.QueueBacklog.Set(float64(s.Waiting))
	}
}

// Invalidator drops cached search results.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

// InvalidateOnProcessed clears inv after every successfully indexed
// document so cached results never outlive the postings they came from.
func InvalidateOnProcessed(ctx context.Context, inv Invalidator) Listener {
	logger := slog.Default().With("component", "cache-invalidator")
	return func(ev Event) {
		if ev.Kind != EventProcessed {
			return
		}
		if _, err := inv.Invalidate(ctx); err != nil {
			logger.Warn("cache invalidation failed", "doc_id", ev.DocID, "error", err)
		}
	}
}
