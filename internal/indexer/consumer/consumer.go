// Package consumer reads index requests from Kafka and feeds them to the
// indexing queue.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/kafka"
)

// Enqueuer schedules a file for indexing. *queue.Queue implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, path string) string
}

// HandleMessage returns a Kafka MessageHandler that enqueues the path of
// every IndexRequestEvent below roots. Malformed messages and paths outside
// roots are permanent failures so the consumer commits past them.
func HandleMessage(q Enqueuer, roots *validator.Roots) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IndexRequestEvent](value)
		if err != nil {
			return kafka.Permanent(err)
		}
		if msg := validator.ValidatePath(event.Path); msg != "" {
			return kafka.Permanent(fmt.Errorf("index request %q: %s", string(key), msg))
		}
		path, err := roots.Check(event.Path)
		if err != nil {
			return kafka.Permanent(fmt.Errorf("index request %q: %w", string(key), err))
		}
		docID := q.Enqueue(ctx, path)
		logger.Debug("index request queued",
			"path", path,
			"doc_id", docID,
			"requested_at", event.RequestedAt,
		)
		return nil
	}
}
