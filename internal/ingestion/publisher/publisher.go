// Package publisher submits index requests to Kafka for an indexer
// consuming the index-requests topic.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/kafka"
)

// EventPublisher writes a batch of events. *kafka.Producer implements it.
type EventPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Publisher turns paths into IndexRequestEvents.
type Publisher struct {
	producer EventPublisher
	logger   *slog.Logger
}

func New(producer EventPublisher) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Submit validates req, resolves each path to an absolute one and
// publishes one event per path keyed by its document ID, so requests for
// the same file land on the same partition.
func (p *Publisher) Submit(ctx context.Context, req *ingestion.IndexRequest) (*ingestion.IndexResponse, error) {
	if err := validator.ValidateIndexRequest(req); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	events := make([]kafka.Event, 0, len(req.Paths))
	accepted := make([]ingestion.Accepted, 0, len(req.Paths))
	for _, path := range req.Paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		docID := queue.DocID(abs)
		events = append(events, kafka.Event{
			Key:   docID,
			Value: ingestion.IndexRequestEvent{Path: abs, RequestedAt: now},
		})
		accepted = append(accepted, ingestion.Accepted{Path: abs, DocID: docID})
	}
	if err := p.producer.PublishBatch(ctx, events); err != nil {
		return nil, fmt.Errorf("publishing %d index requests: %w", len(events), err)
	}
	p.logger.Info("index requests published", "count", len(events))
	return &ingestion.IndexResponse{Accepted: accepted, Status: "published"}, nil
}
