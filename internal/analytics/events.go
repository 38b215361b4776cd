// Package analytics publishes search and indexing events to Kafka and
// aggregates them back into running statistics.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventSearch      EventType = "search"
	EventZeroResult  EventType = "zero_result"
	EventSearchError EventType = "search_error"
	EventIndexDoc    EventType = "index_document"
	EventIndexFailed EventType = "index_failed"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Mode      string    `json:"mode"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type IndexEvent struct {
	Type       EventType `json:"type"`
	DocumentID string    `json:"document_id"`
	Path       string    `json:"path"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// decode returns a *SearchEvent or *IndexEvent depending on the type field.
func decode(value []byte) (any, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(value, &head); err != nil {
		return nil, fmt.Errorf("decoding analytics event: %w", err)
	}
	switch head.Type {
	case EventSearch, EventZeroResult, EventSearchError:
		var ev SearchEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			return nil, fmt.Errorf("decoding search event: %w", err)
		}
		return &ev, nil
	case EventIndexDoc, EventIndexFailed:
		var ev IndexEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			return nil, fmt.Errorf("decoding index event: %w", err)
		}
		return &ev, nil
	}
	return nil, fmt.Errorf("unknown analytics event type %q", head.Type)
}
