// Package ingestion defines the request/response types and Kafka event
// schema used to submit files for indexing.
package ingestion

import "time"

// IndexRequest is the JSON body accepted by POST /api/v1/index.
type IndexRequest struct {
	Paths []string `json:"paths"`
}

// Accepted pairs a submitted path with its document ID.
type Accepted struct {
	Path  string `json:"path"`
	DocID string `json:"doc_id"`
}

// IndexResponse is returned once every path has been queued.
type IndexResponse struct {
	Accepted []Accepted `json:"accepted"`
	Status   string     `json:"status"`
}

// IndexRequestEvent is the Kafka message asking an indexer to (re)index a
// file.
type IndexRequestEvent struct {
	Path        string    `json:"path"`
	RequestedAt time.Time `json:"requested_at"`
}
