// Package queue schedules file indexing on a bounded worker pool and
// reports progress to subscribers.
package queue

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/async"
)

// Indexer indexes a single file.
type Indexer interface {
	IndexFile(ctx context.Context, path, docID string) error
}

// Stats is a snapshot of the queue counters.
type Stats struct {
	Total     int64 `json:"total"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Active    int64 `json:"active"`
	// Waiting counts files queued behind the concurrency limit.
	Waiting int64 `json:"waiting"`
}

// EventKind distinguishes queue notifications.
type EventKind int

const (
	// EventStats follows every counter change.
	EventStats EventKind = iota
	// EventQueued is sent once per Enqueue, before the task is scheduled.
	EventQueued
	EventProcessed
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStats:
		return "stats"
	case EventQueued:
		return "queued"
	case EventProcessed:
		return "processed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners. Path and DocID are empty for
// EventStats; Err is set only for EventFailed.
type Event struct {
	Kind  EventKind
	Stats Stats
	Path  string
	DocID string
	Err   error
}

// Listener receives events. It may be called from several goroutines at
// once and must not block for long.
type Listener func(Event)

// Queue is an indexing queue backed by an async.Queue.
type Queue struct {
	indexer Indexer
	tasks   *async.Queue
	logger  *slog.Logger

	total     atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	active    atomic.Int64

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// New returns a Queue running at most concurrency files at once.
func New(indexer Indexer, concurrency int) *Queue {
	return &Queue{
		indexer:   indexer,
		tasks:     async.New(concurrency),
		logger:    slog.Default().With("component", "indexing-queue"),
		listeners: make(map[int]Listener),
	}
}

// DocID derives the stable document ID of path.
func DocID(path string) string {
	sum := md5.Sum([]byte(path))
	return hex.EncodeToString(sum[:])
}

// Enqueue schedules path for indexing and returns its document ID. ctx is
// passed to the indexer when the task runs.
func (q *Queue) Enqueue(ctx context.Context, path string) string {
	docID := DocID(path)
	q.total.Add(1)
	q.emit(Event{Kind: EventQueued, Stats: q.Stats(), Path: path, DocID: docID})
	q.emitStats()

	q.tasks.AddTasks(func() error {
		q.active.Add(1)
		q.emitStats()
		defer func() {
			q.active.Add(-1)
			q.emitStats()
		}()

		if err := q.indexer.IndexFile(ctx, path, docID); err != nil {
			q.failed.Add(1)
			q.logger.Warn("indexing failed", "path", path, "doc_id", docID, "error", err)
			q.emit(Event{Kind: EventFailed, Stats: q.Stats(), Path: path, DocID: docID, Err: err})
			return nil
		}
		q.processed.Add(1)
		q.emit(Event{Kind: EventProcessed, Stats: q.Stats(), Path: path, DocID: docID})
		return nil
	})
	return docID
}

// Stats returns the current counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Total:     q.total.Load(),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Active:    q.active.Load(),
		Waiting:   int64(q.tasks.Pending()),
	}
}

// Subscribe registers l and returns a function removing it.
func (q *Queue) Subscribe(l Listener) (unsubscribe func()) {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	q.listeners[id] = l
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.listeners, id)
			q.mu.Unlock()
		})
	}
}

// Wait blocks until every enqueued file has been handled or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	return q.tasks.Wait(ctx)
}

func (q *Queue) emitStats() {
	q.emit(Event{Kind: EventStats, Stats: q.Stats()})
}

func (q *Queue) emit(ev Event) {
	q.mu.RLock()
	listeners := make([]Listener, 0, len(q.listeners))
	for _, l := range q.listeners {
		listeners = append(listeners, l)
	}
	q.mu.RUnlock()
	for _, l := range listeners {
		l(ev)
	}
}
