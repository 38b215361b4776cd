// Package catalog records every document the indexer has seen, with its
// path and indexing status, in PostgreSQL.
//
// The table is created on startup:
//
//	CREATE TABLE documents (
//	    id         TEXT PRIMARY KEY,
//	    path       TEXT NOT NULL,
//	    status     TEXT NOT NULL,
//	    error      TEXT,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    indexed_at TIMESTAMPTZ
//	);
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/queue"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverton/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/resilience"
)

// Status is the indexing state of a document.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusIndexed Status = "INDEXED"
	StatusFailed  Status = "FAILED"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	status     TEXT NOT NULL,
	error      TEXT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	indexed_at TIMESTAMPTZ
)`

const upsert = `INSERT INTO documents (id, path, status, error, updated_at, indexed_at)
VALUES ($1, $2, $3, $4, NOW(), CASE WHEN $3 = 'INDEXED' THEN NOW() END)
ON CONFLICT (id) DO UPDATE SET
	path = EXCLUDED.path,
	status = EXCLUDED.status,
	error = EXCLUDED.error,
	updated_at = NOW(),
	indexed_at = COALESCE(EXCLUDED.indexed_at, documents.indexed_at)`

// Document is one catalog row.
type Document struct {
	ID        string     `json:"id"`
	Path      string     `json:"path"`
	Status    Status     `json:"status"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
	IndexedAt *time.Time `json:"indexed_at,omitempty"`
}

// Catalog reads and writes the documents table.
type Catalog struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB) *Catalog {
	return &Catalog{
		db:     db,
		logger: slog.Default().With("component", "catalog"),
	}
}

// EnsureSchema creates the documents table if it does not exist.
func (c *Catalog) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

// SetStatus upserts the row for docID. errMsg is stored only for failures.
func (c *Catalog) SetStatus(ctx context.Context, docID, path string, status Status, errMsg string) error {
	var errCol sql.NullString
	if status == StatusFailed && errMsg != "" {
		errCol = sql.NullString{String: errMsg, Valid: true}
	}
	if _, err := c.db.ExecContext(ctx, upsert, docID, path, string(status), errCol); err != nil {
		return fmt.Errorf("setting status of %s to %s: %w", docID, status, err)
	}
	return nil
}

// Get returns the row for docID.
func (c *Catalog) Get(ctx context.Context, docID string) (*Document, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, path, status, error, updated_at, indexed_at FROM documents WHERE id = $1`, docID)
	doc, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.ErrDocumentNotFound, 404, "document %s not in catalog", docID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", docID, err)
	}
	return doc, nil
}

// List returns up to limit documents with the given status, most recently
// updated first. An empty status lists every document.
func (c *Catalog) List(ctx context.Context, status Status, limit int) ([]Document, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, path, status, error, updated_at, indexed_at FROM documents
		WHERE $1 = '' OR status = $1
		ORDER BY updated_at DESC
		LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Counts returns the number of documents per status.
func (c *Catalog) Counts(ctx context.Context) (map[Status]int64, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*Document, error) {
	var (
		doc       Document
		status    string
		errCol    sql.NullString
		indexedAt sql.NullTime
	)
	if err := s.Scan(&doc.ID, &doc.Path, &status, &errCol, &doc.UpdatedAt, &indexedAt); err != nil {
		return nil, err
	}
	doc.Status = Status(status)
	doc.Error = errCol.String
	if indexedAt.Valid {
		doc.IndexedAt = &indexedAt.Time
	}
	return &doc, nil
}

// StatusWriter records document status changes.
type StatusWriter interface {
	SetStatus(ctx context.Context, docID, path string, status Status, errMsg string) error
}

// statusWriteTimeout bounds each status write; listeners run on the
// indexing workers.
const statusWriteTimeout = 5 * time.Second

// Listener writes PENDING on enqueue and INDEXED or FAILED when the
// document is done. Write failures are logged.
func Listener(ctx context.Context, w StatusWriter) queue.Listener {
	logger := slog.Default().With("component", "catalog")
	return func(ev queue.Event) {
		var (
			status Status
			errMsg string
		)
		switch ev.Kind {
		case queue.EventQueued:
			status = StatusPending
		case queue.EventProcessed:
			status = StatusIndexed
		case queue.EventFailed:
			status = StatusFailed
			if ev.Err != nil {
				errMsg = ev.Err.Error()
			}
		default:
			return
		}
		err := resilience.WithTimeout(ctx, statusWriteTimeout, "catalog-status", func(ctx context.Context) error {
			return w.SetStatus(ctx, ev.DocID, ev.Path, status, errMsg)
		})
		if err != nil {
			logger.Error("failed to update document status",
				"doc_id", ev.DocID,
				"status", status,
				"error", err,
			)
		}
	}
}
