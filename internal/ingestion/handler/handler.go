// Package handler serves the indexing endpoints of the HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverton/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/logger"
)

// Enqueuer schedules files for indexing. *queue.Queue implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, path string) string
	Stats() queue.Stats
}

// DocumentCounter reports the number of indexed documents.
type DocumentCounter interface {
	TotalDocuments(ctx context.Context) (int, error)
}

type Handler struct {
	queue Enqueuer
	docs  DocumentCounter
	roots *validator.Roots
	// base outlives individual requests; queued work must not be cancelled
	// when the response is written.
	base   context.Context
	logger *slog.Logger
}

// New returns a Handler. Only paths below roots are accepted; a nil or
// empty roots rejects every index request.
func New(base context.Context, q Enqueuer, docs DocumentCounter, roots *validator.Roots) *Handler {
	return &Handler{
		queue:  q,
		docs:   docs,
		roots:  roots,
		base:   base,
		logger: slog.Default().With("component", "ingestion-handler"),
	}
}

// Index serves POST /api/v1/index.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	var req ingestion.IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIndexRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	paths := make([]string, len(req.Paths))
	denied := make(map[string]string)
	status := http.StatusForbidden
	for i, path := range req.Paths {
		abs, err := h.roots.Check(path)
		if err != nil {
			denied[fmt.Sprintf("paths[%d]", i)] = err.Error()
			if !errors.Is(err, apperrors.ErrPathNotAllowed) {
				status = apperrors.HTTPStatusCode(err)
			}
			continue
		}
		paths[i] = abs
	}
	if len(denied) > 0 {
		log.Warn("index request rejected", "paths", len(req.Paths), "denied", len(denied))
		h.writeJSON(w, status, map[string]any{
			"error":  "path not allowed",
			"fields": denied,
		})
		return
	}

	resp := ingestion.IndexResponse{
		Accepted: make([]ingestion.Accepted, 0, len(paths)),
		Status:   "queued",
	}
	for _, abs := range paths {
		docID := h.queue.Enqueue(h.base, abs)
		resp.Accepted = append(resp.Accepted, ingestion.Accepted{Path: abs, DocID: docID})
	}
	log.Info("index request queued", "paths", len(resp.Accepted))
	h.writeJSON(w, http.StatusAccepted, resp)
}

// Stats serves GET /api/v1/index/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"queue": h.queue.Stats()}
	total, err := h.docs.TotalDocuments(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Warn("total documents unavailable", "error", err)
	} else {
		body["total_documents"] = total
	}
	h.writeJSON(w, http.StatusOK, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
