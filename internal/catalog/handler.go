package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/inverton/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// Reader looks documents up. *Catalog implements it.
type Reader interface {
	Get(ctx context.Context, docID string) (*Document, error)
	List(ctx context.Context, status Status, limit int) ([]Document, error)
}

// Handler serves the document catalog endpoints.
type Handler struct {
	catalog Reader
	logger  *slog.Logger
}

func NewHandler(r Reader) *Handler {
	return &Handler{
		catalog: r,
		logger:  slog.Default().With("component", "catalog-handler"),
	}
}

// Get serves GET /api/v1/documents/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

// List serves GET /api/v1/documents?status=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status, err := ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeErr(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}
	docs, err := h.catalog.List(r.Context(), status, limit)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if docs == nil {
		docs = []Document{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

// ParseStatus maps a case-insensitive status name to a Status. The empty
// string matches every status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case "", StatusPending, StatusIndexed, StatusFailed:
		return st, nil
	}
	return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown status %q", s)
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("catalog request failed", "path", r.URL.Path, "error", err)
		msg = "catalog unavailable"
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}
