// Package handler serves the search and cache endpoints of the HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/inverton/internal/searcher/strategy"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverton/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/logger"
)

// Searcher runs queries. *engine.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, query string, opts engine.Options) ([]engine.Result, error)
	Invalidate(ctx context.Context) (int64, error)
	CacheEnabled() bool
	CacheStats() (hits, misses int64)
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Query     string          `json:"query"`
	Mode      string          `json:"mode"`
	Results   []engine.Result `json:"results"`
	Returned  int             `json:"returned"`
	LatencyMs int64           `json:"latency_ms"`
}

type Handler struct {
	searcher     Searcher
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(s Searcher, defaultLimit, maxResults int) *Handler {
	return &Handler{
		searcher:     s,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Search serves GET /api/v1/search?q=&mode=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	mode, err := strategy.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := h.parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.searcher.Search(ctx, query, engine.Options{Mode: mode, Limit: limit})
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("search execution failed", "query", query, "error", err)
			h.writeError(w, status, "search failed")
			return
		}
		h.writeError(w, status, err.Error())
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	log.Info("search completed",
		"query", query,
		"mode", mode.String(),
		"returned", len(results),
		"latency_ms", latencyMs,
	)
	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:     query,
		Mode:      mode.String(),
		Results:   results,
		Returned:  len(results),
		LatencyMs: latencyMs,
	})
}

// parseLimit applies the default when raw is empty and caps at maxResults.
// An explicit 0 means every match, still capped when maxResults is set.
func (h *Handler) parseLimit(raw string) (int, error) {
	limit := h.defaultLimit
	if raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return 0, fmt.Errorf("limit must be a non-negative integer")
		}
		limit = parsed
	}
	if h.maxResults > 0 && (limit == 0 || limit > h.maxResults) {
		limit = h.maxResults
	}
	return limit, nil
}

// CacheStats serves GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if !h.searcher.CacheEnabled() {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.searcher.CacheStats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate serves POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if !h.searcher.CacheEnabled() {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.searcher.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
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
