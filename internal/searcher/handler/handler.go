// Package handler serves the searcher HTTP API.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/logger"
)

// Searcher is the query side of *executor.Executor.
type Searcher interface {
	Exact(query string) []executor.ExactHit
	Fuzzy(query string, maxDistance int) []executor.FuzzyHit
	Substring(query string) []executor.SubstringHit
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Query     string `json:"query"`
	Mode      string `json:"mode"`
	Distance  *int   `json:"distance,omitempty"`
	Total     int    `json:"total"`
	Truncated bool   `json:"truncated"`
	Hits      any    `json:"hits"`
}

type Handler struct {
	searcher Searcher
	cache    *cache.QueryCache
	cfg      config.SearchConfig
	logger   *slog.Logger
}

// New returns a handler; queryCache may be nil.
func New(s Searcher, queryCache *cache.QueryCache, cfg config.SearchConfig) *Handler {
	return &Handler{
		searcher: s,
		cache:    queryCache,
		cfg:      cfg,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search?q=&mode=exact|fuzzy|substring&distance=.
// Exact and fuzzy queries are normalized like indexed tokens; substring
// queries are matched verbatim against the document text.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	params := r.URL.Query()
	raw := params.Get("q")
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	mode := params.Get("mode")
	if mode == "" {
		mode = executor.ModeExact
	}
	query := raw
	distance := 0
	switch mode {
	case executor.ModeExact:
		query = tokenizer.Normalize(raw)
	case executor.ModeFuzzy:
		query = tokenizer.Normalize(raw)
		distance = h.cfg.DefaultDistance
		if s := params.Get("distance"); s != "" {
			d, err := strconv.Atoi(s)
			if err != nil || d < 0 {
				h.writeError(w, http.StatusBadRequest, "distance must be a non-negative integer")
				return
			}
			distance = d
		}
		if distance > h.cfg.MaxDistance {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("distance must not exceed %d", h.cfg.MaxDistance))
			return
		}
	case executor.ModeSubstring:
	default:
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", mode))
		return
	}

	compute := func() ([]byte, error) {
		return json.Marshal(h.execute(mode, query, distance))
	}

	var (
		body     []byte
		err      error
		cacheHit bool
	)
	if h.cache != nil {
		body, cacheHit, err = h.cache.GetOrCompute(ctx, mode, query, distance, compute)
	} else {
		body, err = compute()
	}
	if err != nil {
		log.Error("search failed", "query", query, "mode", mode, "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	log.Info("search completed",
		"query", query,
		"mode", mode,
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) execute(mode, query string, distance int) SearchResponse {
	resp := SearchResponse{Query: query, Mode: mode}
	switch mode {
	case executor.ModeExact:
		hits := []executor.ExactHit{}
		if query != "" {
			hits = h.searcher.Exact(query)
		}
		resp.Total = len(hits)
		resp.Hits, resp.Truncated = limit(hits, h.cfg.MaxResults)
	case executor.ModeFuzzy:
		resp.Distance = &distance
		hits := []executor.FuzzyHit{}
		if query != "" {
			hits = h.searcher.Fuzzy(query, distance)
		}
		resp.Total = len(hits)
		resp.Hits, resp.Truncated = limit(hits, h.cfg.MaxResults)
	case executor.ModeSubstring:
		hits := h.searcher.Substring(query)
		resp.Total = len(hits)
		resp.Hits, resp.Truncated = limit(hits, h.cfg.MaxResults)
	}
	return resp
}

func limit[T any](hits []T, max int) ([]T, bool) {
	if max > 0 && len(hits) > max {
		return hits[:max], true
	}
	return hits, false
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
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

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
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
