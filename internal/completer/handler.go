package completer

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/completion"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/internal/events"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/metrics"
)

// Catalog lists persisted indexes. *catalog.Store satisfies it.
type Catalog interface {
	List(ctx context.Context, limit int) ([]catalog.Entry, error)
}

// CompleteResponse is the body of a completion query.
type CompleteResponse struct {
	Table     string            `json:"table"`
	Prefix    string            `json:"prefix"`
	Kind      string            `json:"kind"`
	Mode      string            `json:"mode"`
	Items     []completion.Item `json:"items"`
	Count     int               `json:"count"`
	LatencyMs int64             `json:"latency_ms"`
}

type Handler struct {
	loader       *Loader
	catalog      Catalog
	reindex      events.Publisher
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

type HandlerOption func(*Handler)

func WithCatalog(c Catalog) HandlerOption {
	return func(h *Handler) {
		h.catalog = c
	}
}

// WithReindexPublisher enables POST /api/v1/reindex.
func WithReindexPublisher(p events.Publisher) HandlerOption {
	return func(h *Handler) {
		h.reindex = p
	}
}

func WithHandlerMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

func NewHandler(loader *Loader, defaultLimit, maxResults int, opts ...HandlerOption) *Handler {
	h := &Handler{
		loader:       loader,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "complete-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Complete answers GET /api/v1/complete?table=&prefix=&mode=&limit=.
// mode is one of no_brackets (default), two_brackets, start_bracket or auto,
// which picks the mode from the prefix.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	q := r.URL.Query()

	tableName := q.Get("table")
	prefix := q.Get("prefix")

	mode := completion.NoBrackets
	switch m := q.Get("mode"); m {
	case "":
	case "auto":
		mode = completion.ModeForPrefix(prefix)
	default:
		parsed, ok := completion.ParseVarMode(m)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "mode must be no_brackets, two_brackets, start_bracket or auto")
			return
		}
		mode = parsed
	}

	limit, ok := h.parseLimit(w, q.Get("limit"))
	if !ok {
		return
	}

	kind := "keyword"
	if completion.IsVariablePrefix(prefix) {
		kind = "variable"
	}

	data, err := h.loader.Load(ctx, tableName)
	if err != nil {
		if h.metrics != nil {
			h.metrics.CompletionQueriesTotal.WithLabelValues(kind, "error").Inc()
		}
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("loading index failed", "table", tableName, "error", err)
			h.writeError(w, status, "loading index failed")
			return
		}
		h.writeError(w, status, err.Error())
		return
	}

	items := completion.Matcher{Mode: mode, Limit: limit}.Complete(data, prefix)
	took := time.Since(start)
	if h.metrics != nil {
		h.metrics.ObserveCompletion(kind, len(items), took)
	}
	log.Debug("completion served",
		"table", tableName,
		"kind", kind,
		"returned", len(items),
		"latency_ms", took.Milliseconds(),
	)

	h.writeJSON(w, http.StatusOK, CompleteResponse{
		Table:     tableName,
		Prefix:    prefix,
		Kind:      kind,
		Mode:      mode.String(),
		Items:     items,
		Count:     len(items),
		LatencyMs: took.Milliseconds(),
	})
}

func (h *Handler) parseLimit(w http.ResponseWriter, raw string) (int, bool) {
	limit := h.defaultLimit
	if raw == "" {
		return limit, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	if h.maxResults > 0 && parsed > h.maxResults {
		parsed = h.maxResults
	}
	return parsed, true
}

// Indexes answers GET /api/v1/indexes from the catalog when one is wired and
// from the index directory otherwise.
func (h *Handler) Indexes(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.parseLimit(w, r.URL.Query().Get("limit"))
	if !ok {
		return
	}
	if h.catalog != nil {
		entries, err := h.catalog.List(r.Context(), limit)
		if err == nil {
			h.writeJSON(w, http.StatusOK, map[string]any{"source": "catalog", "indexes": entries, "count": len(entries)})
			return
		}
		logger.FromContext(r.Context()).Warn("catalog list failed, falling back to directory", "error", err)
	}

	names, err := h.loader.ListIndexes()
	if err != nil {
		h.logger.Error("listing indexes failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "listing indexes failed")
		return
	}
	if len(names) > limit {
		names = names[:limit]
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"source": "directory", "indexes": names, "count": len(names)})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	s := h.loader.Stats()
	total := s.MemoryHits + s.CacheHits + s.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(s.MemoryHits+s.CacheHits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"stats":    s,
		"total":    total,
		"hit_rate": strconv.FormatFloat(hitRate, 'f', 1, 64) + "%",
	})
}

// CacheInvalidate answers POST /api/v1/cache/invalidate. With ?table= it
// drops one index, otherwise all of them.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if tableName := r.URL.Query().Get("table"); tableName != "" {
		if err := ValidateTableName(tableName); err != nil {
			h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
			return
		}
		h.loader.Invalidate(ctx, tableName)
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated", "table": tableName})
		return
	}

	deleted, err := h.loader.InvalidateAll(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// Reindex answers POST /api/v1/reindex?table= by asking listening indexers
// to rebuild the table, or the whole corpus when table is omitted.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	if h.reindex == nil {
		h.writeError(w, http.StatusServiceUnavailable, "reindex requests are disabled")
		return
	}
	ctx := r.Context()
	req := events.ReindexRequest{
		Table:       r.URL.Query().Get("table"),
		RequestedBy: logger.RequestID(ctx),
		Timestamp:   time.Now().UTC(),
	}
	if req.Table != "" {
		if err := ValidateTableName(req.Table); err != nil {
			h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
			return
		}
	}

	if err := h.reindex.Publish(ctx, req.Table, req); err != nil {
		h.countReindex(req.Scope(), "error")
		logger.FromContext(ctx).Error("publishing reindex request failed", "table", req.Table, "error", err)
		h.writeError(w, http.StatusBadGateway, "publishing reindex request failed")
		return
	}
	h.countReindex(req.Scope(), "accepted")
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "scope": req.Scope(), "table": req.Table})
}

func (h *Handler) countReindex(scope, status string) {
	if h.metrics != nil {
		h.metrics.ReindexRequestTotal.WithLabelValues(scope, status).Inc()
	}
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
