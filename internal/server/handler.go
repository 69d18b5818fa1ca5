// Package server exposes the query API over HTTP: question answering
// against one or many documents, document ingestion and removal, index
// rebuild, cache administration, and translation. Handlers wrap the
// aggregator with the query cache and emit analytics events and metrics for
// every answered question.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/translate"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/tracing"
)

// Searcher answers questions. Satisfied by search.Aggregator.
type Searcher interface {
	SearchSingle(ctx context.Context, question, docID string) (*search.SingleResult, error)
	SearchMany(ctx context.Context, question string, docIDs []string, matchAll bool) (*search.MultiResult, error)
}

// DocumentReader is the slice of the document store the handlers need:
// metadata for validation and cache fingerprints, and the full corpus for
// index rebuilds.
type DocumentReader interface {
	Get(ctx context.Context, docID string) (*docstore.Document, error)
	List(ctx context.Context) ([]docstore.Document, error)
	EachDocument(ctx context.Context, fn func(docID, filename string, pages map[int]string) error) error
}

// Handler serves the query API.
type Handler struct {
	searcher   Searcher
	corpus     DocumentReader
	cache      *cache.Service
	ingestor   *ingest.Handler
	index      *index.PageIndex
	translator *translate.Client
	collector  *analytics.Collector
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewHandler creates the API handler. translator, collector, and m may be
// nil; the corresponding features degrade or go silent.
func NewHandler(
	searcher Searcher,
	corpus DocumentReader,
	cacheSvc *cache.Service,
	ingestor *ingest.Handler,
	idx *index.PageIndex,
	translator *translate.Client,
	collector *analytics.Collector,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		searcher:   searcher,
		corpus:     corpus,
		cache:      cacheSvc,
		ingestor:   ingestor,
		index:      idx,
		translator: translator,
		collector:  collector,
		metrics:    m,
		logger:     slog.Default().With("component", "api-handler"),
	}
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/query", h.QuerySingle)
	mux.HandleFunc("POST /api/v1/query/multi", h.QueryMulti)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("PUT /api/v1/documents/{id}", h.PutDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", h.DeleteDocument)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.RebuildIndex)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("POST /api/v1/cache/maintenance", h.CacheMaintenance)
	mux.HandleFunc("POST /api/v1/translate", h.Translate)
}

type singleQueryRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"document_id"`
}

// QuerySingle answers a question against one document, serving from the
// cache when the exact same request was answered before.
func (h *Handler) QuerySingle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req singleQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "invalid request body"))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" || req.DocumentID == "" {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "question and document_id are required"))
		return
	}

	ctx, span := tracing.StartSpan(ctx, "query-single", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log()
	}()

	doc, err := h.corpus.Get(ctx, req.DocumentID)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	filenames := []string{doc.Filename}

	var result search.SingleResult
	cacheHit := h.cache.Lookup(ctx, req.Question, filenames, search.ModeSingle, &result)
	if !cacheHit {
		computed, err := h.searcher.SearchSingle(ctx, req.Question, req.DocumentID)
		if err != nil {
			log.Error("single query failed",
				"document_id", req.DocumentID, "error", err)
			h.writeAppError(w, err)
			return
		}
		result = *computed
		h.cache.Store(ctx, req.Question, filenames, search.ModeSingle, computed)
	}
	span.SetAttr("cache_hit", cacheHit)
	span.SetAttr("outcome", result.Outcome)

	h.recordQuery(ctx, req.Question, search.ModeSingle, result.Outcome,
		result.TotalMatches, result.Keywords, string(result.Intent), cacheHit, start)
	h.writeJSON(w, http.StatusOK, result)
}

type multiQueryRequest struct {
	Question    string   `json:"question"`
	DocumentIDs []string `json:"document_ids"`
	All         bool     `json:"all"`
}

// QueryMulti answers a question across a set of documents, or the whole
// corpus when all is set.
func (h *Handler) QueryMulti(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req multiQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "invalid request body"))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "question is required"))
		return
	}
	if !req.All && len(req.DocumentIDs) == 0 {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "document_ids or all is required"))
		return
	}

	mode := search.ModeMulti
	if req.All {
		mode = search.ModeAll
	}

	ctx, span := tracing.StartSpan(ctx, "query-multi", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log()
	}()
	span.SetAttr("mode", mode)

	filenames, err := h.resolveFilenames(ctx, req.DocumentIDs, req.All)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	var result search.MultiResult
	cacheHit := h.cache.Lookup(ctx, req.Question, filenames, mode, &result)
	if !cacheHit {
		computed, err := h.searcher.SearchMany(ctx, req.Question, req.DocumentIDs, req.All)
		if err != nil {
			log.Error("multi query failed", "mode", mode, "error", err)
			h.writeAppError(w, err)
			return
		}
		result = *computed
		h.cache.Store(ctx, req.Question, filenames, mode, computed)
	}
	span.SetAttr("cache_hit", cacheHit)
	span.SetAttr("outcome", result.Outcome)

	matches := 0
	for _, summary := range result.Results {
		matches += summary.Matches
	}
	h.recordQuery(ctx, req.Question, mode, result.Outcome,
		matches, result.Keywords, string(result.Intent), cacheHit, start)
	h.writeJSON(w, http.StatusOK, result)
}

// resolveFilenames maps the requested document set to filenames for the
// cache fingerprint. Unknown IDs are skipped here; the aggregator reports
// them in the result.
func (h *Handler) resolveFilenames(ctx context.Context, docIDs []string, all bool) ([]string, error) {
	if all {
		docs, err := h.corpus.List(ctx)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(docs))
		for _, doc := range docs {
			names = append(names, doc.Filename)
		}
		return names, nil
	}
	names := make([]string, 0, len(docIDs))
	for _, id := range docIDs {
		doc, err := h.corpus.Get(ctx, id)
		if err != nil {
			continue
		}
		names = append(names, doc.Filename)
	}
	return names, nil
}

// ListDocuments returns the corpus metadata.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.corpus.List(r.Context())
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

type putDocumentRequest struct {
	Filename string         `json:"filename"`
	Pages    map[int]string `json:"pages"`
}

// PutDocument ingests a document's extracted pages directly over HTTP. It
// applies the same path as the Kafka pages topic: persist, index, and
// invalidate cached answers for the filename.
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")

	var req putDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "invalid request body"))
		return
	}
	if req.Filename == "" || len(req.Pages) == 0 {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "filename and pages are required"))
		return
	}

	err := h.ingestor.ApplyPages(r.Context(), ingest.PagesEvent{
		DocumentID: docID,
		Filename:   req.Filename,
		Pages:      req.Pages,
	})
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"document_id": docID,
		"filename":    req.Filename,
		"pages":       len(req.Pages),
	})
}

// DeleteDocument removes a document from the store, the index, and the
// cache.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")

	if err := h.ingestor.ApplyRemoval(r.Context(), docID); err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"document_id": docID,
		"status":      "removed",
	})
}

// RebuildIndex drops the in-memory index and re-indexes the full corpus
// from the store. Recovery path for suspected index inconsistency.
func (h *Handler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	count, err := h.index.Rebuild(r.Context(), h.corpus)
	if err != nil {
		// A failed rebuild leaves the in-memory index partial; report it
		// as corruption so the operator retries once the store recovers.
		log.Error("index rebuild failed", "documents", count, "error", err)
		h.writeAppError(w, apperrors.Newf(apperrors.ErrIndexCorruption,
			http.StatusConflict, "index rebuild failed after %d documents: %v", count, err))
		return
	}

	stats := h.index.Stats()
	if h.metrics != nil {
		h.metrics.IndexedDocuments.Set(float64(stats.Documents))
		h.metrics.IndexedTerms.Set(float64(stats.Terms))
	}
	log.Info("index rebuilt", "documents", count, "terms", stats.Terms)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": count,
		"pages":     stats.Pages,
		"terms":     stats.Terms,
	})
}

// CacheStats reports the cache population.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

type invalidateRequest struct {
	Filename string `json:"filename"`
}

// CacheInvalidate expires cached answers, either for one filename or for
// the whole cache when no filename is given. The body is optional.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	if req.Filename != "" {
		n := h.cache.InvalidateForDocument(r.Context(), req.Filename)
		h.writeJSON(w, http.StatusOK, map[string]any{
			"invalidated": n,
			"filename":    req.Filename,
		})
		return
	}

	n, err := h.cache.InvalidateAll(r.Context())
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"invalidated": n})
}

// CacheMaintenance runs the expiry and eviction policy once.
func (h *Handler) CacheMaintenance(w http.ResponseWriter, r *http.Request) {
	report, err := h.cache.Maintenance(r.Context())
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Translate translates question text between Spanish and English.
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	if h.translator == nil {
		h.writeError(w, http.StatusServiceUnavailable, "translation is not configured")
		return
	}

	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput,
			http.StatusBadRequest, "text is required"))
		return
	}
	if req.Source == "" {
		req.Source = "es"
	}
	if req.Target == "" {
		req.Target = "en"
	}

	result := h.translator.Translate(r.Context(), req.Text, req.Source, req.Target)
	h.writeJSON(w, http.StatusOK, result)
}

// recordQuery emits the metrics and the analytics event for one answered
// question.
func (h *Handler) recordQuery(ctx context.Context, question, mode, outcome string, matches int, keywords []string, intent string, cacheHit bool, start time.Time) {
	latency := time.Since(start)
	if h.metrics != nil {
		h.metrics.QueriesTotal.WithLabelValues(mode, outcome).Inc()
		status := "miss"
		if cacheHit {
			status = "hit"
		}
		h.metrics.QueryLatency.WithLabelValues(status).Observe(latency.Seconds())
		h.metrics.QueryMatchesCount.Observe(float64(matches))
	}
	if h.collector != nil {
		h.collector.Track(analytics.QueryEvent{
			Type:      analytics.EventQuery,
			Question:  question,
			Intent:    intent,
			Keywords:  keywords,
			Mode:      mode,
			Outcome:   outcome,
			Matches:   matches,
			LatencyMs: latency.Milliseconds(),
			CacheHit:  cacheHit,
			RequestID: middleware.GetRequestID(ctx),
			Timestamp: time.Now().UTC(),
		})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps an error to its HTTP status and JSON body. Index
// corruption additionally names the operator action that clears it.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	body := map[string]string{"error": err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
	}
	if errors.Is(err, apperrors.ErrIndexCorruption) {
		body["recommendation"] = "rebuild_index"
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), body)
}
