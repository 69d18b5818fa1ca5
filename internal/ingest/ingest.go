// Package ingest consumes document events from Kafka: page content
// published by the external extractor, and removal notices. Each event is
// persisted, indexed, and the query cache invalidated for the affected
// filename. Bad events are logged and skipped; the consume loop never stops
// for one document.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/metrics"
)

// PagesEvent announces extracted page text for one document. Re-publishing
// the same document replaces its previous content.
type PagesEvent struct {
	DocumentID string         `json:"document_id"`
	Filename   string         `json:"filename"`
	Pages      map[int]string `json:"pages"`
}

// RemovedEvent announces a document deletion.
type RemovedEvent struct {
	DocumentID string `json:"document_id"`
}

// PageWriter is the slice of the document store ingestion writes through.
type PageWriter interface {
	SavePages(ctx context.Context, docID, filename string, pages map[int]string) error
	Delete(ctx context.Context, docID string) (string, error)
}

// Invalidator drops cached answers that reference a filename.
type Invalidator interface {
	InvalidateForDocument(ctx context.Context, filename string) int
}

// Handler applies document events to the store, the index, and the cache.
type Handler struct {
	store     PageWriter
	index     *index.PageIndex
	cache     Invalidator
	collector *analytics.Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewHandler creates a Handler. collector and m may be nil.
func NewHandler(store PageWriter, idx *index.PageIndex, cache Invalidator, collector *analytics.Collector, m *metrics.Metrics) *Handler {
	return &Handler{
		store:     store,
		index:     idx,
		cache:     cache,
		collector: collector,
		metrics:   m,
		logger:    slog.Default().With("component", "ingest"),
	}
}

// HandlePages is the Kafka handler for the document-pages topic.
func (h *Handler) HandlePages() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[PagesEvent](value)
		if err != nil {
			h.logger.Error("skipping undecodable pages event", "error", err)
			return nil
		}
		if event.DocumentID == "" || event.Filename == "" {
			h.logger.Error("skipping pages event with missing identity",
				"document_id", event.DocumentID, "filename", event.Filename)
			return nil
		}
		if err := h.ApplyPages(ctx, event); err != nil {
			h.logger.Error("failed to apply pages event",
				"document_id", event.DocumentID, "error", err)
		}
		return nil
	}
}

// ApplyPages persists and indexes a document's pages, then invalidates
// cached answers that referenced its filename.
func (h *Handler) ApplyPages(ctx context.Context, event PagesEvent) error {
	if err := h.store.SavePages(ctx, event.DocumentID, event.Filename, event.Pages); err != nil {
		return err
	}
	h.index.Index(event.DocumentID, event.Filename, event.Pages)
	invalidated := h.cache.InvalidateForDocument(ctx, event.Filename)

	if h.metrics != nil {
		h.metrics.DocsIndexedTotal.Inc()
		stats := h.index.Stats()
		h.metrics.IndexedDocuments.Set(float64(stats.Documents))
		h.metrics.IndexedTerms.Set(float64(stats.Terms))
	}
	if h.collector != nil {
		h.collector.Track(analytics.DocumentEvent{
			Type:       analytics.EventDocument,
			Action:     "indexed",
			DocumentID: event.DocumentID,
			Filename:   event.Filename,
			Pages:      len(event.Pages),
			Timestamp:  time.Now().UTC(),
		})
	}
	h.logger.Info("document ingested",
		"document_id", event.DocumentID,
		"filename", event.Filename,
		"pages", len(event.Pages),
		"cache_invalidated", invalidated,
	)
	return nil
}

// HandleRemoved is the Kafka handler for the document-removed topic.
func (h *Handler) HandleRemoved() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[RemovedEvent](value)
		if err != nil {
			h.logger.Error("skipping undecodable removal event", "error", err)
			return nil
		}
		if err := h.ApplyRemoval(ctx, event.DocumentID); err != nil {
			h.logger.Error("failed to apply removal event",
				"document_id", event.DocumentID, "error", err)
		}
		return nil
	}
}

// ApplyRemoval deletes a document everywhere: store, index, and cache.
func (h *Handler) ApplyRemoval(ctx context.Context, docID string) error {
	filename, err := h.store.Delete(ctx, docID)
	if err != nil {
		return err
	}
	h.index.Remove(docID)
	h.cache.InvalidateForDocument(ctx, filename)

	if h.metrics != nil {
		stats := h.index.Stats()
		h.metrics.IndexedDocuments.Set(float64(stats.Documents))
		h.metrics.IndexedTerms.Set(float64(stats.Terms))
	}
	if h.collector != nil {
		h.collector.Track(analytics.DocumentEvent{
			Type:       analytics.EventDocument,
			Action:     "removed",
			DocumentID: docID,
			Filename:   filename,
			Timestamp:  time.Now().UTC(),
		})
	}
	h.logger.Info("document removed", "document_id", docID, "filename", filename)
	return nil
}
