package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/translate"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/errors"
)

// corpusStub is an in-memory document store backing the full API stack.
type corpusStub struct {
	docs    map[string]docstore.Document
	pages   map[string]map[int]string
	eachErr error
}

func newCorpusStub() *corpusStub {
	return &corpusStub{
		docs:  make(map[string]docstore.Document),
		pages: make(map[string]map[int]string),
	}
}

func (c *corpusStub) Get(ctx context.Context, docID string) (*docstore.Document, error) {
	doc, ok := c.docs[docID]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	return &doc, nil
}

func (c *corpusStub) List(ctx context.Context) ([]docstore.Document, error) {
	ids := make([]string, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([]docstore.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, c.docs[id])
	}
	return docs, nil
}

func (c *corpusStub) Pages(ctx context.Context, docID string) (map[int]string, error) {
	return c.pages[docID], nil
}

func (c *corpusStub) RecordAccess(ctx context.Context, docID string) {}

func (c *corpusStub) EachDocument(ctx context.Context, fn func(docID, filename string, pages map[int]string) error) error {
	if c.eachErr != nil {
		return c.eachErr
	}
	docs, _ := c.List(ctx)
	for _, doc := range docs {
		if err := fn(doc.ID, doc.Filename, c.pages[doc.ID]); err != nil {
			return err
		}
	}
	return nil
}

func (c *corpusStub) SavePages(ctx context.Context, docID, filename string, pages map[int]string) error {
	c.docs[docID] = docstore.Document{ID: docID, Filename: filename, PageCount: len(pages)}
	c.pages[docID] = pages
	return nil
}

func (c *corpusStub) Delete(ctx context.Context, docID string) (string, error) {
	doc, ok := c.docs[docID]
	if !ok {
		return "", apperrors.ErrDocumentNotFound
	}
	delete(c.docs, docID)
	delete(c.pages, docID)
	return doc.Filename, nil
}

func newTestAPI() (*http.ServeMux, *corpusStub) {
	corpus := newCorpusStub()
	idx := index.NewPageIndex()
	cacheSvc := cache.NewService(cache.NewMemoryStore(), nil, config.CacheConfig{
		SingleTTL:  time.Hour,
		MultiTTL:   time.Hour,
		MaxEntries: 100,
		MinHits:    1,
	}, nil)
	agg := search.NewAggregator(idx, corpus, config.SearchConfig{
		MaxResults:        100,
		DefaultLimit:      50,
		MaxConcurrentDocs: 4,
		MaxKeywords:       5,
	})
	ingestor := ingest.NewHandler(corpus, idx, cacheSvc, nil, nil)
	translator := translate.NewClient(config.TranslateConfig{}, nil)

	handler := NewHandler(agg, corpus, cacheSvc, ingestor, idx, translator, nil, nil)
	mux := http.NewServeMux()
	handler.Register(mux)
	return mux, corpus
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

func putGuide(t *testing.T, mux *http.ServeMux) {
	t.Helper()
	rec := doJSON(t, mux, http.MethodPut, "/api/v1/documents/doc-1", map[string]any{
		"filename": "backup-guide.pdf",
		"pages": map[string]string{
			"1": "Configure the backup server before the first scheduled run.",
			"2": "The backup schedule is defined in the server configuration file.",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT document = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPutDocumentThenQuery(t *testing.T) {
	mux, _ := newTestAPI()
	putGuide(t, mux)

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/query", map[string]string{
		"question":    "How do I configure the backup server?",
		"document_id": "doc-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("query = %d: %s", rec.Code, rec.Body.String())
	}

	result := decodeBody[search.SingleResult](t, rec)
	if result.Outcome != search.OutcomeMatched {
		t.Errorf("outcome = %s, want matched", result.Outcome)
	}
	if result.Filename != "backup-guide.pdf" {
		t.Errorf("filename = %s", result.Filename)
	}
	if len(result.Pages) == 0 {
		t.Error("matched result should cite pages")
	}
	if result.Answer == "" {
		t.Error("matched result should carry a narrative answer")
	}
}

func TestRepeatQueryIsServedFromCache(t *testing.T) {
	mux, _ := newTestAPI()
	putGuide(t, mux)

	body := map[string]string{
		"question":    "How do I configure the backup server?",
		"document_id": "doc-1",
	}
	first := doJSON(t, mux, http.MethodPost, "/api/v1/query", body)
	second := doJSON(t, mux, http.MethodPost, "/api/v1/query", body)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("queries = %d, %d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Error("cached answer should be byte-identical to the computed one")
	}

	stats := decodeBody[cache.Stats](t, doJSON(t, mux, http.MethodGet, "/api/v1/cache/stats", nil))
	if stats.TotalEntries != 1 {
		t.Errorf("cache entries = %d, want 1", stats.TotalEntries)
	}
	if stats.TotalHits != 1 {
		t.Errorf("cache hits = %d, want 1", stats.TotalHits)
	}
}

func TestQueryUnknownDocument(t *testing.T) {
	mux, _ := newTestAPI()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/query", map[string]string{
		"question":    "Where is the configuration?",
		"document_id": "nope",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestQueryValidation(t *testing.T) {
	mux, _ := newTestAPI()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/query", map[string]string{
		"document_id": "doc-1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing question: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/v1/query/multi", map[string]any{
		"question": "Where is the configuration?",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("multi without targets: status = %d, want 400", rec.Code)
	}
}

func TestQueryAcrossAllDocuments(t *testing.T) {
	mux, _ := newTestAPI()
	putGuide(t, mux)
	rec := doJSON(t, mux, http.MethodPut, "/api/v1/documents/doc-2", map[string]any{
		"filename": "api-manual.pdf",
		"pages": map[string]string{
			"1": "The management API exposes endpoints for network monitoring.",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT second document = %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/v1/query/multi", map[string]any{
		"question": "How do I configure the backup server?",
		"all":      true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("multi query = %d: %s", rec.Code, rec.Body.String())
	}

	result := decodeBody[search.MultiResult](t, rec)
	if result.Outcome != search.OutcomeMatched {
		t.Errorf("outcome = %s, want matched", result.Outcome)
	}
	if len(result.Results) != 2 {
		t.Fatalf("results = %d, want both documents ranked", len(result.Results))
	}
	if result.Results[0].Filename != "backup-guide.pdf" {
		t.Errorf("top document = %s, want backup-guide.pdf", result.Results[0].Filename)
	}
	if result.Comparison == nil || result.Comparison.MostRelevant != "backup-guide.pdf" {
		t.Errorf("comparison = %+v", result.Comparison)
	}
}

func TestDeleteDocumentInvalidatesCachedAnswers(t *testing.T) {
	mux, _ := newTestAPI()
	putGuide(t, mux)

	body := map[string]string{
		"question":    "How do I configure the backup server?",
		"document_id": "doc-1",
	}
	doJSON(t, mux, http.MethodPost, "/api/v1/query", body)

	rec := doJSON(t, mux, http.MethodDelete, "/api/v1/documents/doc-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d: %s", rec.Code, rec.Body.String())
	}

	stats := decodeBody[cache.Stats](t, doJSON(t, mux, http.MethodGet, "/api/v1/cache/stats", nil))
	if stats.ValidEntries != 0 {
		t.Errorf("valid cache entries after delete = %d, want 0", stats.ValidEntries)
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/v1/query", body)
	if rec.Code != http.StatusNotFound {
		t.Errorf("query after delete = %d, want 404", rec.Code)
	}
}

func TestRebuildIndexFromStore(t *testing.T) {
	mux, corpus := newTestAPI()

	// Seed the store directly so nothing is indexed yet.
	corpus.SavePages(context.Background(), "doc-1", "backup-guide.pdf", map[int]string{
		1: "Configure the backup server before the first scheduled run.",
	})

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/index/rebuild", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rebuild = %d: %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[map[string]int](t, rec)
	if report["documents"] != 1 {
		t.Errorf("rebuilt documents = %d, want 1", report["documents"])
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/v1/query", map[string]string{
		"question":    "How do I configure the backup server?",
		"document_id": "doc-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("query after rebuild = %d", rec.Code)
	}
	if result := decodeBody[search.SingleResult](t, rec); result.Outcome != search.OutcomeMatched {
		t.Errorf("outcome after rebuild = %s, want matched", result.Outcome)
	}
}

func TestRebuildIndexFailureSignalsCorruption(t *testing.T) {
	mux, corpus := newTestAPI()
	corpus.eachErr = errors.New("page table unreadable")

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/index/rebuild", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("rebuild = %d, want 409: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody[map[string]string](t, rec)
	if body["recommendation"] != "rebuild_index" {
		t.Errorf("body = %v, want a rebuild_index recommendation", body)
	}
}

func TestCacheInvalidateAll(t *testing.T) {
	mux, _ := newTestAPI()
	putGuide(t, mux)
	doJSON(t, mux, http.MethodPost, "/api/v1/query", map[string]string{
		"question":    "How do I configure the backup server?",
		"document_id": "doc-1",
	})

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/cache/invalidate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("invalidate = %d: %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[map[string]int](t, rec)
	if report["invalidated"] != 1 {
		t.Errorf("invalidated = %d, want 1", report["invalidated"])
	}

	stats := decodeBody[cache.Stats](t, doJSON(t, mux, http.MethodGet, "/api/v1/cache/stats", nil))
	if stats.ValidEntries != 0 {
		t.Errorf("valid entries = %d, want 0", stats.ValidEntries)
	}
}

func TestCacheMaintenanceEndpoint(t *testing.T) {
	mux, _ := newTestAPI()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/cache/maintenance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("maintenance = %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody[cache.MaintenanceReport](t, rec)
}

func TestTranslateEndpoint(t *testing.T) {
	mux, _ := newTestAPI()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/translate", map[string]string{
		"text": "configuración del servidor",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("translate = %d: %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[translate.Result](t, rec)
	if result.Provider != "dictionary" {
		t.Errorf("provider = %s, want dictionary", result.Provider)
	}
	if result.Translated != "configuration del server" {
		t.Errorf("translated = %q", result.Translated)
	}
}
