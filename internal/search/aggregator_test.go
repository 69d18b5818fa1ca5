package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/errors"
)

type fakeCorpus struct {
	docs      map[string]docstore.Document
	pages     map[string]map[int]string
	pagesErr  map[string]error
	accessLog []string
}

func (f *fakeCorpus) Get(ctx context.Context, docID string) (*docstore.Document, error) {
	doc, ok := f.docs[docID]
	if !ok {
		return nil, apperrors.ErrDocumentNotFound
	}
	return &doc, nil
}

func (f *fakeCorpus) List(ctx context.Context) ([]docstore.Document, error) {
	docs := make([]docstore.Document, 0, len(f.docs))
	for _, id := range sortedKeys(f.docs) {
		docs = append(docs, f.docs[id])
	}
	return docs, nil
}

func (f *fakeCorpus) Pages(ctx context.Context, docID string) (map[int]string, error) {
	if err, ok := f.pagesErr[docID]; ok {
		return nil, err
	}
	return f.pages[docID], nil
}

func (f *fakeCorpus) RecordAccess(ctx context.Context, docID string) {
	f.accessLog = append(f.accessLog, docID)
}

func sortedKeys(m map[string]docstore.Document) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	return keys
}

func testConfig() config.SearchConfig {
	return config.SearchConfig{
		MaxResults:        100,
		MaxConcurrentDocs: 4,
		MaxKeywords:       5,
	}
}

func newFixture() (*Aggregator, *fakeCorpus, *index.PageIndex) {
	idx := index.NewPageIndex()
	corpus := &fakeCorpus{
		docs: map[string]docstore.Document{
			"doc-1": {ID: "doc-1", Filename: "server-guide.pdf", PageCount: 3},
			"doc-2": {ID: "doc-2", Filename: "api-manual.pdf", PageCount: 2},
		},
		pages:    map[string]map[int]string{},
		pagesErr: map[string]error{},
	}
	idx.Index("doc-1", "server-guide.pdf", map[int]string{
		1: "Introduction to the server and its installation.",
		2: "Server configuration lives in the config file. Configuration changes require a restart.",
		3: "Troubleshooting common errors.",
	})
	idx.Index("doc-2", "api-manual.pdf", map[int]string{
		1: "The API exposes endpoints for document upload.",
		2: "Authentication tokens expire after one hour.",
	})
	return NewAggregator(idx, corpus, testConfig()), corpus, idx
}

func TestSearchSingleFindsConfiguration(t *testing.T) {
	agg, corpus, _ := newFixture()

	result, err := agg.SearchSingle(context.Background(), "How do I configure the server?", "doc-1")
	if err != nil {
		t.Fatalf("SearchSingle failed: %v", err)
	}
	if result.Outcome != OutcomeMatched {
		t.Fatalf("outcome = %s, want matched", result.Outcome)
	}
	if len(result.Pages) == 0 || result.Pages[0].Page != 2 {
		t.Errorf("expected page 2 cited first, got %+v", result.Pages)
	}
	if !strings.Contains(result.Answer, "Page 2") {
		t.Errorf("answer should cite page 2:\n%s", result.Answer)
	}
	if len(corpus.accessLog) != 1 || corpus.accessLog[0] != "doc-1" {
		t.Errorf("access should be recorded once, got %v", corpus.accessLog)
	}
}

func TestSearchSinglePartialKeywordOverlap(t *testing.T) {
	agg, _, _ := newFixture()

	// "details" appears nowhere in doc-1; the other keywords still carry
	// the question to the configuration page.
	result, err := agg.SearchSingle(context.Background(), "server configuration details", "doc-1")
	if err != nil {
		t.Fatalf("SearchSingle failed: %v", err)
	}
	if result.Outcome != OutcomeMatched {
		t.Fatalf("outcome = %s, want matched despite an unmatched keyword", result.Outcome)
	}
	if result.Pages[0].Page != 2 {
		t.Errorf("expected page 2 cited first, got %+v", result.Pages)
	}
}

func TestSearchSingleNoKeywords(t *testing.T) {
	agg, _, _ := newFixture()

	result, err := agg.SearchSingle(context.Background(), "is it in the way?", "doc-1")
	if err != nil {
		t.Fatalf("SearchSingle failed: %v", err)
	}
	if result.Outcome != OutcomeNoKeywords {
		t.Errorf("outcome = %s, want no_keywords", result.Outcome)
	}
	if result.Answer != noKeywordsMessage {
		t.Errorf("unexpected answer: %q", result.Answer)
	}
}

func TestSearchSingleNoMatchesIsDistinct(t *testing.T) {
	agg, _, _ := newFixture()

	result, err := agg.SearchSingle(context.Background(), "What about quantum cryptography?", "doc-1")
	if err != nil {
		t.Fatalf("SearchSingle failed: %v", err)
	}
	if result.Outcome != OutcomeNoMatches {
		t.Errorf("outcome = %s, want no_matches", result.Outcome)
	}
	if result.Answer == noKeywordsMessage {
		t.Error("no-matches answer must differ from no-keywords answer")
	}
	if !strings.Contains(result.Answer, "server-guide.pdf") {
		t.Errorf("no-matches answer should name the document: %q", result.Answer)
	}
}

func TestSearchSingleUnknownDocument(t *testing.T) {
	agg, _, _ := newFixture()

	_, err := agg.SearchSingle(context.Background(), "configure server", "ghost")
	if !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Errorf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestSearchSingleFallsBackToScan(t *testing.T) {
	agg, corpus, _ := newFixture()
	corpus.docs["doc-3"] = docstore.Document{ID: "doc-3", Filename: "fresh.pdf", PageCount: 1}
	corpus.pages["doc-3"] = map[int]string{
		1: "deployment checklist\nverify the rollback plan first",
	}

	result, err := agg.SearchSingle(context.Background(), "Where is the deployment checklist?", "doc-3")
	if err != nil {
		t.Fatalf("SearchSingle failed: %v", err)
	}
	if result.Outcome != OutcomeMatched {
		t.Fatalf("outcome = %s, want matched (regex fallback)", result.Outcome)
	}
	if result.Pages[0].Page != 1 {
		t.Errorf("expected page 1, got %d", result.Pages[0].Page)
	}
}

func TestSearchManyRanksByMatchCount(t *testing.T) {
	agg, _, _ := newFixture()

	result, err := agg.SearchMany(context.Background(), "Where is the server configuration?", nil, true)
	if err != nil {
		t.Fatalf("SearchMany failed: %v", err)
	}
	if result.Outcome != OutcomeMatched {
		t.Fatalf("outcome = %s, want matched", result.Outcome)
	}
	if result.Results[0].Filename != "server-guide.pdf" {
		t.Errorf("top document = %s, want server-guide.pdf", result.Results[0].Filename)
	}
	if result.Comparison == nil || result.Comparison.MostRelevant != "server-guide.pdf" {
		t.Errorf("comparison = %+v", result.Comparison)
	}
	if len(result.Results) != 2 {
		t.Errorf("full ranking should include every document, got %d", len(result.Results))
	}
}

func TestSearchManyZeroMatchesAcrossDocuments(t *testing.T) {
	agg, _, _ := newFixture()

	result, err := agg.SearchMany(context.Background(), "Tell me about quantum entanglement experiments", nil, true)
	if err != nil {
		t.Fatalf("SearchMany failed: %v", err)
	}
	if result.Outcome != OutcomeNoMatches {
		t.Fatalf("outcome = %s, want no_matches", result.Outcome)
	}
	if result.Comparison.DocsWithResults != 0 || result.Comparison.DocsWithout != 2 {
		t.Errorf("comparison = %+v", result.Comparison)
	}
}

func TestSearchManyEmptyCorpus(t *testing.T) {
	idx := index.NewPageIndex()
	corpus := &fakeCorpus{docs: map[string]docstore.Document{}}
	agg := NewAggregator(idx, corpus, testConfig())

	result, err := agg.SearchMany(context.Background(), "anything interesting here", nil, true)
	if err != nil {
		t.Fatalf("SearchMany failed: %v", err)
	}
	if result.Outcome != OutcomeNoDocuments {
		t.Errorf("outcome = %s, want no_documents", result.Outcome)
	}
}

func TestSearchManySkipsFailingDocuments(t *testing.T) {
	agg, corpus, _ := newFixture()
	corpus.docs["doc-bad"] = docstore.Document{ID: "doc-bad", Filename: "broken.pdf"}
	corpus.pagesErr["doc-bad"] = errors.New("storage offline")

	result, err := agg.SearchMany(context.Background(), "server configuration details", nil, true)
	if err != nil {
		t.Fatalf("batch must survive per-document failures: %v", err)
	}
	if len(result.FailedDocuments) != 1 || result.FailedDocuments[0] != "doc-bad" {
		t.Errorf("failed documents = %v, want [doc-bad]", result.FailedDocuments)
	}
	if result.Outcome != OutcomeMatched {
		t.Errorf("outcome = %s, want matched from surviving documents", result.Outcome)
	}
}

func TestSearchManySkipsUnknownDocuments(t *testing.T) {
	agg, _, _ := newFixture()

	result, err := agg.SearchMany(context.Background(),
		"server configuration details", []string{"doc-1", "ghost"}, false)
	if err != nil {
		t.Fatalf("batch must survive unknown document IDs: %v", err)
	}
	if len(result.FailedDocuments) != 1 || result.FailedDocuments[0] != "ghost" {
		t.Errorf("failed documents = %v, want [ghost]", result.FailedDocuments)
	}
	if result.Outcome != OutcomeMatched {
		t.Errorf("outcome = %s, want matched from the known document", result.Outcome)
	}
	if len(result.Results) != 1 || result.Results[0].DocumentID != "doc-1" {
		t.Errorf("results = %+v, want doc-1 only", result.Results)
	}
}

func TestSearchManyOnlyUnknownDocuments(t *testing.T) {
	agg, _, _ := newFixture()

	result, err := agg.SearchMany(context.Background(),
		"server configuration", []string{"ghost", "phantom"}, false)
	if err != nil {
		t.Fatalf("SearchMany failed: %v", err)
	}
	if result.Outcome != OutcomeNoDocuments {
		t.Errorf("outcome = %s, want no_documents", result.Outcome)
	}
	if len(result.FailedDocuments) != 2 {
		t.Errorf("failed documents = %v, want both IDs reported", result.FailedDocuments)
	}
}

func TestSearchManyIsDeterministic(t *testing.T) {
	agg, _, _ := newFixture()
	ctx := context.Background()

	first, err := agg.SearchMany(ctx, "server configuration", nil, true)
	if err != nil {
		t.Fatal(err)
	}
	firstJSON, _ := json.Marshal(first)
	for i := 0; i < 10; i++ {
		again, err := agg.SearchMany(ctx, "server configuration", nil, true)
		if err != nil {
			t.Fatal(err)
		}
		againJSON, _ := json.Marshal(again)
		if string(firstJSON) != string(againJSON) {
			t.Fatalf("run %d produced different bytes", i)
		}
	}
}
