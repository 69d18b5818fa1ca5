// Package search aggregates index results across one or many documents and
// builds the narrative answers the API returns. All its outputs are
// deterministic: the same index state and inputs produce byte-identical
// results.
package search

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/keyword"
)

// Search modes as they appear in cache fingerprints and analytics events.
const (
	ModeSingle = "single"
	ModeMulti  = "multi"
	ModeAll    = "all"
)

// Outcome tags describe why a result looks the way it does. They are
// structured results, not errors: a question with no keywords and a search
// with no matches are ordinary answers.
const (
	OutcomeMatched     = "matched"
	OutcomeNoMatches   = "no_matches"
	OutcomeNoKeywords  = "no_keywords"
	OutcomeNoDocuments = "no_documents"
)

// PageHit is one cited page in an answer.
type PageHit struct {
	Page     int      `json:"page"`
	Score    float64  `json:"score"`
	Excerpts []string `json:"excerpts"`
}

// SingleResult is the answer to a question against one document.
type SingleResult struct {
	Question     string         `json:"question"`
	DocumentID   string         `json:"document_id"`
	Filename     string         `json:"filename"`
	Keywords     []string       `json:"keywords"`
	Intent       keyword.Intent `json:"intent"`
	Outcome      string         `json:"outcome"`
	Answer       string         `json:"answer"`
	Pages        []PageHit      `json:"pages"`
	TotalMatches int            `json:"total_matches"`
}

// DocumentSummary ranks one document inside a multi-document result.
type DocumentSummary struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	Matches    int       `json:"matches"`
	TopPages   []PageHit `json:"top_pages"`
}

// Comparison summarises how the candidate documents stack up.
type Comparison struct {
	MostRelevant    string  `json:"most_relevant"`
	DocsWithResults int     `json:"docs_with_results"`
	DocsWithout     int     `json:"docs_without_results"`
	AvgMatches      float64 `json:"avg_matches_per_matched_doc"`
}

// MultiResult is the answer to a question across several documents. Results
// carries the full ranking; the narrative cites at most the top five.
// FailedDocuments lists candidates skipped because their individual search
// failed; the batch itself still succeeds.
type MultiResult struct {
	Question        string            `json:"question"`
	Keywords        []string          `json:"keywords"`
	Intent          keyword.Intent    `json:"intent"`
	Outcome         string            `json:"outcome"`
	Answer          string            `json:"answer"`
	Results         []DocumentSummary `json:"results"`
	Comparison      *Comparison       `json:"comparison,omitempty"`
	FailedDocuments []string          `json:"failed_documents,omitempty"`
}

// Corpus is the slice of the document store the aggregator needs.
type Corpus interface {
	Get(ctx context.Context, docID string) (*docstore.Document, error)
	List(ctx context.Context) ([]docstore.Document, error)
	Pages(ctx context.Context, docID string) (map[int]string, error)
	RecordAccess(ctx context.Context, docID string)
}
