package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/keyword"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/config"
)

const (
	maxAnswerPages    = 5
	maxNarrativeDocs  = 5
	noKeywordsMessage = "No searchable keywords could be extracted from the question. Try rephrasing it with more specific terms."
	noMatchesMessage  = "No relevant content was found for this question in %s."
	noDocsMessage     = "There are no documents available to search yet."
)

// Aggregator runs questions against the index and composes answers.
type Aggregator struct {
	index  *index.PageIndex
	corpus Corpus
	cfg    config.SearchConfig
	logger *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(idx *index.PageIndex, corpus Corpus, cfg config.SearchConfig) *Aggregator {
	return &Aggregator{
		index:  idx,
		corpus: corpus,
		cfg:    cfg,
		logger: slog.Default().With("component", "search-aggregator"),
	}
}

// SearchSingle answers a question against one document. A question with no
// extractable keywords and a search with no matches both return structured
// results with distinct messages; only unknown documents and store failures
// surface as errors.
func (a *Aggregator) SearchSingle(ctx context.Context, question, docID string) (*SingleResult, error) {
	analysis := keyword.Extract(question)
	doc, err := a.corpus.Get(ctx, docID)
	if err != nil {
		return nil, err
	}

	result := &SingleResult{
		Question:   question,
		DocumentID: docID,
		Filename:   doc.Filename,
		Keywords:   analysis.Keywords,
		Intent:     analysis.Intent,
	}
	if len(analysis.Keywords) == 0 {
		result.Outcome = OutcomeNoKeywords
		result.Answer = noKeywordsMessage
		return result, nil
	}

	matches, err := a.findMatches(ctx, docID, doc.Filename, analysis.Keywords)
	if err != nil {
		return nil, err
	}
	a.corpus.RecordAccess(ctx, docID)

	result.TotalMatches = len(matches)
	if len(matches) == 0 {
		result.Outcome = OutcomeNoMatches
		result.Answer = fmt.Sprintf(noMatchesMessage, doc.Filename)
		return result, nil
	}

	result.Outcome = OutcomeMatched
	result.Pages = topPages(matches, maxAnswerPages)
	result.Answer = buildSingleAnswer(analysis, doc.Filename, result.Pages, len(matches))
	return result, nil
}

// findMatches consults the index for indexed documents and falls back to a
// raw page scan for content the index has not seen yet. Keywords combine
// with OR: a page matching only some of the question's terms still counts,
// it just ranks below pages matching more of them.
func (a *Aggregator) findMatches(ctx context.Context, docID, filename string, keywords []string) ([]index.Match, error) {
	if a.index.HasDocument(docID) {
		query := strings.Join(keywords, " OR ")
		return a.index.Search(query, []string{docID}, a.cfg.MaxResults), nil
	}
	a.logger.Debug("document not indexed, scanning pages", "document_id", docID)
	pages, err := a.corpus.Pages(ctx, docID)
	if err != nil {
		return nil, err
	}
	return index.ScanPages(docID, filename, pages, keywords), nil
}

// SearchMany answers a question across a set of documents, or the whole
// corpus when matchAll is set. Individual document failures are logged and
// skipped; the batch result reports them without failing.
func (a *Aggregator) SearchMany(ctx context.Context, question string, docIDs []string, matchAll bool) (*MultiResult, error) {
	analysis := keyword.Extract(question)
	result := &MultiResult{
		Question: question,
		Keywords: analysis.Keywords,
		Intent:   analysis.Intent,
	}
	if len(analysis.Keywords) == 0 {
		result.Outcome = OutcomeNoKeywords
		result.Answer = noKeywordsMessage
		return result, nil
	}

	candidates, failed, err := a.resolveCandidates(ctx, docIDs, matchAll)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		sort.Strings(failed)
		result.FailedDocuments = failed
		result.Outcome = OutcomeNoDocuments
		result.Answer = noDocsMessage
		return result, nil
	}

	summaries := make([]DocumentSummary, 0, len(candidates))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrentDocs)
	for _, doc := range candidates {
		g.Go(func() error {
			matches, err := a.findMatches(gctx, doc.ID, doc.Filename, analysis.Keywords)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.logger.Warn("skipping document after search failure",
					"document_id", doc.ID, "error", err)
				failed = append(failed, doc.ID)
				return nil
			}
			summaries = append(summaries, DocumentSummary{
				DocumentID: doc.ID,
				Filename:   doc.Filename,
				Matches:    len(matches),
				TopPages:   topPages(matches, maxAnswerPages),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Goroutine completion order leaks into the slices; restore a total
	// order so identical inputs yield identical output.
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Matches != summaries[j].Matches {
			return summaries[i].Matches > summaries[j].Matches
		}
		if summaries[i].Filename != summaries[j].Filename {
			return summaries[i].Filename < summaries[j].Filename
		}
		return summaries[i].DocumentID < summaries[j].DocumentID
	})
	sort.Strings(failed)

	result.Results = summaries
	result.FailedDocuments = failed
	result.Comparison = compare(summaries)

	if result.Comparison.DocsWithResults == 0 {
		result.Outcome = OutcomeNoMatches
		result.Answer = fmt.Sprintf(noMatchesMessage,
			fmt.Sprintf("any of the %d searched documents", len(summaries)))
		return result, nil
	}
	result.Outcome = OutcomeMatched
	result.Answer = buildMultiAnswer(analysis, summaries, result.Comparison)
	return result, nil
}

// resolveCandidates loads metadata for the requested documents. IDs the
// store cannot serve are skipped and reported back, never fatal: one bad
// reference must not sink the rest of the batch.
func (a *Aggregator) resolveCandidates(ctx context.Context, docIDs []string, matchAll bool) ([]docstore.Document, []string, error) {
	if matchAll {
		docs, err := a.corpus.List(ctx)
		return docs, nil, err
	}
	docs := make([]docstore.Document, 0, len(docIDs))
	var failed []string
	for _, id := range docIDs {
		doc, err := a.corpus.Get(ctx, id)
		if err != nil {
			a.logger.Warn("skipping unavailable document",
				"document_id", id, "error", err)
			failed = append(failed, id)
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, failed, nil
}

// topPages keeps the best-scoring pages in rank order, each with at most
// two excerpts.
func topPages(matches []index.Match, limit int) []PageHit {
	hits := make([]PageHit, 0, limit)
	for _, m := range matches {
		if len(hits) == limit {
			break
		}
		excerpts := m.Excerpts
		if len(excerpts) > 2 {
			excerpts = excerpts[:2]
		}
		hits = append(hits, PageHit{
			Page:     m.Page,
			Score:    m.Score,
			Excerpts: excerpts,
		})
	}
	return hits
}

func compare(summaries []DocumentSummary) *Comparison {
	cmp := &Comparison{}
	totalMatches := 0
	for _, s := range summaries {
		if s.Matches > 0 {
			cmp.DocsWithResults++
			totalMatches += s.Matches
		} else {
			cmp.DocsWithout++
		}
	}
	if cmp.DocsWithResults > 0 {
		cmp.MostRelevant = summaries[0].Filename
		cmp.AvgMatches = round2(float64(totalMatches) / float64(cmp.DocsWithResults))
	}
	return cmp
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
