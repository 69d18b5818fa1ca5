package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// PageIndex is an in-memory inverted index over document pages. A single
// write lock serialises mutations, so a document replace is atomic to
// concurrent readers.
type PageIndex struct {
	mu       sync.RWMutex
	postings map[string]map[pageKey]*Posting
	pages    map[pageKey]*pageInfo
	docs     map[string]string
	totalLen int
	size     int64
	logger   *slog.Logger
}

// NewPageIndex creates an empty PageIndex.
func NewPageIndex() *PageIndex {
	return &PageIndex{
		postings: make(map[string]map[pageKey]*Posting),
		pages:    make(map[pageKey]*pageInfo),
		docs:     make(map[string]string),
		logger:   slog.Default().With("component", "page-index"),
	}
}

// Index replaces all postings for a document with postings built from the
// given pages. Blank pages are skipped; a document with no indexable text
// ends up absent from the index, which is not an error. Re-indexing the
// same content is idempotent.
func (m *PageIndex) Index(docID, filename string, pages map[int]string) {
	type indexedPage struct {
		page   int
		text   string
		length int
		terms  map[string]*Posting
	}
	prepared := make([]indexedPage, 0, len(pages))
	for pageNum, text := range pages {
		if strings.TrimSpace(text) == "" {
			continue
		}
		tokens := Tokenize(text)
		terms := make(map[string]*Posting)
		for _, token := range tokens {
			p, exists := terms[token.Term]
			if !exists {
				p = &Posting{Positions: make([]int, 0, 4)}
				terms[token.Term] = p
			}
			p.Frequency++
			p.Positions = append(p.Positions, token.Position)
		}
		prepared = append(prepared, indexedPage{
			page:   pageNum,
			text:   text,
			length: len(tokens),
			terms:  terms,
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(docID)
	if len(prepared) == 0 {
		m.logger.Debug("document had no indexable text", "document_id", docID)
		return
	}
	for _, ip := range prepared {
		key := pageKey{docID: docID, page: ip.page}
		m.pages[key] = &pageInfo{
			filename: filename,
			text:     ip.text,
			length:   ip.length,
		}
		m.totalLen += ip.length
		for term, posting := range ip.terms {
			if _, exists := m.postings[term]; !exists {
				m.postings[term] = make(map[pageKey]*Posting)
			}
			m.postings[term][key] = posting
			m.size += int64(len(term) + len(posting.Positions)*8 + 64)
		}
	}
	m.docs[docID] = filename
	m.logger.Info("document indexed",
		"document_id", docID,
		"filename", filename,
		"pages", len(prepared),
	)
}

// Remove deletes every posting for the document. Removing an unknown
// document is a no-op.
func (m *PageIndex) Remove(docID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(docID)
}

func (m *PageIndex) removeLocked(docID string) {
	if _, known := m.docs[docID]; !known {
		return
	}
	for key, info := range m.pages {
		if key.docID != docID {
			continue
		}
		m.totalLen -= info.length
		delete(m.pages, key)
	}
	for term, byPage := range m.postings {
		for key, posting := range byPage {
			if key.docID != docID {
				continue
			}
			m.size -= int64(len(term) + len(posting.Positions)*8 + 64)
			delete(byPage, key)
		}
		if len(byPage) == 0 {
			delete(m.postings, term)
		}
	}
	delete(m.docs, docID)
}

// HasDocument reports whether the document has any indexed pages.
func (m *PageIndex) HasDocument(docID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[docID]
	return ok
}

// Search runs the query against the index and returns ranked page matches.
// Scope, when non-empty, restricts results to the given document IDs.
// Results order by score descending, then page ascending, then filename,
// so identical index state always yields identical output.
func (m *PageIndex) Search(query string, scope []string, limit int) []Match {
	plan := ParseQuery(query)
	if plan.Empty() {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.pages) == 0 {
		return nil
	}

	var scopeSet map[string]struct{}
	if len(scope) > 0 {
		scopeSet = make(map[string]struct{}, len(scope))
		for _, id := range scope {
			scopeSet[id] = struct{}{}
		}
	}
	inScope := func(key pageKey) bool {
		if scopeSet == nil {
			return true
		}
		_, ok := scopeSet[key.docID]
		return ok
	}

	// Candidate pages matching the term clauses.
	candidates := make(map[pageKey]map[string]int)
	seeded := false
	for i, term := range plan.Terms {
		byPage := m.postings[term]
		if plan.Type == QueryAND {
			if len(byPage) == 0 {
				return nil
			}
			if i == 0 {
				seeded = true
				for key, posting := range byPage {
					if inScope(key) {
						candidates[key] = map[string]int{term: posting.Frequency}
					}
				}
				continue
			}
			for key, freqs := range candidates {
				posting, ok := byPage[key]
				if !ok {
					delete(candidates, key)
					continue
				}
				freqs[term] = posting.Frequency
			}
			if len(candidates) == 0 {
				return nil
			}
		} else {
			for key, posting := range byPage {
				if !inScope(key) {
					continue
				}
				if _, ok := candidates[key]; !ok {
					candidates[key] = make(map[string]int)
				}
				candidates[key][term] = posting.Frequency
			}
		}
	}

	// Phrase clauses. In AND mode every phrase must occur; in OR mode a
	// phrase occurrence qualifies a page on its own.
	for _, phrase := range plan.Phrases {
		phraseTerm := strings.Join(phrase, " ")
		occurrences := m.phraseOccurrences(phrase, inScope)
		if plan.Type == QueryAND {
			if !seeded {
				seeded = true
				for key, count := range occurrences {
					candidates[key] = map[string]int{phraseTerm: count}
				}
				continue
			}
			for key, freqs := range candidates {
				count, ok := occurrences[key]
				if !ok {
					delete(candidates, key)
					continue
				}
				freqs[phraseTerm] = count
			}
			if len(candidates) == 0 {
				return nil
			}
		} else {
			for key, count := range occurrences {
				if _, ok := candidates[key]; !ok {
					candidates[key] = make(map[string]int)
				}
				candidates[key][phraseTerm] = count
			}
		}
	}

	for _, excluded := range plan.ExcludeTerms {
		for key := range m.postings[excluded] {
			delete(candidates, key)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	// Document frequencies for every clause that made it into a candidate.
	docFreqs := make(map[string]int)
	for _, freqs := range candidates {
		for clause := range freqs {
			if _, done := docFreqs[clause]; done {
				continue
			}
			if byPage, ok := m.postings[clause]; ok {
				docFreqs[clause] = len(byPage)
			} else {
				count := 0
				for _, other := range candidates {
					if _, has := other[clause]; has {
						count++
					}
				}
				docFreqs[clause] = count
			}
		}
	}

	snippetTerms := make(map[string]struct{}, len(plan.Terms))
	for _, t := range plan.Terms {
		snippetTerms[t] = struct{}{}
	}
	for _, phrase := range plan.Phrases {
		for _, t := range phrase {
			snippetTerms[t] = struct{}{}
		}
	}

	avgLength := float64(m.totalLen) / float64(len(m.pages))
	matches := make([]Match, 0, len(candidates))
	for key, freqs := range candidates {
		info := m.pages[key]
		excerpts := makeExcerpts(info.text, snippetTerms, maxPageExcerpt)
		snippet := ""
		if len(excerpts) > 0 {
			snippet = excerpts[0]
		}
		matches = append(matches, Match{
			DocID:    key.docID,
			Filename: info.filename,
			Page:     key.page,
			Score: scorePage(scoreInput{
				termFreqs:  freqs,
				docFreqs:   docFreqs,
				earliest:   m.earliestPosition(key, plan.Terms),
				pageLength: info.length,
				totalPages: len(m.pages),
				avgLength:  avgLength,
			}),
			Snippet:  snippet,
			Excerpts: excerpts,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Page != matches[j].Page {
			return matches[i].Page < matches[j].Page
		}
		if matches[i].Filename != matches[j].Filename {
			return matches[i].Filename < matches[j].Filename
		}
		return matches[i].DocID < matches[j].DocID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// phraseOccurrences returns, per page, how many times the phrase's terms
// occur at consecutive token positions.
func (m *PageIndex) phraseOccurrences(phrase []string, inScope func(pageKey) bool) map[pageKey]int {
	if len(phrase) == 0 {
		return nil
	}
	first := m.postings[phrase[0]]
	result := make(map[pageKey]int)
	for key, posting := range first {
		if !inScope(key) {
			continue
		}
		if len(phrase) == 1 {
			result[key] = posting.Frequency
			continue
		}
		count := 0
		for _, start := range posting.Positions {
			ok := true
			for offset := 1; offset < len(phrase); offset++ {
				next, exists := m.postings[phrase[offset]][key]
				if !exists || !containsPosition(next.Positions, start+offset) {
					ok = false
					break
				}
			}
			if ok {
				count++
			}
		}
		if count > 0 {
			result[key] = count
		}
	}
	return result
}

func containsPosition(positions []int, want int) bool {
	i := sort.SearchInts(positions, want)
	return i < len(positions) && positions[i] == want
}

// earliestPosition finds the smallest token position among the query terms
// on the page, or -1 if none of the plain terms occur there.
func (m *PageIndex) earliestPosition(key pageKey, terms []string) int {
	earliest := -1
	for _, term := range terms {
		posting, ok := m.postings[term][key]
		if !ok || len(posting.Positions) == 0 {
			continue
		}
		if earliest < 0 || posting.Positions[0] < earliest {
			earliest = posting.Positions[0]
		}
	}
	return earliest
}

// PageSource supplies the full corpus for a rebuild, document by document.
type PageSource interface {
	EachDocument(ctx context.Context, fn func(docID, filename string, pages map[int]string) error) error
}

// Rebuild wipes the index and re-indexes every document from the source.
// It returns the number of documents reprocessed. This is the recovery
// path when index state is suspected to be inconsistent.
func (m *PageIndex) Rebuild(ctx context.Context, source PageSource) (int, error) {
	m.mu.Lock()
	m.postings = make(map[string]map[pageKey]*Posting)
	m.pages = make(map[pageKey]*pageInfo)
	m.docs = make(map[string]string)
	m.totalLen = 0
	m.size = 0
	m.mu.Unlock()

	count := 0
	err := source.EachDocument(ctx, func(docID, filename string, pages map[int]string) error {
		m.Index(docID, filename, pages)
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("rebuilding index: %w", err)
	}
	m.logger.Info("index rebuilt", "documents", count)
	return count, nil
}

// Stats returns a summary of the index's contents.
func (m *PageIndex) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Documents: len(m.docs),
		Pages:     len(m.pages),
		Terms:     len(m.postings),
		SizeBytes: m.size,
	}
}
