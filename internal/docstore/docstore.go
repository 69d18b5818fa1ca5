// Package docstore persists document metadata and per-page content in
// PostgreSQL. It supplies the corpus listing for all-document searches, page
// text for fallback scanning and index rebuilds, and access bookkeeping.
// Page content reads go through an in-process LRU cache.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/postgres"
)

// Document is a stored document's metadata.
type Document struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	PageCount    int       `json:"page_count"`
	WordCount    int       `json:"word_count"`
	AccessCount  int       `json:"access_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

const createDocumentTables = `
CREATE TABLE IF NOT EXISTS documents (
    id            TEXT PRIMARY KEY,
    filename      TEXT NOT NULL,
    page_count    INTEGER NOT NULL DEFAULT 0,
    word_count    INTEGER NOT NULL DEFAULT 0,
    access_count  INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_accessed TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS document_pages (
    document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    page_number INTEGER NOT NULL,
    content     TEXT NOT NULL,
    PRIMARY KEY (document_id, page_number)
);
`

// Store is the PostgreSQL-backed document store.
type Store struct {
	db        *postgres.Client
	pageCache *lru.Cache[string, map[int]string]
	logger    *slog.Logger
}

// New creates the store, its schema if missing, and the page-content LRU.
func New(ctx context.Context, db *postgres.Client, cacheSize int) (*Store, error) {
	if _, err := db.DB.ExecContext(ctx, createDocumentTables); err != nil {
		return nil, fmt.Errorf("creating document schema: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = 128
	}
	pageCache, err := lru.New[string, map[int]string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating page cache: %w", err)
	}
	return &Store{
		db:        db,
		pageCache: pageCache,
		logger:    slog.Default().With("component", "docstore"),
	}, nil
}

// SavePages stores a document's metadata and replaces its page content.
// The delete-then-insert runs in one transaction, so readers see either the
// old pages or the new ones, never a mix.
func (s *Store) SavePages(ctx context.Context, docID, filename string, pages map[int]string) error {
	wordCount := 0
	for _, text := range pages {
		wordCount += countWords(text)
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, filename, page_count, word_count)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
			    filename   = EXCLUDED.filename,
			    page_count = EXCLUDED.page_count,
			    word_count = EXCLUDED.word_count`,
			docID, filename, len(pages), wordCount)
		if err != nil {
			return fmt.Errorf("upserting document: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM document_pages WHERE document_id = $1`, docID); err != nil {
			return fmt.Errorf("clearing old pages: %w", err)
		}
		for pageNum, content := range pages {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO document_pages (document_id, page_number, content)
				VALUES ($1, $2, $3)`, docID, pageNum, content); err != nil {
				return fmt.Errorf("inserting page %d: %w", pageNum, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.pageCache.Remove(docID)
	s.logger.Info("document saved", "document_id", docID, "filename", filename, "pages", len(pages))
	return nil
}

// Delete removes the document and its pages, returning the filename it had.
func (s *Store) Delete(ctx context.Context, docID string) (string, error) {
	var filename string
	err := s.db.DB.QueryRowContext(ctx,
		`DELETE FROM documents WHERE id = $1 RETURNING filename`, docID,
	).Scan(&filename)
	if err == sql.ErrNoRows {
		return "", apperrors.ErrDocumentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("deleting document: %w", err)
	}
	s.pageCache.Remove(docID)
	s.logger.Info("document deleted", "document_id", docID, "filename", filename)
	return filename, nil
}

// Get loads a document's metadata.
func (s *Store) Get(ctx context.Context, docID string) (*Document, error) {
	var doc Document
	err := s.db.DB.QueryRowContext(ctx, `
		SELECT id, filename, page_count, word_count, access_count, created_at, last_accessed
		FROM documents WHERE id = $1`, docID,
	).Scan(&doc.ID, &doc.Filename, &doc.PageCount, &doc.WordCount,
		&doc.AccessCount, &doc.CreatedAt, &doc.LastAccessed)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	return &doc, nil
}

// List returns every stored document ordered by filename.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT id, filename, page_count, word_count, access_count, created_at, last_accessed
		FROM documents ORDER BY filename, id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.PageCount, &doc.WordCount,
			&doc.AccessCount, &doc.CreatedAt, &doc.LastAccessed); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Pages loads a document's page content, serving from the LRU when warm.
func (s *Store) Pages(ctx context.Context, docID string) (map[int]string, error) {
	if pages, ok := s.pageCache.Get(docID); ok {
		return pages, nil
	}
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT page_number, content FROM document_pages
		WHERE document_id = $1 ORDER BY page_number`, docID)
	if err != nil {
		return nil, fmt.Errorf("loading pages: %w", err)
	}
	defer rows.Close()

	pages := make(map[int]string)
	for rows.Next() {
		var num int
		var content string
		if err := rows.Scan(&num, &content); err != nil {
			return nil, fmt.Errorf("scanning page row: %w", err)
		}
		pages[num] = content
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		if _, err := s.Get(ctx, docID); err != nil {
			return nil, err
		}
	}
	s.pageCache.Add(docID, pages)
	return pages, nil
}

// RecordAccess bumps a document's access counter, best effort.
func (s *Store) RecordAccess(ctx context.Context, docID string) {
	_, err := s.db.DB.ExecContext(ctx, `
		UPDATE documents
		SET access_count = access_count + 1, last_accessed = NOW()
		WHERE id = $1`, docID)
	if err != nil {
		s.logger.Warn("failed to record document access", "document_id", docID, "error", err)
	}
}

// EachDocument streams the full corpus, document by document. It satisfies
// the index's rebuild source.
func (s *Store) EachDocument(ctx context.Context, fn func(docID, filename string, pages map[int]string) error) error {
	docs, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		pages, err := s.Pages(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("loading pages for %s: %w", doc.ID, err)
		}
		if err := fn(doc.ID, doc.Filename, pages); err != nil {
			return err
		}
	}
	return nil
}

func countWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
