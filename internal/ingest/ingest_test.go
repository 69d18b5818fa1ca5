package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/index"
)

type fakeWriter struct {
	saved   map[string]map[int]string
	names   map[string]string
	deleted []string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		saved: make(map[string]map[int]string),
		names: make(map[string]string),
	}
}

func (f *fakeWriter) SavePages(ctx context.Context, docID, filename string, pages map[int]string) error {
	f.saved[docID] = pages
	f.names[docID] = filename
	return nil
}

func (f *fakeWriter) Delete(ctx context.Context, docID string) (string, error) {
	name, ok := f.names[docID]
	if !ok {
		return "", errors.New("not found")
	}
	delete(f.saved, docID)
	delete(f.names, docID)
	f.deleted = append(f.deleted, docID)
	return name, nil
}

type fakeInvalidator struct {
	filenames []string
}

func (f *fakeInvalidator) InvalidateForDocument(ctx context.Context, filename string) int {
	f.filenames = append(f.filenames, filename)
	return 1
}

func TestHandlePagesIndexesAndInvalidates(t *testing.T) {
	writer := newFakeWriter()
	inv := &fakeInvalidator{}
	idx := index.NewPageIndex()
	h := NewHandler(writer, idx, inv, nil, nil)

	payload, _ := json.Marshal(PagesEvent{
		DocumentID: "doc-1",
		Filename:   "guide.pdf",
		Pages:      map[int]string{1: "routing table overview"},
	})
	if err := h.HandlePages()(context.Background(), nil, payload); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if _, ok := writer.saved["doc-1"]; !ok {
		t.Error("pages should be persisted")
	}
	if !idx.HasDocument("doc-1") {
		t.Error("document should be indexed")
	}
	if len(inv.filenames) != 1 || inv.filenames[0] != "guide.pdf" {
		t.Errorf("cache invalidation = %v, want [guide.pdf]", inv.filenames)
	}
}

func TestHandlePagesSkipsBadEvents(t *testing.T) {
	writer := newFakeWriter()
	inv := &fakeInvalidator{}
	h := NewHandler(writer, index.NewPageIndex(), inv, nil, nil)

	// Undecodable payload and missing identity must both be swallowed so
	// the consume loop keeps going.
	if err := h.HandlePages()(context.Background(), nil, []byte("{broken")); err != nil {
		t.Errorf("undecodable event should not error the loop: %v", err)
	}
	payload, _ := json.Marshal(PagesEvent{Filename: "orphan.pdf"})
	if err := h.HandlePages()(context.Background(), nil, payload); err != nil {
		t.Errorf("incomplete event should not error the loop: %v", err)
	}
	if len(writer.saved) != 0 {
		t.Error("bad events must not be persisted")
	}
}

func TestHandleRemovedCleansUpEverywhere(t *testing.T) {
	writer := newFakeWriter()
	inv := &fakeInvalidator{}
	idx := index.NewPageIndex()
	h := NewHandler(writer, idx, inv, nil, nil)

	seed, _ := json.Marshal(PagesEvent{
		DocumentID: "doc-1",
		Filename:   "guide.pdf",
		Pages:      map[int]string{1: "routing table overview"},
	})
	h.HandlePages()(context.Background(), nil, seed)

	removal, _ := json.Marshal(RemovedEvent{DocumentID: "doc-1"})
	if err := h.HandleRemoved()(context.Background(), nil, removal); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	if idx.HasDocument("doc-1") {
		t.Error("document should be dropped from the index")
	}
	if len(writer.deleted) != 1 {
		t.Error("document should be deleted from the store")
	}
	// Both the ingest and the removal invalidate the filename.
	if len(inv.filenames) != 2 || inv.filenames[1] != "guide.pdf" {
		t.Errorf("invalidations = %v", inv.filenames)
	}
}
