// Package benchmark contains Go benchmarks for the page index, the
// tokenizer, and the query pipeline, measuring throughput and allocation
// behaviour.
package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/index"
)

func samplePages(n int) map[int]string {
	pages := make(map[int]string, n)
	for p := 1; p <= n; p++ {
		pages[p] = fmt.Sprintf(
			"Page %d covers server configuration, backup scheduling, and network "+
				"monitoring. The installation process requires administrator access "+
				"and a working database connection.", p)
	}
	return pages
}

// BenchmarkPageIndexInsert measures per-document indexing throughput.
func BenchmarkPageIndexInsert(b *testing.B) {
	idx := index.NewPageIndex()
	pages := samplePages(10)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		docID := fmt.Sprintf("doc-%d", i)
		idx.Index(docID, docID+".pdf", pages)
	}
}

// BenchmarkPageIndexReindex measures the delete-then-insert path taken when
// a document is re-published.
func BenchmarkPageIndexReindex(b *testing.B) {
	idx := index.NewPageIndex()
	pages := samplePages(10)
	idx.Index("doc-1", "doc-1.pdf", pages)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Index("doc-1", "doc-1.pdf", pages)
	}
}

// BenchmarkPageIndexSearch measures query latency over a 1 000 document
// corpus at varying query shapes.
func BenchmarkPageIndexSearch(b *testing.B) {
	idx := index.NewPageIndex()
	for i := 0; i < 1000; i++ {
		docID := fmt.Sprintf("doc-%d", i)
		idx.Index(docID, docID+".pdf", samplePages(5))
	}

	queries := []struct {
		name  string
		query string
	}{
		{"single_term", "configuration"},
		{"multi_term", "server backup network"},
		{"phrase", `"server configuration"`},
		{"boolean_or", "backup OR monitoring"},
		{"with_not", "configuration NOT printer"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				matches := idx.Search(q.query, nil, 100)
				_ = matches
			}
		})
	}
}

// BenchmarkPageIndexSearchParallel measures concurrent read throughput.
func BenchmarkPageIndexSearchParallel(b *testing.B) {
	idx := index.NewPageIndex()
	for i := 0; i < 1000; i++ {
		docID := fmt.Sprintf("doc-%d", i)
		idx.Index(docID, docID+".pdf", samplePages(5))
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			matches := idx.Search("server backup configuration", nil, 100)
			_ = matches
		}
	})
}

type benchSource struct {
	docs int
}

func (s benchSource) EachDocument(ctx context.Context, fn func(docID, filename string, pages map[int]string) error) error {
	pages := samplePages(5)
	for i := 0; i < s.docs; i++ {
		docID := fmt.Sprintf("doc-%d", i)
		if err := fn(docID, docID+".pdf", pages); err != nil {
			return err
		}
	}
	return nil
}

// BenchmarkPageIndexRebuild measures the full startup rebuild at varying
// corpus sizes.
func BenchmarkPageIndexRebuild(b *testing.B) {
	sizes := []int{100, 1000, 5000}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("docs_%d", size), func(b *testing.B) {
			source := benchSource{docs: size}
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				idx := index.NewPageIndex()
				if _, err := idx.Rebuild(context.Background(), source); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkScanPages measures the regex fallback used for documents the
// index has not seen.
func BenchmarkScanPages(b *testing.B) {
	pages := samplePages(50)
	keywords := []string{"server", "backup", "configuration"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		matches := index.ScanPages("doc-1", "doc-1.pdf", pages, keywords)
		_ = matches
	}
}
