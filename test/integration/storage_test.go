// Package integration contains tests that verify the PostgreSQL-backed
// stores against a real database. They skip automatically when PostgreSQL is
// unavailable.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/postgres"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "docquery_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "docquery"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestDocstoreRoundTrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()

	store, err := docstore.New(ctx, db, 16)
	if err != nil {
		t.Fatalf("creating docstore: %v", err)
	}

	docID := uniqueID("itest-doc")
	filename := docID + ".pdf"
	pages := map[int]string{
		1: "Configure the backup server before the first run.",
		2: "The schedule lives in the configuration file.",
	}
	if err := store.SavePages(ctx, docID, filename, pages); err != nil {
		t.Fatalf("SavePages: %v", err)
	}
	t.Cleanup(func() { store.Delete(ctx, docID) })

	doc, err := store.Get(ctx, docID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.Filename != filename || doc.PageCount != 2 {
		t.Errorf("doc = %+v", doc)
	}
	if doc.WordCount == 0 {
		t.Error("word count should be derived from page content")
	}

	got, err := store.Pages(ctx, docID)
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if got[1] != pages[1] || got[2] != pages[2] {
		t.Errorf("pages = %v", got)
	}

	// Re-publishing replaces the old pages entirely.
	if err := store.SavePages(ctx, docID, filename, map[int]string{1: "replacement"}); err != nil {
		t.Fatalf("SavePages replace: %v", err)
	}
	doc, err = store.Get(ctx, docID)
	if err != nil {
		t.Fatalf("Get after replace: %v", err)
	}
	if doc.PageCount != 1 {
		t.Errorf("page count after replace = %d, want 1", doc.PageCount)
	}

	name, err := store.Delete(ctx, docID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if name != filename {
		t.Errorf("deleted filename = %s, want %s", name, filename)
	}
	if _, err := store.Get(ctx, docID); err == nil {
		t.Error("Get after delete should fail")
	}
}

func TestCacheStoreLifecycle(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()

	store, err := cache.NewPostgresStore(ctx, db)
	if err != nil {
		t.Fatalf("creating cache store: %v", err)
	}

	filename := uniqueID("itest") + ".pdf"
	fp := cache.Fingerprint("how do i configure the server", []string{filename}, "single")
	now := time.Now().UTC().Truncate(time.Millisecond)

	entry := &cache.Entry{
		Fingerprint:  fp,
		Question:     "how do i configure the server",
		Documents:    []string{filename},
		Mode:         "single",
		Payload:      []byte(`{"version":1,"data":{}}`),
		CreatedAt:    now,
		LastAccessed: now,
		ExpiresAt:    now.Add(time.Hour),
		State:        cache.StateValid,
	}
	if err := store.Upsert(ctx, entry); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	t.Cleanup(func() {
		store.InvalidateForDocument(ctx, filename)
	})

	got, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.State != cache.StateValid {
		t.Fatalf("entry = %+v", got)
	}

	if err := store.RecordHit(ctx, fp, now.Add(time.Minute)); err != nil {
		t.Fatalf("RecordHit: %v", err)
	}
	got, _ = store.Get(ctx, fp)
	if got.HitCount != 1 {
		t.Errorf("hit count = %d, want 1", got.HitCount)
	}

	// Upsert on the same fingerprint keeps the accumulated hit count.
	entry.Payload = []byte(`{"version":1,"data":{"updated":true}}`)
	if err := store.Upsert(ctx, entry); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	got, _ = store.Get(ctx, fp)
	if got.HitCount != 1 {
		t.Errorf("hit count after overwrite = %d, want 1", got.HitCount)
	}

	affected, err := store.InvalidateForDocument(ctx, filename)
	if err != nil {
		t.Fatalf("InvalidateForDocument: %v", err)
	}
	if len(affected) != 1 || affected[0] != fp {
		t.Errorf("affected = %v, want [%s]", affected, fp)
	}
	got, _ = store.Get(ctx, fp)
	if got.State != cache.StateExpired {
		t.Errorf("state after invalidation = %s, want expired", got.State)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
