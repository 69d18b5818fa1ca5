package cache

import (
	"context"
	"time"
)

// MaintenanceReport summarises one maintenance pass.
type MaintenanceReport struct {
	Expired   int `json:"expired"`
	Evicted   int `json:"evicted"`
	Remaining int `json:"remaining"`
}

// QuestionStat is a popular cached question for the stats endpoint.
type QuestionStat struct {
	Question string `json:"question"`
	HitCount int    `json:"hit_count"`
}

// Stats describes the cache's current population.
type Stats struct {
	TotalEntries   int            `json:"total_entries"`
	ValidEntries   int            `json:"valid_entries"`
	ExpiredEntries int            `json:"expired_entries"`
	TotalHits      int            `json:"total_hits"`
	TopQuestions   []QuestionStat `json:"top_questions"`
}

// Store is the durable backing for cache entries. Implementations must make
// Upsert atomic per fingerprint so concurrent writers resolve to
// last-writer-wins without partial rows.
type Store interface {
	// Get returns the entry for the fingerprint, or nil if absent.
	Get(ctx context.Context, fingerprint string) (*Entry, error)

	// Upsert inserts the entry or overwrites an existing row with the same
	// fingerprint. On overwrite the accumulated hit count is preserved and
	// the state returns to valid.
	Upsert(ctx context.Context, entry *Entry) error

	// RecordHit increments the entry's hit count and refreshes its
	// last-accessed time.
	RecordHit(ctx context.Context, fingerprint string, at time.Time) error

	// SetState moves the entry to the given lifecycle state.
	SetState(ctx context.Context, fingerprint string, state State) error

	// InvalidateForDocument soft-expires every valid entry whose document
	// set references the filename, returning their fingerprints.
	InvalidateForDocument(ctx context.Context, filename string) ([]string, error)

	// Maintenance expires lapsed entries, then while the valid population
	// exceeds maxEntries deletes the least-recently-accessed entries whose
	// hit count is below minHits.
	Maintenance(ctx context.Context, now time.Time, maxEntries, minHits int) (MaintenanceReport, error)

	// Stats reports the cache population.
	Stats(ctx context.Context) (Stats, error)
}
