package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/postgres"
)

// PostgresStore is the durable Store implementation. The fingerprint primary
// key plus ON CONFLICT upsert gives single-writer-per-row semantics without
// any application-level locking.
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS query_cache (
    fingerprint   TEXT PRIMARY KEY,
    question      TEXT NOT NULL,
    documents     TEXT[] NOT NULL DEFAULT '{}',
    mode          TEXT NOT NULL,
    payload       BYTEA NOT NULL,
    hit_count     INTEGER NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL,
    last_accessed TIMESTAMPTZ NOT NULL,
    expires_at    TIMESTAMPTZ NOT NULL,
    state         TEXT NOT NULL DEFAULT 'valid'
);
CREATE INDEX IF NOT EXISTS idx_query_cache_state ON query_cache (state, last_accessed);
`

// NewPostgresStore creates the store and its schema if missing.
func NewPostgresStore(ctx context.Context, db *postgres.Client) (*PostgresStore, error) {
	if _, err := db.DB.ExecContext(ctx, createCacheTable); err != nil {
		return nil, fmt.Errorf("creating query_cache schema: %w", err)
	}
	return &PostgresStore{
		db:     db,
		logger: slog.Default().With("component", "cache-store"),
	}, nil
}

func (s *PostgresStore) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	row := s.db.DB.QueryRowContext(ctx, `
		SELECT fingerprint, question, documents, mode, payload,
		       hit_count, created_at, last_accessed, expires_at, state
		FROM query_cache WHERE fingerprint = $1`, fingerprint)

	var entry Entry
	var docs pq.StringArray
	var state string
	err := row.Scan(&entry.Fingerprint, &entry.Question, &docs, &entry.Mode,
		&entry.Payload, &entry.HitCount, &entry.CreatedAt,
		&entry.LastAccessed, &entry.ExpiresAt, &state)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cache entry: %w", err)
	}
	entry.Documents = []string(docs)
	entry.State = State(state)
	return &entry, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, entry *Entry) error {
	_, err := s.db.DB.ExecContext(ctx, `
		INSERT INTO query_cache
		    (fingerprint, question, documents, mode, payload,
		     hit_count, created_at, last_accessed, expires_at, state)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $9)
		ON CONFLICT (fingerprint) DO UPDATE SET
		    question      = EXCLUDED.question,
		    documents     = EXCLUDED.documents,
		    mode          = EXCLUDED.mode,
		    payload       = EXCLUDED.payload,
		    last_accessed = EXCLUDED.last_accessed,
		    expires_at    = EXCLUDED.expires_at,
		    state         = EXCLUDED.state`,
		entry.Fingerprint, entry.Question, pq.Array(entry.Documents),
		entry.Mode, entry.Payload, entry.CreatedAt, entry.LastAccessed,
		entry.ExpiresAt, string(entry.State))
	if err != nil {
		return fmt.Errorf("upserting cache entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordHit(ctx context.Context, fingerprint string, at time.Time) error {
	_, err := s.db.DB.ExecContext(ctx, `
		UPDATE query_cache
		SET hit_count = hit_count + 1, last_accessed = $2
		WHERE fingerprint = $1`, fingerprint, at)
	if err != nil {
		return fmt.Errorf("recording cache hit: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetState(ctx context.Context, fingerprint string, state State) error {
	_, err := s.db.DB.ExecContext(ctx, `
		UPDATE query_cache SET state = $2 WHERE fingerprint = $1`,
		fingerprint, string(state))
	if err != nil {
		return fmt.Errorf("setting cache entry state: %w", err)
	}
	return nil
}

func (s *PostgresStore) InvalidateForDocument(ctx context.Context, filename string) ([]string, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		UPDATE query_cache SET state = 'expired'
		WHERE state = 'valid' AND $1 = ANY(documents)
		RETURNING fingerprint`, filename)
	if err != nil {
		return nil, fmt.Errorf("invalidating cache for document %s: %w", filename, err)
	}
	defer rows.Close()

	var affected []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return affected, fmt.Errorf("scanning invalidated fingerprint: %w", err)
		}
		affected = append(affected, fp)
	}
	return affected, rows.Err()
}

func (s *PostgresStore) Maintenance(ctx context.Context, now time.Time, maxEntries, minHits int) (MaintenanceReport, error) {
	var report MaintenanceReport
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE query_cache SET state = 'expired'
			WHERE state = 'valid' AND expires_at <= $1`, now)
		if err != nil {
			return fmt.Errorf("expiring entries: %w", err)
		}
		expired, _ := res.RowsAffected()
		report.Expired = int(expired)

		var valid int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM query_cache WHERE state = 'valid'`,
		).Scan(&valid); err != nil {
			return fmt.Errorf("counting valid entries: %w", err)
		}

		if maxEntries > 0 && valid > maxEntries {
			res, err := tx.ExecContext(ctx, `
				DELETE FROM query_cache
				WHERE fingerprint IN (
				    SELECT fingerprint FROM query_cache
				    WHERE state = 'valid' AND hit_count < $1
				    ORDER BY last_accessed ASC
				    LIMIT $2
				)`, minHits, valid-maxEntries)
			if err != nil {
				return fmt.Errorf("evicting entries: %w", err)
			}
			evicted, _ := res.RowsAffected()
			report.Evicted = int(evicted)
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM query_cache WHERE state = 'valid'`,
		).Scan(&report.Remaining); err != nil {
			return fmt.Errorf("counting remaining entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	s.logger.Info("cache maintenance complete",
		"expired", report.Expired,
		"evicted", report.Evicted,
		"remaining", report.Remaining,
	)
	return report, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE state = 'valid'),
		       COUNT(*) FILTER (WHERE state = 'expired'),
		       COALESCE(SUM(hit_count), 0)
		FROM query_cache`,
	).Scan(&stats.TotalEntries, &stats.ValidEntries, &stats.ExpiredEntries, &stats.TotalHits)
	if err != nil {
		return stats, fmt.Errorf("querying cache stats: %w", err)
	}

	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT question, hit_count FROM query_cache
		ORDER BY hit_count DESC, fingerprint ASC LIMIT 5`)
	if err != nil {
		return stats, fmt.Errorf("querying top questions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var q QuestionStat
		if err := rows.Scan(&q.Question, &q.HitCount); err != nil {
			return stats, fmt.Errorf("scanning top question: %w", err)
		}
		stats.TopQuestions = append(stats.TopQuestions, q)
	}
	return stats, rows.Err()
}
