package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/redis"
)

const hotKeyPrefix = "query:"

// HotLayer is the fast payload cache in front of the durable store.
// Satisfied by pkg/redis.Client.
type HotLayer interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Service ties the durable store, the optional Redis hot layer, and the TTL
// policy together. All store and Redis failures are logged and treated as
// misses: cached answers are an optimisation, never a correctness
// dependency.
type Service struct {
	store   Store
	hot     HotLayer
	cfg     config.CacheConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
	clock   func() time.Time
}

// NewService creates a cache Service. hot and m may be nil.
func NewService(store Store, hot HotLayer, cfg config.CacheConfig, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		hot:     hot,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
		clock:   time.Now,
	}
}

// TTLFor returns the TTL policy for a search mode. Single-document answers
// live longer because a broad search goes stale whenever any one of its
// documents changes.
func (s *Service) TTLFor(mode string) time.Duration {
	if mode == "single" {
		return s.cfg.SingleTTL
	}
	return s.cfg.MultiTTL
}

// Lookup resolves a request against the cache. It returns true and decodes
// the stored payload into out only for a valid, unexpired entry whose
// payload still parses; every other condition is a miss. Looking up an
// entry past its TTL transitions it to the expired state as a side effect.
func (s *Service) Lookup(ctx context.Context, question string, filenames []string, mode string, out any) bool {
	fp := Fingerprint(question, filenames, mode)
	now := s.clock()

	entry, err := s.store.Get(ctx, fp)
	if err != nil {
		s.logger.Warn("cache store unavailable, treating as miss", "error", err)
		s.miss()
		return false
	}
	if entry == nil || entry.State != StateValid {
		s.miss()
		return false
	}
	if entry.Expired(now) {
		if err := s.store.SetState(ctx, fp, StateExpired); err != nil {
			s.logger.Warn("failed to expire cache entry", "fingerprint", fp, "error", err)
		}
		s.dropHot(ctx, fp)
		s.miss()
		return false
	}

	payload := s.hotPayload(ctx, fp)
	if payload == nil {
		payload = entry.Payload
	}
	if err := DecodePayload(payload, out); err != nil {
		s.logger.Warn("undecodable cache payload, treating as miss",
			"fingerprint", fp, "error", err)
		s.miss()
		return false
	}

	if err := s.store.RecordHit(ctx, fp, now); err != nil {
		s.logger.Warn("failed to record cache hit", "fingerprint", fp, "error", err)
	}
	if s.metrics != nil {
		s.metrics.CacheHitsTotal.Inc()
	}
	s.logger.Debug("cache hit", "fingerprint", fp, "mode", mode)
	return true
}

// Store caches a computed result under the request's fingerprint. An upsert
// on an existing fingerprint overwrites payload and deadline, returns the
// entry to the valid state, and keeps its accumulated hit count. A
// non-positive TTL produces an entry that is already expired, useful for
// disabling caching per mode without special cases downstream.
func (s *Service) Store(ctx context.Context, question string, filenames []string, mode string, result any) {
	fp := Fingerprint(question, filenames, mode)
	now := s.clock()
	ttl := s.TTLFor(mode)

	payload, err := EncodePayload(result)
	if err != nil {
		s.logger.Warn("failed to encode cache payload", "fingerprint", fp, "error", err)
		return
	}

	entry := &Entry{
		Fingerprint:  fp,
		Question:     question,
		Documents:    filenames,
		Mode:         mode,
		Payload:      payload,
		CreatedAt:    now,
		LastAccessed: now,
		ExpiresAt:    now.Add(ttl),
		State:        StateValid,
	}
	if ttl <= 0 {
		entry.ExpiresAt = now
		entry.State = StateExpired
	}

	if err := s.store.Upsert(ctx, entry); err != nil {
		s.logger.Warn("failed to store cache entry", "fingerprint", fp, "error", err)
		return
	}
	if s.hot != nil && ttl > 0 {
		if err := s.hot.Set(ctx, hotKeyPrefix+fp, payload, ttl); err != nil {
			// A failed warm can leave the previous payload behind; drop
			// the key so reads fall through to the fresh durable row.
			s.logger.Warn("failed to warm hot layer", "fingerprint", fp, "error", err)
			s.dropHot(ctx, fp)
		}
	}
}

// InvalidateForDocument soft-expires every cached answer that involved the
// filename and drops their hot-layer copies. Returns how many entries were
// affected.
func (s *Service) InvalidateForDocument(ctx context.Context, filename string) int {
	affected, err := s.store.InvalidateForDocument(ctx, filename)
	if err != nil {
		s.logger.Warn("cache invalidation failed", "filename", filename, "error", err)
		return 0
	}
	for _, fp := range affected {
		s.dropHot(ctx, fp)
	}
	if len(affected) > 0 {
		s.logger.Info("cache invalidated for document",
			"filename", filename, "entries", len(affected))
	}
	return len(affected)
}

// InvalidateAll drops every hot-layer key and soft-expires all valid
// entries. Used by the operator endpoint.
func (s *Service) InvalidateAll(ctx context.Context) (int, error) {
	report, err := s.store.Maintenance(ctx, s.clock().Add(365*24*time.Hour), 0, 0)
	if err != nil {
		return 0, err
	}
	if s.hot != nil {
		if _, err := s.hot.FlushByPattern(ctx, hotKeyPrefix+"*"); err != nil {
			s.logger.Warn("failed to flush hot layer", "error", err)
		}
	}
	return report.Expired, nil
}

// Maintenance runs the eviction policy with the configured bounds.
func (s *Service) Maintenance(ctx context.Context) (MaintenanceReport, error) {
	report, err := s.store.Maintenance(ctx, s.clock(), s.cfg.MaxEntries, s.cfg.MinHits)
	if err != nil {
		return report, err
	}
	if s.metrics != nil {
		s.metrics.CacheEvictionsTotal.Add(float64(report.Evicted))
		s.metrics.CacheEntries.Set(float64(report.Remaining))
	}
	return report, nil
}

// Stats reports the cache population from the durable store.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) hotPayload(ctx context.Context, fp string) []byte {
	if s.hot == nil {
		return nil
	}
	data, err := s.hot.Get(ctx, hotKeyPrefix+fp)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			s.logger.Debug("hot layer read failed", "fingerprint", fp, "error", err)
		}
		return nil
	}
	return []byte(data)
}

func (s *Service) dropHot(ctx context.Context, fp string) {
	if s.hot == nil {
		return
	}
	if err := s.hot.Del(ctx, hotKeyPrefix+fp); err != nil {
		s.logger.Debug("hot layer delete failed", "fingerprint", fp, "error", err)
	}
}

func (s *Service) miss() {
	if s.metrics != nil {
		s.metrics.CacheMissesTotal.Inc()
	}
}
