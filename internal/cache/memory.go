package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and by cache-less
// degraded startup when PostgreSQL is unavailable.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (m *MemoryStore) Get(ctx context.Context, fingerprint string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[fingerprint]
	if !ok {
		return nil, nil
	}
	clone := *entry
	clone.Documents = append([]string(nil), entry.Documents...)
	clone.Payload = append([]byte(nil), entry.Payload...)
	return &clone, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *entry
	clone.Documents = append([]string(nil), entry.Documents...)
	clone.Payload = append([]byte(nil), entry.Payload...)
	if existing, ok := m.entries[entry.Fingerprint]; ok {
		clone.HitCount = existing.HitCount
		clone.CreatedAt = existing.CreatedAt
	}
	m.entries[entry.Fingerprint] = &clone
	return nil
}

func (m *MemoryStore) RecordHit(ctx context.Context, fingerprint string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[fingerprint]; ok {
		entry.HitCount++
		entry.LastAccessed = at
	}
	return nil
}

func (m *MemoryStore) SetState(ctx context.Context, fingerprint string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[fingerprint]; ok {
		entry.State = state
	}
	return nil
}

func (m *MemoryStore) InvalidateForDocument(ctx context.Context, filename string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var affected []string
	for fp, entry := range m.entries {
		if entry.State != StateValid {
			continue
		}
		for _, doc := range entry.Documents {
			if doc == filename {
				entry.State = StateExpired
				affected = append(affected, fp)
				break
			}
		}
	}
	sort.Strings(affected)
	return affected, nil
}

func (m *MemoryStore) Maintenance(ctx context.Context, now time.Time, maxEntries, minHits int) (MaintenanceReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var report MaintenanceReport
	valid := make([]*Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		if entry.State == StateValid && entry.Expired(now) {
			entry.State = StateExpired
			report.Expired++
			continue
		}
		if entry.State == StateValid {
			valid = append(valid, entry)
		}
	}

	if maxEntries > 0 && len(valid) > maxEntries {
		// Oldest access first; the popularity floor shields entries with
		// enough hits even when the cache is over budget.
		sort.Slice(valid, func(i, j int) bool {
			if !valid[i].LastAccessed.Equal(valid[j].LastAccessed) {
				return valid[i].LastAccessed.Before(valid[j].LastAccessed)
			}
			return valid[i].Fingerprint < valid[j].Fingerprint
		})
		excess := len(valid) - maxEntries
		for _, entry := range valid {
			if excess == 0 {
				break
			}
			if entry.HitCount >= minHits {
				continue
			}
			entry.State = StateEvicted
			delete(m.entries, entry.Fingerprint)
			report.Evicted++
			excess--
		}
	}

	for _, entry := range m.entries {
		if entry.State == StateValid {
			report.Remaining++
		}
	}
	return report, nil
}

func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{TotalEntries: len(m.entries)}
	top := make([]*Entry, 0, len(m.entries))
	for _, entry := range m.entries {
		switch entry.State {
		case StateValid:
			stats.ValidEntries++
		case StateExpired:
			stats.ExpiredEntries++
		}
		stats.TotalHits += entry.HitCount
		top = append(top, entry)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].HitCount != top[j].HitCount {
			return top[i].HitCount > top[j].HitCount
		}
		return top[i].Fingerprint < top[j].Fingerprint
	})
	for i := 0; i < len(top) && i < 5; i++ {
		stats.TopQuestions = append(stats.TopQuestions, QuestionStat{
			Question: top[i].Question,
			HitCount: top[i].HitCount,
		})
	}
	return stats, nil
}
