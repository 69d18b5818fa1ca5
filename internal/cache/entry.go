// Package cache implements the query result cache: content-addressed
// fingerprints, TTL-bearing entries with an explicit lifecycle state, a
// durable PostgreSQL store with an in-memory twin, and a Redis hot layer
// for payload reads. The cache is an accelerator only; every failure mode
// degrades to "miss, compute fresh".
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// State is an entry's lifecycle phase. A tagged state keeps "why this entry
// no longer serves hits" distinguishable, which a boolean cannot.
type State string

const (
	StateValid   State = "valid"
	StateExpired State = "expired"
	StateEvicted State = "evicted"
)

// Entry is one cached query result.
type Entry struct {
	Fingerprint  string    `json:"fingerprint"`
	Question     string    `json:"question"`
	Documents    []string  `json:"documents"`
	Mode         string    `json:"mode"`
	Payload      []byte    `json:"payload"`
	HitCount     int       `json:"hit_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	ExpiresAt    time.Time `json:"expires_at"`
	State        State     `json:"state"`
}

// Expired reports whether the entry's TTL has lapsed at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// Fingerprint derives the cache key for a request: SHA-256 over the
// lower-cased trimmed question, the search mode, and the sorted document
// filenames. Equivalent requests always collide; different document sets or
// modes never do. Matching is exact, paraphrases hash apart on purpose.
func Fingerprint(question string, filenames []string, mode string) string {
	sorted := make([]string, len(filenames))
	copy(sorted, filenames)
	sort.Strings(sorted)

	var sb strings.Builder
	sb.WriteString(strings.ToLower(strings.TrimSpace(question)))
	sb.WriteByte('|')
	sb.WriteString(mode)
	sb.WriteByte('|')
	sb.WriteString(strings.Join(sorted, ","))

	sum := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%x", sum)
}

// PayloadVersion tags the payload schema so old rows from before a format
// change decode as misses instead of corrupting responses.
const PayloadVersion = 1

type payloadEnvelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// EncodePayload wraps a result in the versioned envelope.
func EncodePayload(result any) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	return json.Marshal(payloadEnvelope{Version: PayloadVersion, Data: data})
}

// DecodePayload unwraps a versioned payload into out. A payload from a
// different schema version, or one that does not parse, is an error; the
// caller treats it as a cache miss.
func DecodePayload(payload []byte, out any) error {
	var env payloadEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("parsing payload envelope: %w", err)
	}
	if env.Version != PayloadVersion {
		return fmt.Errorf("payload version %d, want %d", env.Version, PayloadVersion)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}
