// Package analytics collects query events, aggregates them into rolling
// usage statistics, serves them over HTTP, and periodically snapshots them
// to PostgreSQL. Everything here is reporting; no query behavior depends
// on it.
package analytics

import "time"

type EventType string

const (
	EventQuery    EventType = "query"
	EventDocument EventType = "document"
)

// QueryEvent records one answered question.
type QueryEvent struct {
	Type      EventType `json:"type"`
	Question  string    `json:"question"`
	Intent    string    `json:"intent"`
	Keywords  []string  `json:"keywords"`
	Mode      string    `json:"mode"`
	Outcome   string    `json:"outcome"`
	Matches   int       `json:"matches"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// DocumentEvent records a document being indexed or removed.
type DocumentEvent struct {
	Type       EventType `json:"type"`
	Action     string    `json:"action"`
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	Pages      int       `json:"pages"`
	Timestamp  time.Time `json:"timestamp"`
}
