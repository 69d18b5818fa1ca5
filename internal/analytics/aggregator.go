package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/kafka"
)

// AggregatedStats is the rolling usage summary exposed by the analytics
// endpoint and persisted in snapshots.
type AggregatedStats struct {
	TotalQueries      int64            `json:"total_queries"`
	TotalDocsIndexed  int64            `json:"total_docs_indexed"`
	TotalDocsRemoved  int64            `json:"total_docs_removed"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	ModeDistribution  map[string]int64 `json:"mode_distribution"`
	TopQuestions      []LabelCount     `json:"top_questions"`
	TopKeywords       []LabelCount     `json:"top_keywords"`
	ZeroResultQueries []LabelCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Aggregator consumes query events from Kafka and maintains in-memory
// rollups.
type Aggregator struct {
	mu                sync.RWMutex
	totalQueries      atomic.Int64
	totalDocsIndexed  atomic.Int64
	totalDocsRemoved  atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	zeroResults       atomic.Int64
	latencies         []int64
	questionCounts    map[string]int64
	keywordCounts     map[string]int64
	modeCounts        map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 10000),
		questionCounts:    make(map[string]int64),
		keywordCounts:     make(map[string]int64),
		modeCounts:        make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent is the Kafka message handler feeding the aggregator. Decode
// failures are logged and skipped so one bad event never stalls the topic.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err == nil && event.Type == EventQuery {
			agg.RecordQuery(event)
			return nil
		}
		docEvent, docErr := kafka.DecodeJSON[DocumentEvent](value)
		if docErr == nil && docEvent.Type == EventDocument {
			agg.RecordDocument(docEvent)
			return nil
		}
		agg.logger.Error("failed to decode analytics event", "error", err)
		return nil
	}
}

func (a *Aggregator) RecordQuery(event QueryEvent) {
	a.totalQueries.Add(1)
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	if event.Matches == 0 {
		a.zeroResults.Add(1)
	}

	a.mu.Lock()
	a.latencies = append(a.latencies, event.LatencyMs)
	a.questionCounts[event.Question]++
	a.modeCounts[event.Mode]++
	for _, kw := range event.Keywords {
		a.keywordCounts[kw]++
	}
	if event.Matches == 0 {
		a.zeroResultQueries[event.Question]++
	}
	a.mu.Unlock()
}

func (a *Aggregator) RecordDocument(event DocumentEvent) {
	switch event.Action {
	case "removed":
		a.totalDocsRemoved.Add(1)
	default:
		a.totalDocsIndexed.Add(1)
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalQueries:     a.totalQueries.Load(),
		TotalDocsIndexed: a.totalDocsIndexed.Load(),
		TotalDocsRemoved: a.totalDocsRemoved.Load(),
		CacheHits:        a.cacheHits.Load(),
		CacheMisses:      a.cacheMisses.Load(),
		ZeroResultCount:  a.zeroResults.Load(),
		ModeDistribution: make(map[string]int64, len(a.modeCounts)),
	}
	for mode, count := range a.modeCounts {
		stats.ModeDistribution[mode] = count
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQuestions = topN(a.questionCounts, 10)
	stats.TopKeywords = topN(a.keywordCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []LabelCount {
	result := make([]LabelCount, 0, len(counts))
	for label, count := range counts {
		result = append(result, LabelCount{Label: label, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Label < result[j].Label
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
