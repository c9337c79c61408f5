package store

import (
	"math"
	"sync"
	"time"
)

// QueryLogEntry records one /query call. Append-only.
type QueryLogEntry struct {
	Query          string    `json:"query"`
	Mode           string    `json:"mode"`
	Timestamp      time.Time `json:"timestamp"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	ResultsCount   int       `json:"results_count"`
}

// AnalyticsSummary is the aggregate view served by /analytics.
type AnalyticsSummary struct {
	TotalQueries  int             `json:"total_queries"`
	AvgResponseMs int64           `json:"avg_response_ms"`
	Recent        []QueryLogEntry `json:"recent"`
}

// QueryLog accumulates analytics entries for the process lifetime.
// No eviction; growth is unbounded.
type QueryLog struct {
	mu      sync.RWMutex
	entries []QueryLogEntry
}

// NewQueryLog initializes an empty log.
func NewQueryLog() *QueryLog {
	return &QueryLog{}
}

// Record appends one entry.
func (l *QueryLog) Record(entry QueryLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

// Count returns the number of recorded queries.
func (l *QueryLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Summary returns totals, the rounded mean response time, and the last 10
// entries newest-first.
func (l *QueryLog) Summary() AnalyticsSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return AnalyticsSummary{Recent: []QueryLogEntry{}}
	}
	var total int64
	for _, e := range l.entries {
		total += e.ResponseTimeMs
	}
	avg := int64(math.Round(float64(total) / float64(len(l.entries))))

	n := len(l.entries)
	limit := 10
	if n < limit {
		limit = n
	}
	recent := make([]QueryLogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		recent = append(recent, l.entries[i])
	}
	return AnalyticsSummary{
		TotalQueries:  n,
		AvgResponseMs: avg,
		Recent:        recent,
	}
}
