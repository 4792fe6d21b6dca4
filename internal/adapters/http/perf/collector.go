package perf

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 4096

// EntryKind distinguishes what an entry timed.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
	KindDispatch
)

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Kind       EntryKind
	Path       string // "POST /api/contact", "recipient.Lookup" or provider name
	StatusCode int    // HTTP status; 0 for queries and dispatches
	Failed     bool   // dispatch or query returned an error
	DurationMs float64
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer for timing entries.
// When full, the oldest entries are overwritten. Aggregation happens on read.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   atomic.Int64
}

// NewCollector creates a collector with the given ring buffer capacity.
// PRE: size > 0 (non-positive falls back to DefaultRingSize)
// POST: Returns a ready-to-use collector with pre-allocated storage
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Record appends an entry to the ring buffer.
// PRE: e.Timestamp is set
// POST: Entry stored; if buffer full, oldest entry overwritten
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % c.size
	c.mu.Unlock()
	c.count.Add(1)
}

// TotalRecorded returns the total number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	return c.count.Load()
}

// Snapshot holds aggregated performance data for one window.
type Snapshot struct {
	Requests         int
	ClientErrors     int // 4xx
	ServerErrors     int // 5xx
	RequestP50Ms     float64
	RequestP95Ms     float64
	RequestP99Ms     float64
	Queries          int
	Dispatches       int
	DispatchFailures int
	SlowestPaths     []PathStat
	SlowestQueries   []PathStat
}

// PathStat aggregates timing for a single path, query or provider.
type PathStat struct {
	Path    string
	AvgMs   float64
	MaxMs   float64
	Count   int
	TotalMs float64
}

// Snapshot computes aggregated stats for entries recorded at or after since.
// PRE: topN >= 0
// POST: Returns counts, request percentiles and the topN slowest paths and queries
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, c.size)
	copy(buf, c.entries)
	c.mu.Unlock()

	var snap Snapshot
	var durations []float64
	requestStats := make(map[string]*PathStat)
	queryStats := make(map[string]*PathStat)

	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		switch e.Kind {
		case KindRequest:
			snap.Requests++
			switch {
			case e.StatusCode >= 500:
				snap.ServerErrors++
			case e.StatusCode >= 400:
				snap.ClientErrors++
			}
			durations = append(durations, e.DurationMs)
			accumulate(requestStats, e)
		case KindQuery:
			snap.Queries++
			accumulate(queryStats, e)
		case KindDispatch:
			snap.Dispatches++
			if e.Failed {
				snap.DispatchFailures++
			}
		}
	}

	snap.SlowestPaths = topByAvg(requestStats, topN)
	snap.SlowestQueries = topByAvg(queryStats, topN)

	if len(durations) > 0 {
		sort.Float64s(durations)
		snap.RequestP50Ms = percentile(durations, 50)
		snap.RequestP95Ms = percentile(durations, 95)
		snap.RequestP99Ms = percentile(durations, 99)
	}
	return snap
}

// LogValue renders the snapshot as a slog group.
func (s Snapshot) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("requests", s.Requests),
		slog.Int("client_errors", s.ClientErrors),
		slog.Int("server_errors", s.ServerErrors),
		slog.Float64("p50_ms", round2(s.RequestP50Ms)),
		slog.Float64("p95_ms", round2(s.RequestP95Ms)),
		slog.Float64("p99_ms", round2(s.RequestP99Ms)),
		slog.Int("queries", s.Queries),
		slog.Int("dispatches", s.Dispatches),
		slog.Int("dispatch_failures", s.DispatchFailures),
	}
	if len(s.SlowestPaths) > 0 {
		attrs = append(attrs, slog.String("slowest_path", s.SlowestPaths[0].Path))
	}
	if len(s.SlowestQueries) > 0 {
		attrs = append(attrs, slog.String("slowest_query", s.SlowestQueries[0].Path))
	}
	return slog.GroupValue(attrs...)
}

func accumulate(stats map[string]*PathStat, e Entry) {
	s, ok := stats[e.Path]
	if !ok {
		s = &PathStat{Path: e.Path}
		stats[e.Path] = s
	}
	s.Count++
	s.TotalMs += e.DurationMs
	if e.DurationMs > s.MaxMs {
		s.MaxMs = e.DurationMs
	}
	s.AvgMs = s.TotalMs / float64(s.Count)
}

// percentile returns the p-th percentile from a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// topByAvg returns the top n stats by average duration, slowest first.
func topByAvg(stats map[string]*PathStat, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs == list[j].AvgMs {
			return list[i].Path < list[j].Path
		}
		return list[i].AvgMs > list[j].AvgMs
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
