package perf

import (
	"context"
	"log/slog"
	"time"
)

// StartReporter logs a "perf_summary" line for each elapsed interval until ctx is done.
// Windows with no activity are skipped.
// PRE: c is non-nil; interval > 0
// POST: A background goroutine is running; it exits when ctx is cancelled
func StartReporter(ctx context.Context, c *Collector, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		since := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				ReportOnce(c, since)
				since = now
			}
		}
	}()
}

// ReportOnce logs the snapshot for entries recorded since the given time.
// PRE: c is non-nil
// POST: Returns the snapshot; a log line is written only if it has activity
func ReportOnce(c *Collector, since time.Time) Snapshot {
	snap := c.Snapshot(since, 3)
	if snap.Requests == 0 && snap.Queries == 0 && snap.Dispatches == 0 {
		return snap
	}
	slog.Info("perf_summary", "window_start", since.UTC().Format(time.RFC3339), "stats", snap)
	return snap
}
