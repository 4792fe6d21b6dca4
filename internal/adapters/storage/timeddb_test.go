package storage

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"contactform/internal/adapters/http/perf"
)

func openTimedTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := openTestDB(t)
	if err := InitDB(context.Background(), db); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	return db
}

// TestTimedDB_ExecContext verifies ExecContext records timing.
func TestTimedDB_ExecContext(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)

	_, err := tdb.ExecContext(context.Background(), "INSERT INTO recipient (topic, emails) VALUES (?, ?)", "general", "a@x.com")
	if err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
}

// TestTimedDB_QueryContext verifies QueryContext records timing and returns rows.
func TestTimedDB_QueryContext(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	tdb.ExecContext(ctx, "INSERT INTO recipient (topic, emails) VALUES (?, ?)", "general", "a@x.com")

	rows, err := tdb.QueryContext(ctx, "SELECT topic, emails FROM recipient")
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1", count)
	}
	if collector.TotalRecorded() != 2 {
		t.Errorf("TotalRecorded = %d, want 2", collector.TotalRecorded())
	}
}

// TestTimedDB_QueryRowContext_NoRows verifies sql.ErrNoRows passes through unchanged.
func TestTimedDB_QueryRowContext_NoRows(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)

	var emails string
	err := tdb.QueryRowContext(context.Background(), "SELECT emails FROM recipient WHERE topic = ?", "missing").Scan(&emails)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
}

// TestTimedDB_ErrorMarksEntryFailed verifies failed statements are recorded as failures.
func TestTimedDB_ErrorMarksEntryFailed(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)

	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO nonexistent_table VALUES (?)", 1); err == nil {
		t.Fatal("expected error from invalid SQL, got nil")
	}
	snap := collector.Snapshot(time.Now().Add(-time.Minute), 5)
	if snap.Queries != 1 {
		t.Errorf("Queries = %d, want 1 (must record even on error)", snap.Queries)
	}
}

// TestTimedDB_CancelledContext verifies a cancelled context returns an error and is still recorded.
func TestTimedDB_CancelledContext(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO recipient (topic, emails) VALUES (?, ?)", "x", "y"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
	if collector.TotalRecorded() != 1 {
		t.Errorf("TotalRecorded = %d, want 1", collector.TotalRecorded())
	}
}

// TestTimedDB_NilCollector verifies TimedDB works without a collector.
func TestTimedDB_NilCollector(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), nil, 0)
	if _, err := tdb.ExecContext(context.Background(), "DELETE FROM recipient"); err != nil {
		t.Fatalf("ExecContext with nil collector: %v", err)
	}
	if err := tdb.PingContext(context.Background()); err != nil {
		t.Errorf("PingContext: %v", err)
	}
}

// TestTimedDB_DefaultThreshold verifies a non-positive threshold falls back to the default.
func TestTimedDB_DefaultThreshold(t *testing.T) {
	tdb := NewTimedDB(openTimedTestDB(t), nil, -1)
	if tdb.threshold != DefaultSlowQuery {
		t.Errorf("threshold = %v, want %v", tdb.threshold, DefaultSlowQuery)
	}
}

// TestTimedDB_ConcurrentMixedOps verifies no data races under concurrent reads and writes.
func TestTimedDB_ConcurrentMixedOps(t *testing.T) {
	collector := perf.NewCollector(1000)
	tdb := NewTimedDB(openTimedTestDB(t), collector, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				tdb.ExecContext(ctx, "INSERT OR REPLACE INTO recipient (topic, emails) VALUES (?, ?)", "w", "v@x.com")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				var v string
				tdb.QueryRowContext(ctx, "SELECT emails FROM recipient WHERE topic = ?", "w").Scan(&v)
			}
		}()
	}
	wg.Wait()

	if collector.TotalRecorded() != 160 {
		t.Errorf("TotalRecorded = %d, want 160", collector.TotalRecorded())
	}
}

// BenchmarkTimedDB_QueryRow measures per-call overhead of the timing wrapper.
func BenchmarkTimedDB_QueryRow(b *testing.B) {
	db, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		b.Fatal(err)
	}
	defer db.Close()
	InitDB(context.Background(), db)
	tdb := NewTimedDB(db, perf.NewCollector(perf.DefaultRingSize), 0)

	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var v string
		tdb.QueryRowContext(ctx, "SELECT emails FROM recipient WHERE topic = ?", "x").Scan(&v)
	}
}
