package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied to every pooled connection via the DSN.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// schema is the recipient directory layout. One row per topic; emails holds
// a comma-separated address list.
const schema = `
CREATE TABLE IF NOT EXISTS recipient (
	topic TEXT PRIMARY KEY,
	emails TEXT NOT NULL
);
`

// OpenSQLite opens the SQLite database at path and verifies it is reachable.
// PRE: path is a file path or ":memory:"
// POST: Returns a pinged connection pool; the caller owns Close
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dsn = path + sep + sqlitePragmas
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(8)
		db.SetMaxIdleConns(8)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite unreachable: %w", err)
	}
	return db, nil
}

// InitDB creates the directory schema if it does not exist.
// PRE: db is a valid database connection
// POST: recipient table exists; existing rows are untouched
func InitDB(ctx context.Context, db SQLDB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
