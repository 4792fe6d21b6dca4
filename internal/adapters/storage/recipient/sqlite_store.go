package recipient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contactform/internal/adapters/storage"
	domain "contactform/internal/domain/recipient"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new recipient store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Lookup retrieves the record for a topic.
// PRE: topic is the exact stored key (case-sensitive)
// POST: Returns the record or an error wrapping domain.ErrNotFound
// INVARIANT: Store state is not mutated
func (s *SQLiteStore) Lookup(ctx context.Context, topic string) (domain.Record, error) {
	var r domain.Record
	err := s.db.QueryRowContext(ctx,
		`SELECT topic, emails FROM recipient WHERE topic = ?`, topic,
	).Scan(&r.Topic, &r.Emails)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, fmt.Errorf("topic %q: %w", topic, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("lookup recipient: %w", err)
	}
	return r, nil
}

// Put upserts a record.
// PRE: r passes Validate
// POST: Record is persisted (insert or replace)
// INVARIANT: No other topics are modified
func (s *SQLiteStore) Put(ctx context.Context, r domain.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recipient (topic, emails) VALUES (?, ?)
		ON CONFLICT(topic) DO UPDATE SET emails = excluded.emails
	`, r.Topic, r.Emails)
	if err != nil {
		return fmt.Errorf("save recipient: %w", err)
	}
	return nil
}

// Delete removes a topic.
// PRE: none
// POST: Topic no longer exists; returns domain.ErrNotFound if it never did
func (s *SQLiteStore) Delete(ctx context.Context, topic string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recipient WHERE topic = ?`, topic)
	if err != nil {
		return fmt.Errorf("delete recipient: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("topic %q: %w", topic, domain.ErrNotFound)
	}
	return nil
}

// List returns every record ordered by topic.
// INVARIANT: Store state is not mutated
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT topic, emails FROM recipient ORDER BY topic`)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	out := []domain.Record{}
	for rows.Next() {
		var r domain.Record
		if err := rows.Scan(&r.Topic, &r.Emails); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
