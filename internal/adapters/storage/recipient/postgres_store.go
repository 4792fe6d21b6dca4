package recipient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "contactform/internal/domain/recipient"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS recipient (topic TEXT PRIMARY KEY, emails TEXT NOT NULL)`

// PgxQuerier is the subset of *pgxpool.Pool used by PostgresStore.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

var _ PgxQuerier = (*pgxpool.Pool)(nil)

// PostgresStore implements Store using PostgreSQL via pgx.
type PostgresStore struct {
	db PgxQuerier
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a recipient store backed by a pgx pool.
func NewPostgresStore(db PgxQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the recipient table if it does not exist.
// PRE: db is connected
// POST: recipient table exists; existing rows are untouched
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create recipient table: %w", err)
	}
	return nil
}

// Lookup retrieves the record for a topic.
// PRE: topic is the exact stored key (case-sensitive)
// POST: Returns the record or an error wrapping domain.ErrNotFound
func (s *PostgresStore) Lookup(ctx context.Context, topic string) (domain.Record, error) {
	var r domain.Record
	err := s.db.QueryRow(ctx, `SELECT topic, emails FROM recipient WHERE topic = $1`, topic).Scan(&r.Topic, &r.Emails)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, fmt.Errorf("topic %q: %w", topic, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("lookup recipient: %w", err)
	}
	return r, nil
}

// Put upserts a record.
// PRE: r passes Validate
// POST: Record is persisted (insert or update)
func (s *PostgresStore) Put(ctx context.Context, r domain.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO recipient (topic, emails) VALUES ($1, $2)
		ON CONFLICT (topic) DO UPDATE SET emails = EXCLUDED.emails`,
		r.Topic, r.Emails)
	if err != nil {
		return fmt.Errorf("save recipient: %w", err)
	}
	return nil
}

// Delete removes a topic.
// POST: Topic no longer exists; returns domain.ErrNotFound if it never did
func (s *PostgresStore) Delete(ctx context.Context, topic string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM recipient WHERE topic = $1`, topic)
	if err != nil {
		return fmt.Errorf("delete recipient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("topic %q: %w", topic, domain.ErrNotFound)
	}
	return nil
}

// List returns every record ordered by topic.
func (s *PostgresStore) List(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.db.Query(ctx, `SELECT topic, emails FROM recipient ORDER BY topic`)
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
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
