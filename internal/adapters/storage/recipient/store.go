package recipient

import (
	"context"

	domain "contactform/internal/domain/recipient"
)

// Store persists the topic-to-recipients directory.
type Store interface {
	// Lookup returns the record for topic, or domain.ErrNotFound.
	Lookup(ctx context.Context, topic string) (domain.Record, error)
	Put(ctx context.Context, r domain.Record) error
	Delete(ctx context.Context, topic string) error
	List(ctx context.Context) ([]domain.Record, error)
	Ping(ctx context.Context) error
}
