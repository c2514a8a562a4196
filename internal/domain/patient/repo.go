package patient

import (
	"context"
	"time"
)

type Repository interface {
	// Create inserts p and fails with ErrDuplicate when the id is taken.
	Create(ctx context.Context, p *Patient) error
	// CreateIfAbsent inserts p unless the id exists; it reports whether a row was written.
	CreateIfAbsent(ctx context.Context, p *Patient) (bool, error)
	GetByID(ctx context.Context, id string) (*Patient, error)
	// Update applies fields and stamps updatedAt. ErrNotFound when the id is absent.
	Update(ctx context.Context, id string, fields []FieldUpdate, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	// SearchByNamePrefix returns patients whose name_normalized starts with
	// prefix, in ascending byte order.
	SearchByNamePrefix(ctx context.Context, prefix string, limit int) ([]*Patient, error)
	// ListRecent returns the most recently updated patients first.
	ListRecent(ctx context.Context, limit int) ([]*Patient, error)
}

// CounterStore persists the last allocated PReg number.
type CounterStore interface {
	// Next atomically increments the counter (absent counts as 0) and returns
	// the new value.
	Next(ctx context.Context) (int64, error)
	Set(ctx context.Context, n int64) error
}
