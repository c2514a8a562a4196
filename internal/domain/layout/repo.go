package layout

import "context"

type Repository interface {
	// Save fully replaces the stored layout.
	Save(ctx context.Context, cfg Config) error
	// Load returns ErrNotFound before the first save.
	Load(ctx context.Context) (Config, error)
}
