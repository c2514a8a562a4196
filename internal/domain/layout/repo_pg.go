package layout

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Save(ctx context.Context, cfg Config) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO layout_setting (name, config, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET config = EXCLUDED.config, updated_at = NOW()`,
		DocumentName, map[string]interface{}(cfg))
	return err
}

func (r *repoPG) Load(ctx context.Context) (Config, error) {
	var cfg map[string]interface{}
	err := r.pool.QueryRow(ctx,
		`SELECT config FROM layout_setting WHERE name = $1`, DocumentName).Scan(&cfg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return Config(cfg), nil
}
