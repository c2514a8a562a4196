package patient

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
	"github.com/clinicnotes/clinicnotes/internal/platform/db"
)

type counterPG struct {
	pool *pgxpool.Pool
}

func NewCounterPG(pool *pgxpool.Pool) CounterStore {
	return &counterPG{pool: pool}
}

// Next increments the counter in one upsert statement. Concurrent callers
// queue on the row lock and each reads its own committed value, so only a
// deadlock is worth retrying.
func (s *counterPG) Next(ctx context.Context) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAllocAttempts; attempt++ {
		var next int64
		err := s.pool.QueryRow(ctx, `
			INSERT INTO patient_counter (name, last_value, updated_at) VALUES ($1, 1, NOW())
			ON CONFLICT (name) DO UPDATE
				SET last_value = patient_counter.last_value + 1, updated_at = NOW()
			RETURNING last_value`,
			counterName,
		).Scan(&next)
		if err == nil {
			return next, nil
		}
		if !db.IsRetryable(err) {
			return 0, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return 0, apperr.TransientStore("patient id allocation interrupted", ctx.Err())
		case <-time.After(allocBackoff(attempt)):
		}
	}
	return 0, apperr.TransientStore("patient id allocation failed after retries, please try again", lastErr)
}

func (s *counterPG) Set(ctx context.Context, n int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO patient_counter (name, last_value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET last_value = EXCLUDED.last_value, updated_at = NOW()`,
		counterName, n)
	return err
}
