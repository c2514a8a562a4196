package finance

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicnotes/clinicnotes/internal/platform/db"
)

// VisitDateIndex is the Postgres index the range scan requires.
const VisitDateIndex = "idx_visit_visit_date"

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct {
	pool *pgxpool.Pool

	// indexSeen is set once the index has been found; it is never unset.
	indexSeen atomic.Bool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) ensureIndex(ctx context.Context) error {
	if r.indexSeen.Load() {
		return nil
	}
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, VisitDateIndex).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check index %s: %w", VisitDateIndex, err)
	}
	if !exists {
		return ErrIndexMissing
	}
	r.indexSeen.Store(true)
	return nil
}

func (r *repoPG) SumCharges(ctx context.Context, startDate, endDate string) (float64, int64, error) {
	if err := r.ensureIndex(ctx); err != nil {
		return 0, 0, err
	}
	var total float64
	var count int64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(COALESCE(amount_charged, 0)), 0)::float8, COUNT(*)
		FROM visit
		WHERE visit_date BETWEEN $1 AND $2`,
		startDate, endDate,
	).Scan(&total, &count)
	if err != nil {
		return 0, 0, err
	}
	return total, count, nil
}
