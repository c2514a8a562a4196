package visit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicnotes/clinicnotes/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
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

const visitCols = `id, seq, patient_id, visit_date,
	complaints, examination, diagnosis, investigation, advise, next_plan,
	medications, amount_charged, imported_historical, original_csv_date,
	created_at, updated_at`

const insertVisit = `
	INSERT INTO visit (id, patient_id, visit_date,
		complaints, examination, diagnosis, investigation, advise, next_plan,
		medications, amount_charged, imported_historical, original_csv_date,
		created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

func insertArgs(v *Visit) []interface{} {
	return []interface{}{
		v.ID, v.PatientID, v.VisitDate,
		v.Complaints, v.Examination, v.Diagnosis, v.Investigation, v.Advise, v.NextPlan,
		medicationsOrEmpty(v.Medications), v.AmountCharged, v.ImportedHistorical, nullIfEmpty(v.OriginalCSVDate),
		v.CreatedAt, v.UpdatedAt,
	}
}

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	return r.conn(ctx).QueryRow(ctx, insertVisit+` RETURNING seq`, insertArgs(v)...).Scan(&v.Seq)
}

func (r *repoPG) CreateIfAbsent(ctx context.Context, v *Visit) (bool, error) {
	err := r.conn(ctx).QueryRow(ctx,
		insertVisit+` ON CONFLICT (id) DO NOTHING RETURNING seq`, insertArgs(v)...,
	).Scan(&v.Seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repoPG) Get(ctx context.Context, patientID, id string) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM visit WHERE id = $1 AND patient_id = $2`, id, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (r *repoPG) Merge(ctx context.Context, patientID, id string, fields []FieldUpdate, updatedAt time.Time) error {
	sets := make([]string, 0, len(fields)+1)
	args := []interface{}{id, patientID}
	for _, f := range fields {
		args = append(args, f.Value)
		sets = append(sets, fmt.Sprintf("%s = $%d", f.Column, len(args)))
	}
	args = append(args, updatedAt)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE visit SET `+strings.Join(sets, ", ")+` WHERE id = $1 AND patient_id = $2`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Last(ctx context.Context, patientID string) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx, `
		SELECT `+visitCols+` FROM visit WHERE patient_id = $1
		ORDER BY visit_date DESC, seq DESC LIMIT 1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (r *repoPG) List(ctx context.Context, patientID string, order Order) ([]*Visit, error) {
	// order.column() only yields whitelisted names.
	dir, nulls := "ASC", "NULLS FIRST"
	if order.Desc {
		dir, nulls = "DESC", "NULLS LAST"
	}
	query := fmt.Sprintf(`SELECT %s FROM visit WHERE patient_id = $1 ORDER BY %s %s %s, seq %s`,
		visitCols, order.column(), dir, nulls, dir)

	rows, err := r.conn(ctx).Query(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Visit{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *repoPG) PatientsWithVisits(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT DISTINCT patient_id FROM visit ORDER BY patient_id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) DeleteBatch(ctx context.Context, patientID string, limit int) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM visit WHERE id IN (
			SELECT id FROM visit WHERE patient_id = $1 LIMIT $2
		)`, patientID, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanVisit(row pgx.Row) (*Visit, error) {
	var (
		v           Visit
		originalCSV *string
	)
	err := row.Scan(
		&v.ID, &v.Seq, &v.PatientID, &v.VisitDate,
		&v.Complaints, &v.Examination, &v.Diagnosis, &v.Investigation, &v.Advise, &v.NextPlan,
		&v.Medications, &v.AmountCharged, &v.ImportedHistorical, &originalCSV,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if originalCSV != nil {
		v.OriginalCSVDate = *originalCSV
	}
	if v.Medications == nil {
		v.Medications = []Medication{}
	}
	return &v, nil
}

func medicationsOrEmpty(m []Medication) []Medication {
	if m == nil {
		return []Medication{}
	}
	return m
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
