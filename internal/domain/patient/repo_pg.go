package patient

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

const patientCols = `id, p_reg, name, name_normalized,
	age, age_unit, sex, contact_no, nic_no, occupation, address,
	t_token, recorded_by, date_of_recording, is_imported, created_at, updated_at`

const insertPatient = `
	INSERT INTO patient (` + patientCols + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

func insertArgs(p *Patient) []interface{} {
	return []interface{}{
		p.ID, p.PReg, p.Name, p.NameNormalized,
		p.Age, p.AgeUnit, p.Sex, p.ContactNo, p.NICNo, p.Occupation, p.Address,
		p.TToken, p.RecordedBy, p.DateOfRecording, p.IsImported, p.CreatedAt, p.UpdatedAt,
	}
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, insertPatient, insertArgs(p)...)
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *repoPG) CreateIfAbsent(ctx context.Context, p *Patient) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, insertPatient+` ON CONFLICT (id) DO NOTHING`, insertArgs(p)...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *repoPG) Update(ctx context.Context, id string, fields []FieldUpdate, updatedAt time.Time) error {
	sets := make([]string, 0, len(fields)+1)
	args := []interface{}{id}
	for _, f := range fields {
		args = append(args, f.Value)
		sets = append(sets, fmt.Sprintf("%s = $%d", f.Column, len(args)))
	}
	args = append(args, updatedAt)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id string) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return err
}

func (r *repoPG) SearchByNamePrefix(ctx context.Context, prefix string, limit int) ([]*Patient, error) {
	// LIKE under the "C" collation is a byte-wise prefix match and can use
	// idx_patient_name_normalized.
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patient
		WHERE name_normalized COLLATE "C" LIKE $1
		ORDER BY name_normalized COLLATE "C", id
		LIMIT $2`, likePrefix(prefix), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix turns a literal prefix into a LIKE pattern.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

func (r *repoPG) ListRecent(ctx context.Context, limit int) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY updated_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.PReg, &p.Name, &p.NameNormalized,
		&p.Age, &p.AgeUnit, &p.Sex, &p.ContactNo, &p.NICNo, &p.Occupation, &p.Address,
		&p.TToken, &p.RecordedBy, &p.DateOfRecording, &p.IsImported, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	out := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
