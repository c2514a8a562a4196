package visit

import (
	"context"
	"time"
)

type Repository interface {
	// Create inserts v and assigns its insertion sequence.
	Create(ctx context.Context, v *Visit) error
	// CreateIfAbsent inserts v unless its id exists and reports whether it wrote.
	CreateIfAbsent(ctx context.Context, v *Visit) (bool, error)
	// Get returns the visit only if it belongs to patientID.
	Get(ctx context.Context, patientID, id string) (*Visit, error)
	// Merge writes only the given fields in one statement, so concurrent
	// merges of disjoint fields both survive. ErrNotFound when absent for
	// the patient.
	Merge(ctx context.Context, patientID, id string, fields []FieldUpdate, updatedAt time.Time) error
	// Last returns the latest visit by visitDate, newest insertion first on ties.
	Last(ctx context.Context, patientID string) (*Visit, error)
	List(ctx context.Context, patientID string, order Order) ([]*Visit, error)

	// PatientsWithVisits lists up to limit distinct patient ids owning visits,
	// including ids whose patient record was deleted.
	PatientsWithVisits(ctx context.Context, limit int) ([]string, error)
	// DeleteBatch removes up to limit visits of one patient and returns the count.
	DeleteBatch(ctx context.Context, patientID string, limit int) (int64, error)
}
