package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
)

// MaxImportBatch bounds the records accepted by one ImportBatch call.
const MaxImportBatch = 500


type Service struct {
	repo Repository
	ids  *Allocator
	now  func() time.Time
}

func NewService(repo Repository, ids *Allocator) *Service {
	return &Service{repo: repo, ids: ids, now: func() time.Time { return time.Now().UTC() }}
}

// Allocator exposes the identifier allocator for administrative use.
func (s *Service) Allocator() *Allocator { return s.ids }

func (s *Service) CreatePatient(ctx context.Context, req *CreateRequest) (*Patient, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("Patient name is required.")
	}

	id, err := s.ids.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &Patient{
		ID:             id,
		PReg:           id,
		Name:           name,
		NameNormalized: NormalizeName(name),
		Demographics:   req.Demographics,
		IsImported:     false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// The counter is behind an imported id; the caller can retry
			// once an administrator has moved the counter forward.
			return nil, apperr.TransientStore(fmt.Sprintf("allocated id %s is already in use", id), err)
		}
		return nil, fmt.Errorf("create patient: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("patient_id", id).Msg("patient created")
	return p, nil
}

// ImportBatch writes each record create-if-absent, keyed by its pReg.
// Records are independent: a failing record never aborts its siblings.
func (s *Service) ImportBatch(ctx context.Context, records []ImportRecord) (*ImportReport, error) {
	if len(records) == 0 {
		return nil, apperr.Validation("patients must be a non-empty array")
	}
	if len(records) > MaxImportBatch {
		return nil, apperr.Validation("batch too large: %d records, maximum is %d", len(records), MaxImportBatch)
	}

	report := &ImportReport{Results: make([]ImportResult, 0, len(records))}
	for i := range records {
		res := s.importOne(ctx, i, &records[i])
		report.Results = append(report.Results, res)
		if res.Succeeded() {
			report.SuccessCount++
		} else {
			report.FailureCount++
			report.Errors = append(report.Errors, res)
		}
	}

	report.Message = fmt.Sprintf("Batch processed: %d succeeded, %d failed.", report.SuccessCount, report.FailureCount)
	zerolog.Ctx(ctx).Info().
		Int("records", len(records)).
		Int("succeeded", report.SuccessCount).
		Int("failed", report.FailureCount).
		Msg("patient import batch")
	return report, nil
}

func (s *Service) importOne(ctx context.Context, index int, rec *ImportRecord) ImportResult {
	res := ImportResult{Index: index, PReg: strings.TrimSpace(rec.PReg)}

	if rec.IsImported != nil && !*rec.IsImported {
		res.Status = ImportError
		res.Reason = "batch creation of non-imported patients is not supported"
		return res
	}
	if res.PReg == "" || strings.TrimSpace(rec.Name) == "" {
		res.Status = ImportSkipped
		res.Reason = "missing pReg or name"
		return res
	}

	created, err := s.repo.CreateIfAbsent(ctx, rec.toPatient(s.now()))
	switch {
	case err != nil:
		res.Status = ImportError
		res.Reason = err.Error()
	case created:
		res.Status = ImportCreated
	default:
		res.Status = ImportExists
	}
	return res
}

func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("patient id is required")
	}
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Patient not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

// UpdatePatient applies a partial update and always refreshes updatedAt.
func (s *Service) UpdatePatient(ctx context.Context, id string, req *UpdateRequest) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("patient id is required")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return apperr.Validation("Patient name cannot be empty.")
	}
	fields := req.Fields()
	if len(fields) == 0 {
		return apperr.Validation("no updatable fields supplied")
	}

	err := s.repo.Update(ctx, id, fields, s.now())
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("Patient not found.")
	}
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

// DeletePatient is idempotent and leaves the patient's visits in place.
func (s *Service) DeletePatient(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("patient id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	return nil
}

// SearchPatients matches a name prefix case-insensitively. An empty query
// returns the most recently updated patients.
func (s *Service) SearchPatients(ctx context.Context, query string, limit int) ([]*Patient, error) {
	if limit <= 0 {
		limit = 10
	}
	prefix := NormalizeName(query)

	var (
		out []*Patient
		err error
	)
	if prefix == "" {
		out, err = s.repo.ListRecent(ctx, limit)
	} else {
		out, err = s.repo.SearchByNamePrefix(ctx, prefix, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	return out, nil
}

// Exists reports whether a patient with id is registered.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up patient: %w", err)
	}
	return true, nil
}
