package visit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
	"github.com/clinicnotes/clinicnotes/internal/platform/auth"
	"github.com/clinicnotes/clinicnotes/pkg/calendar"
)

const (
	// MaxHistoricalBatch caps one historical import request. Larger batches
	// are rejected, never truncated.
	MaxHistoricalBatch = 250

	// purgeBatchSize bounds the visits removed per delete statement and the
	// patients fetched per purge pass.
	purgeBatchSize = 500
)

// PatientLookup checks that a visit's owner is registered.
type PatientLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo     Repository
	patients PatientLookup
	now      func() time.Time
	newID    func() string
}

func NewService(repo Repository, patients PatientLookup) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

func validateData(patientID string, d *Data) error {
	if strings.TrimSpace(patientID) == "" || d == nil || d.VisitDate == "" {
		return apperr.Validation("Missing patientId, visitData, or visitData.visitDate.")
	}
	if !calendar.Valid(d.VisitDate) {
		return apperr.Validation("visitDate must be formatted YYYY-MM-DD, got %q", d.VisitDate)
	}
	if v := d.AmountCharged.Value; v != nil {
		if !finite(*v) {
			return apperr.Validation("amountCharged must be a finite number")
		}
		if *v < 0 {
			return apperr.Validation("amountCharged must not be negative")
		}
	}
	return nil
}

// Save creates a visit, or merges into an existing one when a visit id is
// supplied. Absent fields keep their stored values on merge.
func (s *Service) Save(ctx context.Context, req *SaveRequest) (*SaveResult, error) {
	if err := validateData(req.PatientID, req.VisitData); err != nil {
		return nil, err
	}
	visitID := req.VisitID
	if visitID == "" {
		visitID = req.VisitData.VisitID
	}

	if visitID != "" {
		return s.update(ctx, req.PatientID, visitID, req.VisitData)
	}

	now := s.now()
	v := &Visit{
		ID:        s.newID(),
		PatientID: req.PatientID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	req.VisitData.apply(v)
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create visit: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("patient_id", v.PatientID).Str("visit_id", v.ID).Msg("visit created")
	return &SaveResult{
		Success:   true,
		PatientID: v.PatientID,
		VisitID:   v.ID,
		Action:    ActionCreated,
		Message:   "Patient visit created successfully.",
	}, nil
}

func (s *Service) update(ctx context.Context, patientID, visitID string, d *Data) (*SaveResult, error) {
	err := s.repo.Merge(ctx, patientID, visitID, d.updates(), s.now())
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Visit %s not found for patient %s.", visitID, patientID)
	}
	if err != nil {
		return nil, fmt.Errorf("update visit: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("patient_id", patientID).Str("visit_id", visitID).Msg("visit updated")
	return &SaveResult{
		Success:   true,
		PatientID: patientID,
		VisitID:   visitID,
		Action:    ActionUpdated,
		Message:   "Patient visit updated successfully.",
	}, nil
}

// historicalVisit builds the imported form of an item: flagged, charged 0
// when no amount was given, keyed by a content-derived id.
func (s *Service) historicalVisit(patientID string, d *Data) *Visit {
	now := s.now()
	v := &Visit{
		PatientID:          patientID,
		ImportedHistorical: true,
		OriginalCSVDate:    d.OriginalCSVDate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	d.apply(v)
	if v.AmountCharged == nil {
		zero := 0.0
		v.AmountCharged = &zero
	}
	v.ID = HistoricalID(v)
	return v
}

// AddHistorical imports one legacy visit for a registered patient.
func (s *Service) AddHistorical(ctx context.Context, item *HistoricalItem) (*ItemResult, error) {
	if err := validateData(item.PatientID, item.VisitData); err != nil {
		return nil, err
	}
	ok, err := s.patients.Exists(ctx, item.PatientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("Patient with ID %s not found.", item.PatientID)
	}

	v := s.historicalVisit(item.PatientID, item.VisitData)
	created, err := s.repo.CreateIfAbsent(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("add historical visit: %w", err)
	}
	res := &ItemResult{PatientID: v.PatientID, VisitID: v.ID, VisitDate: v.VisitDate, Status: ItemSuccess}
	if !created {
		res.Status = ItemExists
	}
	return res, nil
}

// AddHistoricalBatch imports legacy visits item by item. Owner existence is
// not checked per item; a failing item never aborts its siblings.
func (s *Service) AddHistoricalBatch(ctx context.Context, items []HistoricalItem) (*BatchReport, error) {
	if len(items) == 0 {
		return nil, apperr.Validation("Missing or empty visits array.")
	}
	if len(items) > MaxHistoricalBatch {
		return nil, apperr.Validation("Batch size too large (max %d).", MaxHistoricalBatch)
	}

	report := &BatchReport{TotalItems: len(items), Results: make([]ItemResult, 0, len(items))}
	for i := range items {
		res := s.addHistoricalItem(ctx, i, &items[i])
		report.Results = append(report.Results, res)
		if res.Succeeded() {
			report.SuccessCount++
		} else {
			report.FailureCount++
			report.Errors = append(report.Errors, res)
		}
	}

	if report.FailureCount > 0 {
		report.Message = "Batch processed with some failures."
	} else {
		report.Message = "All historical visits in batch added successfully."
	}
	zerolog.Ctx(ctx).Info().
		Int("items", report.TotalItems).
		Int("succeeded", report.SuccessCount).
		Int("failed", report.FailureCount).
		Msg("historical visit batch")
	return report, nil
}

func (s *Service) addHistoricalItem(ctx context.Context, index int, item *HistoricalItem) ItemResult {
	res := ItemResult{Index: index, PatientID: item.PatientID}
	if item.VisitData != nil {
		res.VisitDate = item.VisitData.VisitDate
	}
	if err := validateData(item.PatientID, item.VisitData); err != nil {
		res.Status = ItemSkipped
		res.Reason = err.Error()
		return res
	}

	v := s.historicalVisit(item.PatientID, item.VisitData)
	res.VisitID = v.ID
	created, err := s.repo.CreateIfAbsent(ctx, v)
	switch {
	case err != nil:
		res.Status = ItemError
		res.Reason = err.Error()
		zerolog.Ctx(ctx).Error().Err(err).Str("patient_id", item.PatientID).Msg("historical visit failed")
	case created:
		res.Status = ItemSuccess
	default:
		res.Status = ItemExists
	}
	return res
}

func (s *Service) Last(ctx context.Context, patientID string) (*Visit, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, apperr.Validation("Missing patientId.")
	}
	v, err := s.repo.Last(ctx, patientID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("No visits found for this patient.")
	}
	if err != nil {
		return nil, fmt.Errorf("last visit: %w", err)
	}
	return v, nil
}

func (s *Service) All(ctx context.Context, patientID, orderBy, direction string) ([]*Visit, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, apperr.Validation("Missing patientId.")
	}
	order, err := ParseOrder(orderBy, direction)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	visits, err := s.repo.List(ctx, patientID, order)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return visits, nil
}

// Summary projects the last visit; both fields are null without visits.
func (s *Service) Summary(ctx context.Context, patientID string) (*Summary, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, apperr.Validation("Missing patientId.")
	}
	sum := &Summary{PatientID: patientID}
	v, err := s.repo.Last(ctx, patientID)
	if errors.Is(err, ErrNotFound) {
		return sum, nil
	}
	if err != nil {
		return nil, fmt.Errorf("visit summary: %w", err)
	}
	date := v.VisitDate
	sum.LastVisitDate = &date
	sum.LastAmountCharged = v.AmountCharged
	return sum, nil
}

// Purge deletes every visit, one patient at a time in bounded batches.
// It is not atomic; a rerun continues where an interrupted run stopped.
func (s *Service) Purge(ctx context.Context, confirm string) (*PurgeResult, error) {
	if confirm != "true" {
		return nil, apperr.Validation("This is a destructive operation. To proceed, you must add the query parameter `?confirm=true`.")
	}

	log := zerolog.Ctx(ctx)
	log.Warn().Str("user_id", auth.UserIDFromContext(ctx)).Msg("purging all visits")

	res := &PurgeResult{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, err := s.repo.PatientsWithVisits(ctx, purgeBatchSize)
		if err != nil {
			return nil, fmt.Errorf("list patients with visits: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		var passDeleted int64
		for _, id := range ids {
			n, err := s.purgePatient(ctx, id)
			passDeleted += n
			res.DeletedCount += n
			if err != nil {
				return nil, fmt.Errorf("purge visits of %s: %w", id, err)
			}
			res.PatientsProcessed++
			log.Info().Str("patient_id", id).Int64("deleted", n).Msg("visits purged")
		}
		if passDeleted == 0 {
			break
		}
	}

	if res.PatientsProcessed == 0 {
		res.Message = "No visits found. Nothing to delete."
	} else {
		res.Message = fmt.Sprintf("Deletion complete. Processed %d patients and deleted a total of %d visit documents.",
			res.PatientsProcessed, res.DeletedCount)
	}
	log.Warn().Int64("deleted", res.DeletedCount).Int("patients", res.PatientsProcessed).Msg("visit purge complete")
	return res, nil
}

func (s *Service) purgePatient(ctx context.Context, patientID string) (int64, error) {
	var total int64
	for {
		n, err := s.repo.DeleteBatch(ctx, patientID, purgeBatchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < purgeBatchSize {
			return total, nil
		}
	}
}
