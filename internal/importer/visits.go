package importer

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/clinicnotes/clinicnotes/internal/domain/visit"
	"github.com/clinicnotes/clinicnotes/pkg/calendar"
)

// VisitImporter accepts a batch of historical visits.
type VisitImporter interface {
	AddHistoricalBatch(ctx context.Context, items []visit.HistoricalItem) (*visit.BatchReport, error)
}

// VisitSummary totals a visit import run.
type VisitSummary struct {
	Visits        int
	Succeeded     int
	Failed        int
	FailedBatches int
	Failures      []visit.ItemResult
}

type visitKey struct {
	preg string
	date string
}

// ParseVisits groups rows by (PReg, Date) into one historical visit each,
// in first-seen order. The first row of a group supplies the clinical text;
// every row with a medication name adds a prescription line.
func ParseVisits(in io.Reader) ([]visit.HistoricalItem, error) {
	var (
		order  []visitKey
		groups = make(map[visitKey]*visit.Data)
	)
	err := readRows(in, []string{colPReg, colDate}, func(r row) error {
		key := visitKey{preg: r.get(colPReg), date: r.get(colDate)}
		if key.preg == "" || key.date == "" {
			return nil
		}
		d, ok := groups[key]
		if !ok {
			d = newVisitData(r, key.date)
			groups[key] = d
			order = append(order, key)
		}
		if name := r.get(colMedName); name != "" {
			meds := append(*d.Medications, visit.Medication{
				Name:         name,
				Instructions: r.get(colMedInstruct),
				Duration:     r.get(colMedDuration),
			})
			d.Medications = &meds
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]visit.HistoricalItem, 0, len(order))
	for _, key := range order {
		items = append(items, visit.HistoricalItem{PatientID: key.preg, VisitData: groups[key]})
	}
	return items, nil
}

func newVisitData(r row, rawDate string) *visit.Data {
	date := rawDate
	if normalized, ok := calendar.Normalize(rawDate); ok {
		date = normalized
	}
	text := func(col string) *string {
		v := r.get(col)
		return &v
	}
	meds := []visit.Medication{}
	return &visit.Data{
		VisitDate:       date,
		Complaints:      text(colComplaints),
		Examination:     text(colExamination),
		Diagnosis:       text(colDiagnosis),
		Investigation:   text(colInvestigation),
		Advise:          text(colAdvise),
		NextPlan:        text(colNextPlan),
		Medications:     &meds,
		OriginalCSVDate: rawDate,
	}
}

// ImportVisits sends the CSV's grouped visits in batches. Visits whose date
// could not be normalized are reported as skipped by the ledger.
func ImportVisits(ctx context.Context, in io.Reader, batchSize int, ledger VisitImporter) (*VisitSummary, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > visit.MaxHistoricalBatch {
		batchSize = visit.MaxHistoricalBatch
	}
	items, err := ParseVisits(in)
	if err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx)
	sum := &VisitSummary{Visits: len(items)}
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		report, err := ledger.AddHistoricalBatch(ctx, items[start:end])
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			sum.FailedBatches++
			log.Error().Err(err).Int("from", start).Int("to", end).Msg("visit batch rejected")
			continue
		}
		sum.Succeeded += report.SuccessCount
		sum.Failed += report.FailureCount
		sum.Failures = append(sum.Failures, report.Errors...)
		log.Info().Int("sent", end).Int("total", len(items)).Msg("visit batch imported")
	}
	return sum, nil
}
