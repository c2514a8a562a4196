package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/clinicnotes/clinicnotes/internal/domain/patient"
)

// DefaultBatchSize is the number of records sent per import call.
const DefaultBatchSize = 50

// PatientImporter accepts a batch of legacy patient records.
type PatientImporter interface {
	ImportBatch(ctx context.Context, records []patient.ImportRecord) (*patient.ImportReport, error)
}

// CounterSetter moves the identifier counter.
type CounterSetter interface {
	SetCounter(ctx context.Context, n int64) error
}

// PatientSummary totals a patient import run.
type PatientSummary struct {
	Rows          int
	Patients      int
	Succeeded     int
	Failed        int
	FailedBatches int
	MaxPReg       int64
	CounterSet    bool
	Failures      []patient.ImportResult
}

// ParsePatients reads one import record per distinct PReg, taking the
// demographics of the first row that carries a name. It also returns the
// highest numeric PReg seen on any row.
func ParsePatients(in io.Reader) ([]patient.ImportRecord, int64, int, error) {
	var (
		records []patient.ImportRecord
		seen    = make(map[string]bool)
		maxPReg int64
		rows    int
	)
	imported := true
	err := readRows(in, []string{colPReg, colName}, func(r row) error {
		rows++
		preg := r.get(colPReg)
		if preg == "" {
			return nil
		}
		if n, ok := patient.ParsePReg(preg); ok && n > maxPReg {
			maxPReg = n
		}
		if seen[preg] {
			return nil
		}
		name := r.get(colName)
		if name == "" {
			return nil
		}
		seen[preg] = true
		records = append(records, patient.ImportRecord{
			PReg:            preg,
			Name:            name,
			Age:             r.get(colAge),
			AgeUnit:         r.get(colAgeUnit),
			Sex:             r.get(colSex),
			TToken:          r.get(colTToken),
			ContactNo:       r.get(colContactNo),
			NICNo:           r.get(colNICNo),
			Occupation:      r.get(colOccupation),
			Address:         r.get(colAddress),
			DateOfRecording: r.get(colDate),
			RecordedBy:      r.get(colUserID),
			IsImported:      &imported,
		})
		return nil
	})
	return records, maxPReg, rows, err
}

// ImportPatients sends the CSV's patients in batches, then sets the counter
// to the highest PReg so new registrations continue after the legacy range.
// A rejected batch is counted and the run continues.
func ImportPatients(ctx context.Context, in io.Reader, batchSize int, dir PatientImporter, counter CounterSetter) (*PatientSummary, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > patient.MaxImportBatch {
		batchSize = patient.MaxImportBatch
	}
	records, maxPReg, rows, err := ParsePatients(in)
	if err != nil {
		return nil, err
	}

	log := zerolog.Ctx(ctx)
	sum := &PatientSummary{Rows: rows, Patients: len(records), MaxPReg: maxPReg}
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		report, err := dir.ImportBatch(ctx, records[start:end])
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			sum.FailedBatches++
			log.Error().Err(err).Int("from", start).Int("to", end).Msg("patient batch rejected")
			continue
		}
		sum.Succeeded += report.SuccessCount
		sum.Failed += report.FailureCount
		sum.Failures = append(sum.Failures, report.Errors...)
		log.Info().Int("sent", end).Int("total", len(records)).Msg("patient batch imported")
	}

	if maxPReg > 0 {
		if err := counter.SetCounter(ctx, maxPReg); err != nil {
			return sum, fmt.Errorf("set counter to %d: %w", maxPReg, err)
		}
		sum.CounterSet = true
	}
	return sum, nil
}
