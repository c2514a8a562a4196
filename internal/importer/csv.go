// Package importer loads the legacy clinic CSV export into the patient
// directory and the visit ledger, and derives the medication vocabulary
// from it.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Legacy export column names.
const (
	colPReg          = "PReg"
	colName          = "Name"
	colAge           = "Age"
	colAgeUnit       = "YMD"
	colSex           = "Sex"
	colTToken        = "TToken"
	colContactNo     = "ContNo"
	colNICNo         = "NICno"
	colOccupation    = "FName"
	colAddress       = "Address"
	colDate          = "Date"
	colUserID        = "UserID"
	colComplaints    = "Complain"
	colExamination   = "Examination"
	colDiagnosis     = "Diagnose"
	colInvestigation = "Investigation"
	colAdvise        = "Advise"
	colNextPlan      = "NextPlan"
	colMedName       = "MName"
	colMedInstruct   = "DoseInstruc"
	colMedDuration   = "DoseforDay"
)

const utf8BOM = "\ufeff"

// row is one CSV record addressed by header name.
type row struct {
	index  map[string]int
	fields []string
	line   int
}

// get returns the trimmed cell, with the export's "NULL" marker read as
// empty. Unknown columns are empty.
func (r row) get(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	v := strings.TrimSpace(r.fields[i])
	if strings.EqualFold(v, "NULL") {
		return ""
	}
	return v
}

// readRows streams the records of a headed CSV to fn. Every name in
// required must appear in the header.
func readRows(in io.Reader, required []string, fn func(row) error) error {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return errors.New("csv is empty")
	}
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("csv header is missing column %q", col)
		}
	}

	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv line %d: %w", line, err)
		}
		if err := fn(row{index: index, fields: fields, line: line}); err != nil {
			return err
		}
	}
}
