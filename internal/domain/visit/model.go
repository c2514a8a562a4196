package visit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("visit not found")

// Medication is one prescription line. List order is clinically meaningful.
type Medication struct {
	Name         string `json:"name" bson:"name"`
	Instructions string `json:"instructions" bson:"instructions"`
	Duration     string `json:"duration" bson:"duration"`
}

// Visit maps to the visit table and the visits collection. A nil
// AmountCharged means the charge is unknown.
type Visit struct {
	ID                 string       `json:"id" bson:"_id"`
	PatientID          string       `json:"patientId" bson:"patientId"`
	VisitDate          string       `json:"visitDate" bson:"visitDate"`
	Complaints         string       `json:"complaints" bson:"complaints"`
	Examination        string       `json:"examination" bson:"examination"`
	Diagnosis          string       `json:"diagnosis" bson:"diagnosis"`
	Investigation      string       `json:"investigation" bson:"investigation"`
	Advise             string       `json:"advise" bson:"advise"`
	NextPlan           string       `json:"nextPlan" bson:"nextPlan"`
	Medications        []Medication `json:"medications" bson:"medications"`
	AmountCharged      *float64     `json:"amountCharged" bson:"amountCharged"`
	ImportedHistorical bool         `json:"importedHistorical" bson:"importedHistorical"`
	OriginalCSVDate    string       `json:"originalCsvDate,omitempty" bson:"originalCsvDate,omitempty"`
	CreatedAt          time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt" bson:"updatedAt"`

	// Seq orders visits that share a visitDate by insertion.
	Seq int64 `json:"-" bson:"seq"`
}

// Amount is a tri-state charge: absent, explicit null, or a number.
// Numeric strings are accepted since form inputs often submit them.
type Amount struct {
	Set   bool
	Value *float64
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	a.Set = true
	a.Value = nil
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err == nil && finite(f) {
		a.Value = &f
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && finite(f) {
			a.Value = &f
			return nil
		}
	}
	return fmt.Errorf("amountCharged must be a number or null, got %s", b)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*a.Value)
}

// Data is the client-supplied part of a visit. Nil fields are absent.
type Data struct {
	VisitID         string        `json:"visitId,omitempty"`
	VisitDate       string        `json:"visitDate"`
	Complaints      *string       `json:"complaints,omitempty"`
	Examination     *string       `json:"examination,omitempty"`
	Diagnosis       *string       `json:"diagnosis,omitempty"`
	Investigation   *string       `json:"investigation,omitempty"`
	Advise          *string       `json:"advise,omitempty"`
	NextPlan        *string       `json:"nextPlan,omitempty"`
	Medications     *[]Medication `json:"medications,omitempty"`
	AmountCharged   Amount        `json:"amountCharged"`
	OriginalCSVDate string        `json:"originalCsvDate,omitempty"`
}

// apply merges the present fields of d into v.
func (d *Data) apply(v *Visit) {
	v.VisitDate = d.VisitDate
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&v.Complaints, d.Complaints)
	set(&v.Examination, d.Examination)
	set(&v.Diagnosis, d.Diagnosis)
	set(&v.Investigation, d.Investigation)
	set(&v.Advise, d.Advise)
	set(&v.NextPlan, d.NextPlan)
	if d.Medications != nil {
		v.Medications = append([]Medication{}, (*d.Medications)...)
	}
	if d.AmountCharged.Set {
		v.AmountCharged = d.AmountCharged.Value
	}
	if v.Medications == nil {
		v.Medications = []Medication{}
	}
}

// FieldUpdate is one column/field assignment written by a merge.
type FieldUpdate struct {
	Column string
	Field  string
	Value  interface{}
}

// updates lists what a merge writes: the visit date and the present fields.
func (d *Data) updates() []FieldUpdate {
	out := []FieldUpdate{{Column: "visit_date", Field: "visitDate", Value: d.VisitDate}}
	add := func(col, field string, v *string) {
		if v != nil {
			out = append(out, FieldUpdate{Column: col, Field: field, Value: *v})
		}
	}
	add("complaints", "complaints", d.Complaints)
	add("examination", "examination", d.Examination)
	add("diagnosis", "diagnosis", d.Diagnosis)
	add("investigation", "investigation", d.Investigation)
	add("advise", "advise", d.Advise)
	add("next_plan", "nextPlan", d.NextPlan)
	if d.Medications != nil {
		out = append(out, FieldUpdate{Column: "medications", Field: "medications",
			Value: append([]Medication{}, (*d.Medications)...)})
	}
	if d.AmountCharged.Set {
		out = append(out, FieldUpdate{Column: "amount_charged", Field: "amountCharged", Value: d.AmountCharged.Value})
	}
	return out
}

// SaveRequest is the body of an interactive save. A VisitID selects an
// existing visit to merge into; it may also be sent inside visitData.
type SaveRequest struct {
	PatientID string `json:"patientId"`
	VisitID   string `json:"visitId,omitempty"`
	VisitData *Data  `json:"visitData"`
}

type SaveResult struct {
	Success   bool   `json:"success"`
	PatientID string `json:"patientId"`
	VisitID   string `json:"visitId"`
	Action    string `json:"action"`
	Message   string `json:"message"`
}

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// HistoricalItem is one legacy visit to import.
type HistoricalItem struct {
	PatientID string `json:"patientId"`
	VisitData *Data  `json:"visitData"`
}

// historicalNamespace seeds the name-based ids of imported visits.
var historicalNamespace = uuid.MustParse("6f1c2a4e-93b8-4d5e-a0c1-7e2f9b3d8a64")

// HistoricalID derives a stable visit id from the visit's owner, date and
// clinical content, so a retried import finds the visit it already wrote
// while two distinct visits on the same day stay apart.
func HistoricalID(v *Visit) string {
	content, _ := json.Marshal(struct {
		OriginalCSVDate string       `json:"o"`
		Complaints      string       `json:"c"`
		Examination     string       `json:"e"`
		Diagnosis       string       `json:"d"`
		Investigation   string       `json:"i"`
		Advise          string       `json:"a"`
		NextPlan        string       `json:"n"`
		Medications     []Medication `json:"m"`
		AmountCharged   *float64     `json:"amt"`
	}{
		v.OriginalCSVDate, v.Complaints, v.Examination, v.Diagnosis,
		v.Investigation, v.Advise, v.NextPlan, v.Medications, v.AmountCharged,
	})
	key := append([]byte(v.PatientID+"|"+v.VisitDate+"|"), content...)
	return uuid.NewSHA1(historicalNamespace, key).String()
}

type ItemStatus string

const (
	ItemSuccess ItemStatus = "success"
	ItemExists  ItemStatus = "exists"
	ItemSkipped ItemStatus = "skipped"
	ItemError   ItemStatus = "error"
)

type ItemResult struct {
	Index     int        `json:"index"`
	PatientID string     `json:"patientId,omitempty"`
	VisitID   string     `json:"visitId,omitempty"`
	VisitDate string     `json:"visitDate,omitempty"`
	Status    ItemStatus `json:"status"`
	Reason    string     `json:"reason,omitempty"`
}

func (r ItemResult) Succeeded() bool {
	return r.Status == ItemSuccess || r.Status == ItemExists
}

type BatchReport struct {
	Message      string       `json:"message"`
	SuccessCount int          `json:"successCount"`
	FailureCount int          `json:"failureCount"`
	TotalItems   int          `json:"totalItems"`
	Results      []ItemResult `json:"results"`
	Errors       []ItemResult `json:"errors,omitempty"`
}

type Summary struct {
	PatientID         string   `json:"patientId"`
	LastVisitDate     *string  `json:"lastVisitDate"`
	LastAmountCharged *float64 `json:"lastAmountCharged"`
}

type PurgeResult struct {
	Message           string `json:"message"`
	DeletedCount      int64  `json:"deletedCount"`
	PatientsProcessed int    `json:"patientsProcessed"`
}

// Order selects the sort of a visit listing. Ties always fall back to
// insertion order in the same direction.
type Order struct {
	Field string
	Desc  bool
}

// orderFields maps sortable JSON field names to table columns.
var orderFields = map[string]string{
	"visitDate":     "visit_date",
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"amountCharged": "amount_charged",
}

// ParseOrder validates the orderBy and orderDirection query values.
func ParseOrder(field, direction string) (Order, error) {
	if field == "" {
		field = "visitDate"
	}
	if _, ok := orderFields[field]; !ok {
		return Order{}, errors.New("orderBy must be one of visitDate, createdAt, updatedAt, amountCharged")
	}
	switch strings.ToLower(direction) {
	case "", "desc":
		return Order{Field: field, Desc: true}, nil
	case "asc":
		return Order{Field: field}, nil
	default:
		return Order{}, errors.New("orderDirection must be asc or desc")
	}
}

func (o Order) column() string { return orderFields[o.Field] }
