package patient

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("patient not found")
	ErrDuplicate = errors.New("patient already exists")
)

// Demographics are the optional, free-text patient attributes.
type Demographics struct {
	Age             string `json:"age,omitempty" bson:"age,omitempty"`
	AgeUnit         string `json:"ageUnit,omitempty" bson:"ageUnit,omitempty"`
	Sex             string `json:"sex,omitempty" bson:"sex,omitempty"`
	ContactNo       string `json:"contactNo,omitempty" bson:"contactNo,omitempty"`
	NICNo           string `json:"nicNo,omitempty" bson:"nicNo,omitempty"`
	Occupation      string `json:"occupation,omitempty" bson:"occupation,omitempty"`
	Address         string `json:"address,omitempty" bson:"address,omitempty"`
	TToken          string `json:"tToken,omitempty" bson:"tToken,omitempty"`
	RecordedBy      string `json:"recordedByUserId,omitempty" bson:"recordedByUserId,omitempty"`
	DateOfRecording string `json:"dateOfRecording,omitempty" bson:"dateOfRecording,omitempty"`
}

// Patient maps to the patient table and the patients collection.
type Patient struct {
	ID             string `json:"id" bson:"_id"`
	PReg           string `json:"pReg" bson:"pReg"`
	Name           string `json:"name" bson:"name"`
	NameNormalized string `json:"name_normalized" bson:"name_normalized"`
	Demographics   `bson:",inline"`
	IsImported     bool      `json:"isImported" bson:"isImported"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NormalizeName is the search key for a display name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CreateRequest is the body accepted for an interactive patient registration.
// Identity and bookkeeping fields are not bindable.
type CreateRequest struct {
	Name string `json:"name"`
	Demographics
}

// UpdateRequest carries a partial update. Nil fields are left untouched;
// createdAt, isImported and the id are deliberately absent.
type UpdateRequest struct {
	Name            *string `json:"name"`
	Age             *string `json:"age"`
	AgeUnit         *string `json:"ageUnit"`
	Sex             *string `json:"sex"`
	ContactNo       *string `json:"contactNo"`
	NICNo           *string `json:"nicNo"`
	Occupation      *string `json:"occupation"`
	Address         *string `json:"address"`
	TToken          *string `json:"tToken"`
	RecordedBy      *string `json:"recordedByUserId"`
	DateOfRecording *string `json:"dateOfRecording"`
}

// FieldUpdate is one column/field assignment derived from an UpdateRequest.
type FieldUpdate struct {
	Column string
	Field  string
	Value  string
}

// Fields lists the assignments in a stable order. A name change also
// rewrites name_normalized.
func (u *UpdateRequest) Fields() []FieldUpdate {
	var out []FieldUpdate
	add := func(col, field string, v *string) {
		if v != nil {
			out = append(out, FieldUpdate{Column: col, Field: field, Value: *v})
		}
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		out = append(out,
			FieldUpdate{Column: "name", Field: "name", Value: name},
			FieldUpdate{Column: "name_normalized", Field: "name_normalized", Value: NormalizeName(name)},
		)
	}
	add("age", "age", u.Age)
	add("age_unit", "ageUnit", u.AgeUnit)
	add("sex", "sex", u.Sex)
	add("contact_no", "contactNo", u.ContactNo)
	add("nic_no", "nicNo", u.NICNo)
	add("occupation", "occupation", u.Occupation)
	add("address", "address", u.Address)
	add("t_token", "tToken", u.TToken)
	add("recorded_by", "recordedByUserId", u.RecordedBy)
	add("date_of_recording", "dateOfRecording", u.DateOfRecording)
	return out
}

// ImportRecord is one row of a legacy import. Field names follow the
// export format of the previous system.
type ImportRecord struct {
	PReg            string     `json:"pReg"`
	Name            string     `json:"name"`
	Age             string     `json:"ageLastRecorded"`
	AgeUnit         string     `json:"ageUnitLastRecorded"`
	Sex             string     `json:"sex"`
	TToken          string     `json:"tToken"`
	ContactNo       string     `json:"contactNo"`
	NICNo           string     `json:"nicNo"`
	Occupation      string     `json:"fatherName"`
	Address         string     `json:"address"`
	DateOfRecording string     `json:"dateOfRecording"`
	RecordedBy      string     `json:"recordedByUserId"`
	IsImported      *bool      `json:"isImported"`
	CreatedAt       *time.Time `json:"createdAt"`
}

func (r *ImportRecord) toPatient(now time.Time) *Patient {
	name := strings.TrimSpace(r.Name)
	id := strings.TrimSpace(r.PReg)
	p := &Patient{
		ID:             id,
		PReg:           id,
		Name:           name,
		NameNormalized: NormalizeName(name),
		Demographics: Demographics{
			Age:             r.Age,
			AgeUnit:         r.AgeUnit,
			Sex:             r.Sex,
			ContactNo:       r.ContactNo,
			NICNo:           r.NICNo,
			Occupation:      r.Occupation,
			Address:         r.Address,
			TToken:          r.TToken,
			RecordedBy:      r.RecordedBy,
			DateOfRecording: r.DateOfRecording,
		},
		IsImported: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if r.CreatedAt != nil && !r.CreatedAt.IsZero() {
		p.CreatedAt = r.CreatedAt.UTC()
	}
	return p
}

type ImportStatus string

const (
	ImportCreated ImportStatus = "created"
	ImportExists  ImportStatus = "exists"
	ImportSkipped ImportStatus = "skipped"
	ImportError   ImportStatus = "error"
)

type ImportResult struct {
	Index  int          `json:"index"`
	PReg   string       `json:"pReg,omitempty"`
	Status ImportStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// Succeeded reports whether the record is present in the directory afterwards.
func (r ImportResult) Succeeded() bool {
	return r.Status == ImportCreated || r.Status == ImportExists
}

type ImportReport struct {
	Message      string         `json:"message"`
	SuccessCount int            `json:"successCount"`
	FailureCount int            `json:"failureCount"`
	Results      []ImportResult `json:"results"`
	Errors       []ImportResult `json:"errors,omitempty"`
}
