package finance

import (
	"context"
	"errors"
	"testing"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
)

type visitRow struct {
	date   string
	amount *float64
}

// mockRepo scans rows in memory the way the stores aggregate them.
type mockRepo struct {
	rows []visitRow
	err  error
}

func (m *mockRepo) SumCharges(_ context.Context, start, end string) (float64, int64, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	var total float64
	var count int64
	for _, r := range m.rows {
		if r.date < start || r.date > end {
			continue
		}
		count++
		if r.amount != nil {
			total += *r.amount
		}
	}
	return total, count, nil
}

func amount(f float64) *float64 { return &f }

func TestService_TotalCharged(t *testing.T) {
	repo := &mockRepo{rows: []visitRow{
		{"2024-03-01", amount(100)},
		{"2024-03-15", amount(200)},
		{"2024-03-31", nil},
		{"2024-04-01", amount(50)},
	}}
	svc := NewService(repo)

	got, err := svc.TotalCharged(context.Background(), "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalAmount != 300 || got.VisitCount != 3 {
		t.Errorf("expected 300/3, got %v/%d", got.TotalAmount, got.VisitCount)
	}
	if got.StartDate != "2024-03-01" || got.EndDate != "2024-03-31" {
		t.Errorf("range not echoed: %+v", got)
	}
}

func TestService_TotalCharged_Validation(t *testing.T) {
	svc := NewService(&mockRepo{})
	cases := [][2]string{
		{"", "2024-01-31"},
		{"2024-01-01", ""},
		{"01/01/2024", "2024-01-31"},
		{"2024-01-01", "2024-02-30"},
	}
	for _, c := range cases {
		_, err := svc.TotalCharged(context.Background(), c[0], c[1])
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("%v: expected validation error, got %v", c, err)
		}
	}
}

func TestService_TotalCharged_IndexMissing(t *testing.T) {
	svc := NewService(&mockRepo{err: ErrIndexMissing})
	_, err := svc.TotalCharged(context.Background(), "2024-01-01", "2024-01-31")
	if !apperr.Is(err, apperr.KindIndexRequired) {
		t.Errorf("expected index required, got %v", err)
	}
}

func TestService_TotalCharged_StoreError(t *testing.T) {
	svc := NewService(&mockRepo{err: errors.New("connection refused")})
	_, err := svc.TotalCharged(context.Background(), "2024-01-01", "2024-01-31")
	if err == nil || apperr.Is(err, apperr.KindIndexRequired) {
		t.Errorf("expected a plain store error, got %v", err)
	}
}

func TestService_TotalCharged_ReversedRange(t *testing.T) {
	svc := NewService(&mockRepo{rows: []visitRow{{"2024-03-01", amount(100)}}})
	got, err := svc.TotalCharged(context.Background(), "2024-04-01", "2024-03-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.VisitCount != 0 || got.TotalAmount != 0 {
		t.Errorf("expected empty totals, got %+v", got)
	}
}
