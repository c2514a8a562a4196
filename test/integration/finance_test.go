//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/clinicnotes/clinicnotes/internal/domain/visit"
	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
)

func TestTotalCharged(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	svc := newServices()

	amounts := map[string]string{"2024-03-01": "100", "2024-03-15": "200", "2024-03-31": "", "2024-04-01": "50"}
	for date, amount := range amounts {
		d := &visit.Data{VisitDate: date}
		if amount != "" {
			if err := d.AmountCharged.UnmarshalJSON([]byte(amount)); err != nil {
				t.Fatalf("amount: %v", err)
			}
		}
		if _, err := svc.visits.Save(ctx, &visit.SaveRequest{PatientID: "PR-1", VisitData: d}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := svc.charges.TotalCharged(ctx, "2024-03-01", "2024-03-31")
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if got.TotalAmount != 300 || got.VisitCount != 3 {
		t.Errorf("expected 300/3, got %v/%d", got.TotalAmount, got.VisitCount)
	}
}

func TestTotalCharged_IndexRequired(t *testing.T) {
	resetTables(t)
	ctx := context.Background()

	if _, err := globalPool.Exec(ctx, `DROP INDEX idx_visit_visit_date`); err != nil {
		t.Fatalf("drop index: %v", err)
	}
	defer globalPool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_visit_visit_date ON visit (visit_date)`)

	_, err := newServices().charges.TotalCharged(ctx, "2024-01-01", "2024-12-31")
	if !apperr.Is(err, apperr.KindIndexRequired) {
		t.Errorf("expected index required, got %v", err)
	}
}
