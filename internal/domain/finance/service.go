package finance

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
	"github.com/clinicnotes/clinicnotes/pkg/calendar"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// TotalCharged sums charges over visits dated within [startDate, endDate].
// A reversed range is not an error; it matches nothing.
func (s *Service) TotalCharged(ctx context.Context, startDate, endDate string) (*Totals, error) {
	if startDate == "" || endDate == "" {
		return nil, apperr.Validation("Missing startDate or endDate.")
	}
	if !calendar.Valid(startDate) || !calendar.Valid(endDate) {
		return nil, apperr.Validation("Dates must be formatted YYYY-MM-DD.")
	}

	total, count, err := s.repo.SumCharges(ctx, startDate, endDate)
	if errors.Is(err, ErrIndexMissing) {
		return nil, apperr.IndexRequired(
			"The visit date index is missing. Run `clinicnotes-server migrate up` to create it, then retry.", err)
	}
	if err != nil {
		return nil, fmt.Errorf("sum charges: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("start", startDate).
		Str("end", endDate).
		Int64("visits", count).
		Msg("charges totalled")
	return &Totals{StartDate: startDate, EndDate: endDate, TotalAmount: total, VisitCount: count}, nil
}
