package finance

import "context"

// Repository aggregates visit charges across every patient. Visits without
// a numeric amount add nothing to the sum but are counted.
type Repository interface {
	SumCharges(ctx context.Context, startDate, endDate string) (total float64, count int64, err error)
}
