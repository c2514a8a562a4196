package finance

import "errors"

// ErrIndexMissing is returned by a repository when the visit date index
// the range scan depends on does not exist.
var ErrIndexMissing = errors.New("visit date index missing")

// Totals is the charge summary over an inclusive date range.
type Totals struct {
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	TotalAmount float64 `json:"totalAmount"`
	VisitCount  int64   `json:"visitCount"`
}
