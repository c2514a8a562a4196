package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds the result-size parameters of a list request.
type Params struct {
	Limit int
}

// FromContext reads ?limit=, falling back to DefaultLimit for a missing,
// non-numeric or non-positive value and clamping to MaxLimit.
func FromContext(c echo.Context) Params {
	return Params{Limit: ParseLimit(c.QueryParam("limit"), DefaultLimit)}
}

func ParseLimit(raw string, def int) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		limit = def
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}
