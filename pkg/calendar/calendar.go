// Package calendar validates and normalizes the day-granularity dates
// stored on visits.
package calendar

import (
	"strings"
	"time"
)

// Layout is the only accepted wire format for a visit date.
const Layout = "2006-01-02"

// legacyLayouts are the date shapes found in clinic CSV exports.
var legacyLayouts = []string{
	Layout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02/01/2006 15:04",
	"2/1/2006 15:04",
}

// Valid reports whether s is a real calendar date in YYYY-MM-DD form.
func Valid(s string) bool {
	if len(s) != len(Layout) {
		return false
	}
	_, err := time.Parse(Layout, s)
	return err == nil
}

// Normalize converts a legacy date string to YYYY-MM-DD. It reports false
// when no known layout matches.
func Normalize(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(Layout), true
		}
	}
	return "", false
}
