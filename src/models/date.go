package models

import "time"

// DateLayout is the canonical YYYY-MM-DD format used for all ledger and
// snapshot dates. Dates are day-granular; times of day never matter here.
const DateLayout = "2006-01-02"

// DateOnly truncates a time to midnight UTC so day arithmetic and equality
// checks behave regardless of the wall clock the caller passed in.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a time in the canonical date layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a canonical YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
