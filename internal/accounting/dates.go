package accounting

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used by every ledger entry.
const DateLayout = "2006-01-02"

var (
	minDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// ParseDate reads a calendar date. Full RFC 3339 timestamps are accepted and
// reduced to the date in their own offset. The result is midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

func boundOr(s string, fallback time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return fallback
}

// Period names accepted by ResolvePeriod.
const (
	PeriodAll    = "all"
	PeriodToday  = "today"
	PeriodWeek   = "week"
	PeriodMonth  = "month"
	PeriodYear   = "year"
	PeriodCustom = "custom"
)

// ResolvePeriod turns a named report period into an inclusive date range
// relative to now. Unknown names, and "all", give an unbounded range; "custom"
// passes start and end through. Empty strings mean unbounded.
func ResolvePeriod(period, start, end string, now time.Time) (string, string) {
	today := now.Format(DateLayout)
	switch period {
	case PeriodToday:
		return today, today
	case PeriodWeek:
		return now.AddDate(0, 0, -7).Format(DateLayout), today
	case PeriodMonth:
		return now.AddDate(0, -1, 0).Format(DateLayout), today
	case PeriodYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()).Format(DateLayout), today
	case PeriodCustom:
		return start, end
	}
	return "", ""
}

// ValidPeriod reports whether p is a known period name. Empty counts as "all".
func ValidPeriod(p string) bool {
	switch p {
	case "", PeriodAll, PeriodToday, PeriodWeek, PeriodMonth, PeriodYear, PeriodCustom:
		return true
	}
	return false
}
