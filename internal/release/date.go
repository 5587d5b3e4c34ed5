package release

import (
	"strings"
	"time"
)

// DateLayout is the persisted calendar date format.
const DateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or an RFC3339 timestamp (the catalog sends
// "2024-05-01T00:00:00.000Z") and returns the UTC calendar day.
// Anything else is treated as "no date".
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Day(t), true
	}
	return time.Time{}, false
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a calendar day by n days.
func AddDays(day time.Time, n int) time.Time {
	return Day(day).AddDate(0, 0, n)
}

// Within reports whether day lies in [from, to], comparing calendar days.
func Within(day, from, to time.Time) bool {
	d := Day(day)
	return !d.Before(Day(from)) && !d.After(Day(to))
}
