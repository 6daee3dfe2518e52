package core

import (
	"fmt"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

// ParseDate accepts a calendar date (2025-03-14) or an RFC 3339 timestamp and
// returns it in UTC. The boolean reports whether the calendar-date form was used.
func ParseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t.UTC(), true, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid date %q", s)
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
}

// SameMonth reports whether a and b fall in the same calendar month and
// year, both read in UTC.
func SameMonth(a, b time.Time) bool {
	ay, am, _ := a.UTC().Date()
	by, bm, _ := b.UTC().Date()
	return ay == by && am == bm
}

// MonthBounds returns the first and last instant of the month containing t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	y, m, _ := t.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}
