package domain

import (
	"fmt"
	"time"
)

// ISODate is the wire and filename format for bulletin dates.
const ISODate = "2006-01-02"

// Date builds a UTC-midnight date. All dates in the pipeline are
// calendar dates; times of day never appear.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO yyyy-mm-dd date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Dates returns the inclusive day-by-day range [start, end].
func Dates(start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}
	n := int(end.Sub(start).Hours()/24) + 1
	out := make([]time.Time, 0, n)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// DaysBetween returns the whole days from a to b (positive when b is
// later).
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// MinDate and MaxDate reduce a non-empty date slice.
func MinDate(dates []time.Time) time.Time {
	min := dates[0]
	for _, d := range dates[1:] {
		if d.Before(min) {
			min = d
		}
	}
	return min
}

func MaxDate(dates []time.Time) time.Time {
	max := dates[0]
	for _, d := range dates[1:] {
		if d.After(max) {
			max = d
		}
	}
	return max
}
