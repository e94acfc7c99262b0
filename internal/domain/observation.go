// Package domain holds the core bitemporal data model shared by the
// query, derivation, filtering and chart layers.
package domain

import (
	"sort"
	"time"
)

// Observation is one melted row of a bitemporal frame. Each row carries
// the vintage it was reported in (BulletinDate) and the date the
// underlying event happened (DatumDate). For tables keyed only by one
// date axis the fetch layer assigns that date to both fields so that
// bulletin-date filtering works uniformly.
type Observation struct {
	// BulletinDate is the as-of date of the vintage this row belongs to.
	BulletinDate time.Time

	// DatumDate is the date the underlying event (case, test, death,
	// dose) occurred or was recorded upstream.
	DatumDate time.Time

	// Group is an optional secondary dimension: municipality, age range,
	// test type, lateness tier. Empty for single-dimension tables.
	Group string

	// Variable names the measured quantity in display-neutral semantic
	// terms (e.g. "confirmed_cases", "delta_tests").
	Variable string

	// Value is the measurement. nil means missing, which is distinct
	// from zero everywhere in this pipeline.
	Value *float64
}

// Frame is a bitemporal frame in long form.
type Frame []Observation

// Float returns a pointer to v. Convenience for literal frames in
// fixtures and tests.
func Float(v float64) *float64 { return &v }

// MaxBulletinDate returns the latest bulletin date present in the
// frame, or the zero time for an empty frame.
func (f Frame) MaxBulletinDate() time.Time {
	var max time.Time
	for _, o := range f {
		if o.BulletinDate.After(max) {
			max = o.BulletinDate
		}
	}
	return max
}

// Variables returns the distinct variable names in first-seen order.
func (f Frame) Variables() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, o := range f {
		if _, ok := seen[o.Variable]; !ok {
			seen[o.Variable] = struct{}{}
			out = append(out, o.Variable)
		}
	}
	return out
}

// BulletinDates returns the distinct bulletin dates present in the
// frame, ascending.
func (f Frame) BulletinDates() []time.Time {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, o := range f {
		if _, ok := seen[o.BulletinDate]; !ok {
			seen[o.BulletinDate] = struct{}{}
			out = append(out, o.BulletinDate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Groups returns the distinct group values in sorted order, skipping
// the empty group.
func (f Frame) Groups() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, o := range f {
		if o.Group == "" {
			continue
		}
		if _, ok := seen[o.Group]; !ok {
			seen[o.Group] = struct{}{}
			out = append(out, o.Group)
		}
	}
	sort.Strings(out)
	return out
}

// Select returns the rows whose variable matches name.
func (f Frame) Select(name string) Frame {
	var out Frame
	for _, o := range f {
		if o.Variable == name {
			out = append(out, o)
		}
	}
	return out
}

// WithBulletinDate returns a copy of the frame with every row
// assigned the given bulletin date. Single-axis tables carry their one
// date on both axes; collapsing the vintage axis this way lets the
// per-vintage derivations treat such a table as one series over its
// datum axis.
func (f Frame) WithBulletinDate(d time.Time) Frame {
	out := make(Frame, len(f))
	for i, o := range f {
		o.BulletinDate = d
		out[i] = o
	}
	return out
}

// Vintage returns the rows belonging to the given bulletin date.
func (f Frame) Vintage(bulletinDate time.Time) Frame {
	var out Frame
	for _, o := range f {
		if o.BulletinDate.Equal(bulletinDate) {
			out = append(out, o)
		}
	}
	return out
}
