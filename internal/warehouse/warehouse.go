// Package warehouse defines the read boundary against the SQL
// warehouse: which table, which columns, which bulletin-date range.
// No business logic lives here beyond column selection and renaming;
// everything downstream works on the melted frame it returns.
package warehouse

import (
	"context"
	"time"

	"covid-charts/internal/domain"
)

// ValueColumn maps a warehouse column to its display-neutral semantic
// variable name in the melted frame. Label translation for humans is a
// render-time concern, not a fetch-time one.
type ValueColumn struct {
	Column   string
	Variable string
}

// Discriminator is an optional row predicate on a categorical column,
// expressible both as SQL and against in-memory fixtures.
type Discriminator struct {
	Column string
	Equals string   // keep rows where column == Equals (when set)
	NotIn  []string // drop rows where column is one of these
}

// QuerySpec describes one chart's read pattern.
type QuerySpec struct {
	Schema string
	Table  string

	// BulletinColumn is the vintage axis. Empty for tables keyed by a
	// single date axis; the fetch then assigns DatumColumn's value to
	// both axes so bulletin-date filtering still applies.
	BulletinColumn string

	// DatumColumn is the event-date axis. Empty for tables keyed only
	// by bulletin date.
	DatumColumn string

	// GroupColumn is the optional secondary dimension (municipality,
	// age range, test type, tier).
	GroupColumn string

	Values []ValueColumn
	Where  *Discriminator

	// LookbackDays widens the fetched bulletin range below the earliest
	// requested date, covering however much history the chart's rolling
	// windows and delta comparisons need. 0 to 42 across the catalog.
	LookbackDays int
}

// Range returns the bulletin-date bounds [min(requested)−lookback,
// max(requested)] for the fetch.
func (q QuerySpec) Range(bulletinDates []time.Time) (time.Time, time.Time) {
	min := domain.MinDate(bulletinDates).AddDate(0, 0, -q.LookbackDays)
	return min, domain.MaxDate(bulletinDates)
}

// SelectColumns returns the projected columns in scan order: the
// filterable date axis first, the datum axis when distinct, the group
// column, then the value columns.
func (q QuerySpec) SelectColumns() []string {
	var cols []string
	if q.BulletinColumn != "" {
		cols = append(cols, q.BulletinColumn)
		if q.DatumColumn != "" {
			cols = append(cols, q.DatumColumn)
		}
	} else {
		cols = append(cols, q.DatumColumn)
	}
	if q.GroupColumn != "" {
		cols = append(cols, q.GroupColumn)
	}
	for _, v := range q.Values {
		cols = append(cols, v.Column)
	}
	return cols
}

// OrderColumns returns the deterministic sort order for fetched rows.
func (q QuerySpec) OrderColumns() []string {
	var cols []string
	if q.BulletinColumn != "" {
		cols = append(cols, q.BulletinColumn)
	}
	if q.DatumColumn != "" {
		cols = append(cols, q.DatumColumn)
	}
	if q.GroupColumn != "" {
		cols = append(cols, q.GroupColumn)
	}
	return cols
}

// RequiredColumns lists every column the spec's contract depends on,
// including the discriminator column.
func (q QuerySpec) RequiredColumns() []string {
	cols := q.SelectColumns()
	if q.Where != nil {
		cols = append(cols, q.Where.Column)
	}
	return cols
}

// Match reports whether a row's discriminator value passes the spec's
// predicate. Used by backends that filter client-side.
func (d *Discriminator) Match(value string) bool {
	if d == nil {
		return true
	}
	if d.Equals != "" && value != d.Equals {
		return false
	}
	for _, v := range d.NotIn {
		if value == v {
			return false
		}
	}
	return true
}

// Warehouse is the read interface the chart pipeline consumes. Fetch
// returns the melted frame for the requested bulletin dates, widened
// by the spec's lookback. Zero rows is not an error; a missing table
// is ErrDataUnavailable and a missing column ErrSchemaMismatch.
type Warehouse interface {
	Fetch(ctx context.Context, spec QuerySpec, bulletinDates []time.Time) (domain.Frame, error)
}
