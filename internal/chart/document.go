// Package chart composes one chart's query, filter policy and render
// transform into an artifact-producing unit, and drives the catalog
// across bulletin dates.
package chart

import (
	"sort"
	"time"

	"covid-charts/internal/domain"
)

// Document is the declarative chart specification handed to the
// rendering backend. Layout concerns (color scales, legends, exact
// mark styling) belong to that backend; only the data shape matters
// here.
type Document struct {
	Title    string   `json:"title,omitempty"`
	Mark     string   `json:"mark"`
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	Encoding Encoding `json:"encoding"`
	Data     Data     `json:"data"`
}

// Encoding names the fields bound to each visual channel.
type Encoding struct {
	X          *Channel `json:"x,omitempty"`
	Y          *Channel `json:"y,omitempty"`
	Color      *Channel `json:"color,omitempty"`
	StrokeDash *Channel `json:"strokeDash,omitempty"`
	Row        *Channel `json:"row,omitempty"`
	Column     *Channel `json:"column,omitempty"`
}

// Channel binds one data field to a visual channel.
type Channel struct {
	Field string `json:"field"`
	Type  string `json:"type"` // "temporal", "quantitative", "nominal", "ordinal"
	Title string `json:"title,omitempty"`
}

// Data carries the shaped rows inline.
type Data struct {
	Values []Row `json:"values"`
}

// Row is one shaped output datum.
type Row map[string]any

// Columns returns the union of keys across all rows, sorted, for
// column-oriented output formats.
func (d Data) Columns() []string {
	seen := make(map[string]struct{})
	for _, r := range d.Values {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// ISO formats a date for output rows.
func ISO(t time.Time) string {
	return t.Format(domain.ISODate)
}
