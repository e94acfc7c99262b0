// Package catalog holds the fixed chart catalog: one Spec per
// published chart, composing a warehouse query, a bulletin-date
// filter policy and a data-shaping render function. The catalog is
// data, not behavior; everything here is assembled once per run.
package catalog

import (
	"fmt"
	"sort"
	"time"

	"covid-charts/internal/chart"
	"covid-charts/internal/domain"
)

// Params carries the few run-level values chart shaping depends on.
type Params struct {
	// Population is the resident population for per-capita rates.
	Population float64
}

// All returns every chart in the catalog.
func All(p Params) []chart.Spec {
	var specs []chart.Spec
	specs = append(specs, cases(p)...)
	specs = append(specs, deltas(p)...)
	specs = append(specs, lateness(p)...)
	specs = append(specs, testCharts(p)...)
	specs = append(specs, municipal(p)...)
	specs = append(specs, hospitals(p)...)
	specs = append(specs, vaccinations(p)...)
	specs = append(specs, quality(p)...)
	return specs
}

// bothFormats is the default output set for catalog charts.
var bothFormats = []string{chart.FormatJSON, chart.FormatCSV}

// frameRows melts a frame into output rows. Missing values become
// explicit nulls so the rendering backend can break lines on gaps.
func frameRows(f domain.Frame) []chart.Row {
	rows := make([]chart.Row, 0, len(f))
	for _, o := range f {
		row := chart.Row{
			"bulletin_date": chart.ISO(o.BulletinDate),
			"datum_date":    chart.ISO(o.DatumDate),
			"variable":      o.Variable,
			"value":         o.Value,
		}
		if o.Group != "" {
			row["group"] = o.Group
		}
		rows = append(rows, row)
	}
	return rows
}

// sortRows orders rows by the given keys so that artifacts built from
// map-keyed aggregations come out deterministic.
func sortRows(rows []chart.Row, keys ...string) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			a, b := fmt.Sprint(rows[i][k]), fmt.Sprint(rows[j][k])
			if a != b {
				return a < b
			}
		}
		return false
	})
}

// lineChart is the common shape: datum date on x, value on y, one
// colored series per variable.
func lineChart(title string) chart.RenderFunc {
	return func(f domain.Frame, _ time.Time) (*chart.Document, error) {
		return &chart.Document{
			Title: title,
			Mark:  "line",
			Encoding: chart.Encoding{
				X:     &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha"},
				Y:     &chart.Channel{Field: "value", Type: "quantitative"},
				Color: &chart.Channel{Field: "variable", Type: "nominal"},
			},
			Data: chart.Data{Values: frameRows(f)},
		}, nil
	}
}

// overlayChart is the week-over-week shape: the current vintage drawn
// solid, the one from seven days back dashed.
func overlayChart(title string) chart.RenderFunc {
	return func(f domain.Frame, _ time.Time) (*chart.Document, error) {
		return &chart.Document{
			Title: title,
			Mark:  "line",
			Encoding: chart.Encoding{
				X:          &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha"},
				Y:          &chart.Channel{Field: "value", Type: "quantitative"},
				Color:      &chart.Channel{Field: "variable", Type: "nominal"},
				StrokeDash: &chart.Channel{Field: "bulletin_date", Type: "ordinal", Title: "Datos hasta"},
			},
			Data: chart.Data{Values: frameRows(f)},
		}, nil
	}
}
