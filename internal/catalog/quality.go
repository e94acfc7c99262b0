package catalog

import (
	"strings"
	"time"

	"covid-charts/internal/chart"
	"covid-charts/internal/domain"
	"covid-charts/internal/filter"
	"covid-charts/internal/mismatch"
	"covid-charts/internal/warehouse"
)

func quality(p Params) []chart.Spec {
	return []chart.Spec{
		{
			Name: "ConsecutiveBulletinMismatch",
			Query: warehouse.QuerySpec{
				Schema:         "quality",
				Table:          "mismatched_announcement_aggregates",
				BulletinColumn: "bulletin_date",
				Values: []warehouse.ValueColumn{
					{Column: "cumulative_confirmed_cases", Variable: "confirmed_cases|announced"},
					{Column: "computed_cumulative_confirmed_cases", Variable: "confirmed_cases|computed"},
					{Column: "cumulative_probable_cases", Variable: "probable_cases|announced"},
					{Column: "computed_cumulative_probable_cases", Variable: "probable_cases|computed"},
					{Column: "cumulative_deaths", Variable: "deaths|announced"},
					{Column: "computed_cumulative_deaths", Variable: "deaths|computed"},
				},
			},
			Filter:  filter.UpTo(),
			Render:  mismatchRender("Discrepancias entre boletines consecutivos"),
			Formats: bothFormats,
		},
		{
			Name: "BulletinChartMismatch",
			Query: warehouse.QuerySpec{
				Schema:         "quality",
				Table:          "mismatched_announcement_and_chart",
				BulletinColumn: "bulletin_date",
				Values: []warehouse.ValueColumn{
					{Column: "cumulative_confirmed_cases", Variable: "confirmed_cases|announced"},
					{Column: "sum_confirmed_cases", Variable: "confirmed_cases|computed"},
					{Column: "cumulative_probable_cases", Variable: "probable_cases|announced"},
					{Column: "sum_probable_cases", Variable: "probable_cases|computed"},
					{Column: "cumulative_deaths", Variable: "deaths|announced"},
					{Column: "sum_deaths", Variable: "deaths|computed"},
				},
			},
			Filter:  filter.UpTo(),
			Render:  mismatchRender("Discrepancias entre anuncios y datos detallados"),
			Formats: bothFormats,
		},
	}
}

// mismatchRender reconciles each variable's announced total against
// its recomputed counterpart and charts the discrepancy over time.
// The fetched frame encodes the pairing in the variable name as
// "{variable}|announced" and "{variable}|computed".
func mismatchRender(title string) chart.RenderFunc {
	return func(f domain.Frame, _ time.Time) (*chart.Document, error) {
		var announced, computed domain.Frame
		for _, o := range f {
			base, kind, ok := strings.Cut(o.Variable, "|")
			if !ok {
				continue
			}
			o.Variable = base
			switch kind {
			case "announced":
				announced = append(announced, o)
			case "computed":
				computed = append(computed, o)
			}
		}

		var rows []chart.Row
		for _, r := range mismatch.Detect(announced, computed) {
			rows = append(rows, chart.Row{
				"bulletin_date": chart.ISO(r.BulletinDate),
				"variable":      r.Variable,
				"announced":     r.Announced,
				"computed":      r.Computed,
				"value":         r.Discrepancy(),
			})
		}

		return &chart.Document{
			Title: title,
			Mark:  "bar",
			Encoding: chart.Encoding{
				X:      &chart.Channel{Field: "bulletin_date", Type: "temporal", Title: "Boletín"},
				Y:      &chart.Channel{Field: "value", Type: "quantitative", Title: "Discrepancia"},
				Column: &chart.Channel{Field: "variable", Type: "nominal"},
			},
			Data: chart.Data{Values: rows},
		}, nil
	}
}
