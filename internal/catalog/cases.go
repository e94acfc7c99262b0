package catalog

import (
	"time"

	"covid-charts/internal/chart"
	"covid-charts/internal/derive"
	"covid-charts/internal/domain"
	"covid-charts/internal/filter"
	"covid-charts/internal/warehouse"
)

func cases(p Params) []chart.Spec {
	return []chart.Spec{
		{
			Name: "Cumulative",
			Query: warehouse.QuerySpec{
				Schema:         "products",
				Table:          "cumulative_data",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "datum_date",
				Values: []warehouse.ValueColumn{
					{Column: "confirmed_cases", Variable: "Casos confirmados"},
					{Column: "probable_cases", Variable: "Casos probables"},
					{Column: "positive_results", Variable: "Pruebas positivas"},
					{Column: "announced_cases", Variable: "Casos anunciados"},
					{Column: "deaths", Variable: "Muertes"},
					{Column: "announced_deaths", Variable: "Muertes anunciadas"},
				},
			},
			Filter:  filter.Exact(),
			Render:  lineChart("Casos acumulados"),
			Formats: bothFormats,
		},
		{
			Name: "NewCases",
			Query: warehouse.QuerySpec{
				Table:          "bitemporal",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "datum_date",
				Values: []warehouse.ValueColumn{
					{Column: "confirmed_cases", Variable: "Casos confirmados"},
					{Column: "probable_cases", Variable: "Casos probables"},
					{Column: "deaths", Variable: "Muertes"},
				},
			},
			Filter:  filter.Exact(),
			Render:  newCasesRender,
			Formats: bothFormats,
		},
		{
			Name: "AgeGroups",
			Query: warehouse.QuerySpec{
				Table:          "age_groups_molecular_agg",
				BulletinColumn: "bulletin_date",
				GroupColumn:    "age_range",
				Values: []warehouse.ValueColumn{
					{Column: "smoothed_daily_cases", Variable: "Casos diarios (promedio 7 dias)"},
				},
			},
			Filter: filter.UpTo(),
			Render: func(f domain.Frame, _ time.Time) (*chart.Document, error) {
				return &chart.Document{
					Title: "Casos por grupo de edad",
					Mark:  "line",
					Encoding: chart.Encoding{
						X:     &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha de boletín"},
						Y:     &chart.Channel{Field: "value", Type: "quantitative"},
						Color: &chart.Channel{Field: "group", Type: "nominal", Title: "Edad"},
					},
					Data: chart.Data{Values: frameRows(f)},
				}, nil
			},
			Formats: bothFormats,
		},
		{
			Name: "AgeGroups5Y",
			Query: warehouse.QuerySpec{
				Schema:         "covid_pr_etl",
				Table:          "cases_by_age_5y",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "collected_date",
				GroupColumn:    "youngest",
				Values: []warehouse.ValueColumn{
					{Column: "cases_1m", Variable: "Casos por millón"},
				},
			},
			Filter: filter.Exact(),
			Render: func(f domain.Frame, _ time.Time) (*chart.Document, error) {
				return &chart.Document{
					Title: "Casos por edad (grupos de 5 años)",
					Mark:  "rect",
					Encoding: chart.Encoding{
						X:     &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha de muestra"},
						Y:     &chart.Channel{Field: "group", Type: "ordinal", Title: "Edad"},
						Color: &chart.Channel{Field: "value", Type: "quantitative"},
					},
					Data: chart.Data{Values: frameRows(f)},
				}, nil
			},
			Formats: bothFormats,
		},
	}
}

// newCasesRender turns the vintage's cumulative series into daily
// increments with a 7-day trailing mean overlay.
func newCasesRender(f domain.Frame, _ time.Time) (*chart.Document, error) {
	daily := derive.DatumDiffs(f)

	rows := make([]chart.Row, 0, 2*len(daily))
	for _, o := range daily {
		rows = append(rows, chart.Row{
			"datum_date": chart.ISO(o.DatumDate),
			"variable":   o.Variable,
			"series":     "Diario",
			"value":      o.Value,
		})
	}
	for _, w := range derive.Rolling(daily, 7) {
		rows = append(rows, chart.Row{
			"datum_date": chart.ISO(w.DatumDate),
			"variable":   w.Variable,
			"series":     "Promedio 7 días",
			"value":      w.Mean,
		})
	}

	return &chart.Document{
		Title: "Casos nuevos",
		Mark:  "line",
		Encoding: chart.Encoding{
			X:          &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha del evento"},
			Y:          &chart.Channel{Field: "value", Type: "quantitative"},
			Color:      &chart.Channel{Field: "variable", Type: "nominal"},
			StrokeDash: &chart.Channel{Field: "series", Type: "nominal"},
		},
		Data: chart.Data{Values: rows},
	}, nil
}
