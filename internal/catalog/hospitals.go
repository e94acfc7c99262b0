package catalog

import (
	"time"

	"covid-charts/internal/chart"
	"covid-charts/internal/derive"
	"covid-charts/internal/domain"
	"covid-charts/internal/filter"
	"covid-charts/internal/warehouse"
)

func hospitals(p Params) []chart.Spec {
	return []chart.Spec{
		{
			Name: "HHSHospitalizations",
			Query: warehouse.QuerySpec{
				Schema:      "covid_pr_etl",
				Table:       "hospitalizations",
				DatumColumn: "date",
				Values: []warehouse.ValueColumn{
					{Column: "hospitalized_currently", Variable: "Hospitalizados"},
					{Column: "in_icu_currently", Variable: "En intensivo"},
				},
			},
			// The federal census runs a day ahead of the local
			// bulletins, so one extra day is admitted.
			Filter:  filter.Shifted(1, filter.UpTo()),
			Render:  hospitalCensusRender,
			Formats: bothFormats,
		},
		{
			Name: "RecentHospitalizations",
			Query: warehouse.QuerySpec{
				Schema:      "covid_pr_etl",
				Table:       "prdoh_hospitalizations",
				DatumColumn: "date",
				GroupColumn: "resource",
				Values: []warehouse.ValueColumn{
					{Column: "covid", Variable: "COVID"},
					{Column: "nocovid", Variable: "Otras causas"},
					{Column: "disp", Variable: "Disponibles"},
				},
				Where:        &warehouse.Discriminator{Column: "age", Equals: "Adultos"},
				LookbackDays: 43,
			},
			Filter: filter.Shifted(1, filter.WindowedInclusive(42)),
			Render: func(f domain.Frame, _ time.Time) (*chart.Document, error) {
				return &chart.Document{
					Title: "Ocupación hospitalaria reciente (adultos)",
					Mark:  "area",
					Encoding: chart.Encoding{
						X:     &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha"},
						Y:     &chart.Channel{Field: "value", Type: "quantitative", Title: "Camas"},
						Color: &chart.Channel{Field: "variable", Type: "nominal"},
						Row:   &chart.Channel{Field: "group", Type: "nominal", Title: "Recurso"},
					},
					Data: chart.Data{Values: frameRows(f)},
				}, nil
			},
			Formats: bothFormats,
		},
	}
}

// hospitalCensusRender overlays the raw daily census with its 7-day
// trailing mean.
func hospitalCensusRender(f domain.Frame, bulletinDate time.Time) (*chart.Document, error) {
	series := f.WithBulletinDate(bulletinDate)

	rows := make([]chart.Row, 0, 2*len(series))
	for _, o := range series {
		rows = append(rows, chart.Row{
			"datum_date": chart.ISO(o.DatumDate),
			"variable":   o.Variable,
			"series":     "Diario",
			"value":      o.Value,
		})
	}
	for _, w := range derive.Rolling(series, 7) {
		rows = append(rows, chart.Row{
			"datum_date": chart.ISO(w.DatumDate),
			"variable":   w.Variable,
			"series":     "Promedio 7 días",
			"value":      w.Mean,
		})
	}
	return &chart.Document{
		Title: "Censo hospitalario (HHS)",
		Mark:  "line",
		Encoding: chart.Encoding{
			X:          &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha"},
			Y:          &chart.Channel{Field: "value", Type: "quantitative", Title: "Pacientes"},
			Color:      &chart.Channel{Field: "variable", Type: "nominal"},
			StrokeDash: &chart.Channel{Field: "series", Type: "nominal"},
		},
		Data: chart.Data{Values: rows},
	}, nil
}
