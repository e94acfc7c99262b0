package catalog

import (
	"time"

	"covid-charts/internal/chart"
	"covid-charts/internal/derive"
	"covid-charts/internal/domain"
	"covid-charts/internal/filter"
	"covid-charts/internal/warehouse"
)

func deltas(p Params) []chart.Spec {
	dailyDeltaValues := []warehouse.ValueColumn{
		{Column: "delta_confirmed_cases", Variable: "Casos confirmados"},
		{Column: "delta_probable_cases", Variable: "Casos probables"},
		{Column: "delta_deaths", Variable: "Muertes"},
	}

	return []chart.Spec{
		{
			Name: "CurrentDeltas",
			Query: warehouse.QuerySpec{
				Schema:         "products",
				Table:          "daily_deltas",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "datum_date",
				Values:         dailyDeltaValues,
			},
			Filter:  filter.Exact(),
			Render:  deltaBars("Revisiones en este boletín"),
			Formats: bothFormats,
		},
		{
			Name: "DailyDeltas",
			Query: warehouse.QuerySpec{
				Schema:         "products",
				Table:          "daily_deltas",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "datum_date",
				Values:         dailyDeltaValues,
				LookbackDays:   14,
			},
			Filter:  filter.Windowed(14),
			Render:  deltaHeatmap("Revisiones por boletín"),
			Formats: bothFormats,
		},
		{
			Name: "WeekdayBias",
			Query: warehouse.QuerySpec{
				Table:          "bitemporal_agg",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "datum_date",
				Values:         dailyDeltaValues,
				LookbackDays:   22,
			},
			// The bias is judged against the 21 bulletins before this
			// one, so the window is shifted one day back.
			Filter:  filter.Shifted(-1, filter.Windowed(21)),
			Render:  weekdayBiasRender,
			Formats: bothFormats,
		},
		{
			Name: "RecentCases",
			Query: warehouse.QuerySpec{
				Schema:         "covid_pr_etl",
				Table:          "recent_daily_cases",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "datum_date",
				Values: []warehouse.ValueColumn{
					{Column: "tests", Variable: "Pruebas"},
					{Column: "cases", Variable: "Casos"},
					{Column: "inpatient_beds_used_covid", Variable: "Hospitalizados"},
					{Column: "deaths", Variable: "Muertes"},
				},
				LookbackDays: 7,
			},
			Filter:  filter.WeekOverWeek(),
			Render:  smoothedOverlay("Casos recientes (promedio 7 días)"),
			Formats: bothFormats,
		},
		{
			Name: "NewDailyCases",
			Query: warehouse.QuerySpec{
				Schema:         "covid_pr_etl",
				Table:          "new_daily_cases",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "datum_date",
				Values: []warehouse.ValueColumn{
					{Column: "bioportal", Variable: "Casos (Bioportal)"},
					{Column: "rejections", Variable: "Casos descartados"},
					{Column: "deaths", Variable: "Muertes"},
				},
				LookbackDays: 7,
			},
			Filter:  filter.WeekOverWeek(),
			Render:  smoothedOverlay("Casos nuevos diarios (promedio 7 días)"),
			Formats: bothFormats,
		},
	}
}

// deltaBars renders one vintage's revisions as bars per event date.
// Zeros mean "no revision" and are dropped so the chart shows only
// what actually changed.
func deltaBars(title string) chart.RenderFunc {
	return func(f domain.Frame, _ time.Time) (*chart.Document, error) {
		shaped := derive.DropMissing(derive.TreatZeroAsMissing(f))
		return &chart.Document{
			Title: title,
			Mark:  "bar",
			Encoding: chart.Encoding{
				X:     &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha del evento"},
				Y:     &chart.Channel{Field: "value", Type: "quantitative", Title: "Revisión"},
				Color: &chart.Channel{Field: "variable", Type: "nominal"},
			},
			Data: chart.Data{Values: frameRows(shaped)},
		}, nil
	}
}

// deltaHeatmap renders a window of vintages as a bulletin × event date
// grid, one facet per variable.
func deltaHeatmap(title string) chart.RenderFunc {
	return func(f domain.Frame, _ time.Time) (*chart.Document, error) {
		shaped := derive.DropMissing(derive.TreatZeroAsMissing(f))
		return &chart.Document{
			Title: title,
			Mark:  "rect",
			Encoding: chart.Encoding{
				X:     &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha del evento"},
				Y:     &chart.Channel{Field: "bulletin_date", Type: "ordinal", Title: "Boletín"},
				Color: &chart.Channel{Field: "value", Type: "quantitative", Title: "Revisión"},
				Row:   &chart.Channel{Field: "variable", Type: "nominal"},
			},
			Data: chart.Data{Values: frameRows(shaped)},
		}, nil
	}
}

// weekdayBiasRender sums positive additions into a (event weekday,
// bulletin weekday) grid. Reporting pipelines that batch by weekday
// show up as hot rows or columns.
func weekdayBiasRender(f domain.Frame, _ time.Time) (*chart.Document, error) {
	type cell struct {
		datumDow, bulletinDow time.Weekday
		variable              string
	}
	sums := make(map[cell]float64)
	for _, o := range f {
		if o.Value == nil || *o.Value <= 0 {
			continue
		}
		sums[cell{o.DatumDate.Weekday(), o.BulletinDate.Weekday(), o.Variable}] += *o.Value
	}

	rows := make([]chart.Row, 0, len(sums))
	for c, v := range sums {
		rows = append(rows, chart.Row{
			"datum_weekday":    int(c.datumDow),
			"bulletin_weekday": int(c.bulletinDow),
			"variable":         c.variable,
			"value":            v,
		})
	}
	sortRows(rows, "variable", "bulletin_weekday", "datum_weekday")

	return &chart.Document{
		Title: "Sesgo por día de semana",
		Mark:  "rect",
		Encoding: chart.Encoding{
			X:     &chart.Channel{Field: "datum_weekday", Type: "ordinal", Title: "Día del evento"},
			Y:     &chart.Channel{Field: "bulletin_weekday", Type: "ordinal", Title: "Día del boletín"},
			Color: &chart.Channel{Field: "value", Type: "quantitative", Title: "Casos añadidos"},
			Row:   &chart.Channel{Field: "variable", Type: "nominal"},
		},
		Data: chart.Data{Values: rows},
	}, nil
}

// smoothedOverlay draws 7-day trailing means for the current vintage
// against the vintage from a week earlier.
func smoothedOverlay(title string) chart.RenderFunc {
	return func(f domain.Frame, _ time.Time) (*chart.Document, error) {
		rows := make([]chart.Row, 0, len(f))
		for _, w := range derive.Rolling(f, 7) {
			rows = append(rows, chart.Row{
				"bulletin_date": chart.ISO(w.BulletinDate),
				"datum_date":    chart.ISO(w.DatumDate),
				"variable":      w.Variable,
				"value":         w.Mean,
			})
		}
		return &chart.Document{
			Title: title,
			Mark:  "line",
			Encoding: chart.Encoding{
				X:          &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha"},
				Y:          &chart.Channel{Field: "value", Type: "quantitative"},
				Color:      &chart.Channel{Field: "variable", Type: "nominal"},
				StrokeDash: &chart.Channel{Field: "bulletin_date", Type: "ordinal", Title: "Datos hasta"},
			},
			Data: chart.Data{Values: rows},
		}, nil
	}
}
