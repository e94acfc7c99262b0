package catalog

import (
	"time"

	"covid-charts/internal/chart"
	"covid-charts/internal/derive"
	"covid-charts/internal/domain"
	"covid-charts/internal/filter"
	"covid-charts/internal/warehouse"
)

func testCharts(p Params) []chart.Spec {
	return []chart.Spec{
		{
			Name: "NaivePositiveRate",
			Query: warehouse.QuerySpec{
				Table:          "naive_positive_rates",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "collected_date",
				GroupColumn:    "test_type",
				Values: []warehouse.ValueColumn{
					{Column: "tests", Variable: "Pruebas"},
					{Column: "positives", Variable: "Positivas"},
				},
				LookbackDays: 7,
			},
			// Test data lags the bulletins, so the requested date is
			// clamped to the latest vintage actually present.
			Filter:  filter.ClampedWeekOverWeek(),
			Render:  positiveRateRender,
			Formats: bothFormats,
		},
		{
			Name: "ConfirmationsVsRejections",
			Query: warehouse.QuerySpec{
				Table:          "confirmed_vs_rejected",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "collected_date",
				Values: []warehouse.ValueColumn{
					{Column: "novels", Variable: "Casos nuevos"},
					{Column: "rejections", Variable: "Casos descartados"},
				},
				LookbackDays: 7,
			},
			Filter:  filter.ClampedWeekOverWeek(),
			Render:  rejectionRateRender,
			Formats: bothFormats,
		},
		{
			Name: "NewTestSpecimens",
			Query: warehouse.QuerySpec{
				Table:          "new_daily_tests",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "date",
				GroupColumn:    "test_type",
				Values: []warehouse.ValueColumn{
					{Column: "tests", Variable: "Pruebas"},
				},
				Where:        &warehouse.Discriminator{Column: "date_type", Equals: "Fecha de muestra"},
				LookbackDays: 7,
			},
			Filter:  filter.ClampedWeekOverWeek(),
			Render:  testSpecimensRender(p.Population),
			Formats: bothFormats,
		},
		{
			Name: "MolecularCurrentDeltas",
			Query: warehouse.QuerySpec{
				Table:          "bioportal_collected_agg",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "collected_date",
				Values: []warehouse.ValueColumn{
					{Column: "delta_tests", Variable: "Pruebas"},
					{Column: "delta_positive_tests", Variable: "Pruebas positivas"},
				},
				Where: &warehouse.Discriminator{Column: "test_type", Equals: "Molecular"},
			},
			Filter:  filter.Exact(),
			Render:  deltaBars("Revisiones de pruebas moleculares"),
			Formats: bothFormats,
		},
		{
			Name: "MolecularDailyDeltas",
			Query: warehouse.QuerySpec{
				Table:          "bioportal_collected_agg",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "collected_date",
				Values: []warehouse.ValueColumn{
					{Column: "delta_tests", Variable: "Pruebas"},
					{Column: "delta_positive_tests", Variable: "Pruebas positivas"},
				},
				Where:        &warehouse.Discriminator{Column: "test_type", Equals: "Molecular"},
				LookbackDays: 14,
			},
			Filter:  filter.Windowed(14),
			Render:  deltaHeatmap("Revisiones de pruebas moleculares por boletín"),
			Formats: bothFormats,
		},
		{
			Name: "CaseFatalityRate",
			Query: warehouse.QuerySpec{
				Schema:         "covid_pr_etl",
				Table:          "lagged_cfr",
				BulletinColumn: "bulletin_date",
				DatumColumn:    "collected_date",
				Values: []warehouse.ValueColumn{
					{Column: "lagged_cfr", Variable: "Letalidad rezagada"},
				},
				LookbackDays: 7,
			},
			Filter:  filter.WeekOverWeek(),
			Render:  overlayChart("Letalidad (muertes ÷ casos rezagados)"),
			Formats: bothFormats,
		},
	}
}

// positiveRateRender computes the naive positivity rate per test type:
// 7-day sums of positives over 7-day sums of tests, one overlaid
// series per vintage kept by the filter. Days without tests yield a
// null rate, never a division error.
func positiveRateRender(f domain.Frame, _ time.Time) (*chart.Document, error) {
	rows := rateRows(f, "Positivas", "Pruebas")
	return &chart.Document{
		Title: "Positividad ingenua por tipo de prueba",
		Mark:  "line",
		Encoding: chart.Encoding{
			X:          &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha de muestra"},
			Y:          &chart.Channel{Field: "value", Type: "quantitative", Title: "Positividad"},
			Color:      &chart.Channel{Field: "group", Type: "nominal", Title: "Tipo de prueba"},
			StrokeDash: &chart.Channel{Field: "bulletin_date", Type: "ordinal", Title: "Datos hasta"},
		},
		Data: chart.Data{Values: rows},
	}, nil
}

// rejectionRateRender charts what share of conclusive molecular
// results rejected a suspected case, 7-day smoothed.
func rejectionRateRender(f domain.Frame, _ time.Time) (*chart.Document, error) {
	sums := rollingSums(f, 7)
	var rows []chart.Row
	for k, novel := range sums {
		if k.variable != "Casos nuevos" {
			continue
		}
		rejected := sums[seriesKey{k.bulletin, k.datum, k.group, "Casos descartados"}]
		total := addOpt(novel, rejected)
		rows = append(rows, chart.Row{
			"bulletin_date": chart.ISO(k.bulletin),
			"datum_date":    chart.ISO(k.datum),
			"value":         derive.Rate(rejected, total),
		})
	}
	sortRows(rows, "bulletin_date", "datum_date")
	return &chart.Document{
		Title: "Casos descartados entre resultados concluyentes",
		Mark:  "line",
		Encoding: chart.Encoding{
			X:          &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha de muestra"},
			Y:          &chart.Channel{Field: "value", Type: "quantitative", Title: "Proporción descartada"},
			StrokeDash: &chart.Channel{Field: "bulletin_date", Type: "ordinal", Title: "Datos hasta"},
		},
		Data: chart.Data{Values: rows},
	}, nil
}

// testSpecimensRender charts 7-day mean daily specimens per test type,
// in absolute terms and per thousand residents.
func testSpecimensRender(population float64) chart.RenderFunc {
	return func(f domain.Frame, _ time.Time) (*chart.Document, error) {
		var rows []chart.Row
		for _, w := range derive.Rolling(f, 7) {
			rows = append(rows, chart.Row{
				"bulletin_date": chart.ISO(w.BulletinDate),
				"datum_date":    chart.ISO(w.DatumDate),
				"group":         w.Group,
				"value":         w.Mean,
				"per_thousand":  derive.PerCapita(w.Mean, population, 1000),
			})
		}
		return &chart.Document{
			Title: "Pruebas diarias (promedio 7 días)",
			Mark:  "line",
			Encoding: chart.Encoding{
				X:          &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha de muestra"},
				Y:          &chart.Channel{Field: "value", Type: "quantitative", Title: "Pruebas diarias"},
				Color:      &chart.Channel{Field: "group", Type: "nominal", Title: "Tipo de prueba"},
				StrokeDash: &chart.Channel{Field: "bulletin_date", Type: "ordinal", Title: "Datos hasta"},
			},
			Data: chart.Data{Values: rows},
		}, nil
	}
}

type seriesKey struct {
	bulletin, datum time.Time
	group, variable string
}

// rollingSums indexes 7-day trailing sums by their full series key, so
// rate renders can pair numerator and denominator variables.
func rollingSums(f domain.Frame, window int) map[seriesKey]*float64 {
	sums := make(map[seriesKey]*float64)
	for _, w := range derive.Rolling(f, window) {
		sums[seriesKey{w.BulletinDate, w.DatumDate, w.Group, w.Variable}] = w.Sum
	}
	return sums
}

// rateRows divides windowed sums of the numerator variable by those of
// the denominator variable.
func rateRows(f domain.Frame, numVar, denVar string) []chart.Row {
	sums := rollingSums(f, 7)
	var rows []chart.Row
	for k, den := range sums {
		if k.variable != denVar {
			continue
		}
		num := sums[seriesKey{k.bulletin, k.datum, k.group, numVar}]
		row := chart.Row{
			"bulletin_date": chart.ISO(k.bulletin),
			"datum_date":    chart.ISO(k.datum),
			"value":         derive.Rate(num, den),
		}
		if k.group != "" {
			row["group"] = k.group
		}
		rows = append(rows, row)
	}
	sortRows(rows, "bulletin_date", "group", "datum_date")
	return rows
}

func addOpt(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		s := *a + *b
		return &s
	}
}
