package catalog

import (
	"time"

	"covid-charts/internal/chart"
	"covid-charts/internal/derive"
	"covid-charts/internal/domain"
	"covid-charts/internal/filter"
	"covid-charts/internal/warehouse"
)

func lateness(p Params) []chart.Spec {
	bulletinAdditions := warehouse.QuerySpec{
		Table:          "bitemporal_agg",
		BulletinColumn: "bulletin_date",
		DatumColumn:    "datum_date",
		Values: []warehouse.ValueColumn{
			{Column: "delta_confirmed_cases", Variable: "Casos confirmados"},
			{Column: "delta_probable_cases", Variable: "Casos probables"},
			{Column: "delta_deaths", Variable: "Muertes"},
		},
	}

	molecularAdditions := warehouse.QuerySpec{
		Table:          "bioportal_collected_agg",
		BulletinColumn: "bulletin_date",
		DatumColumn:    "collected_date",
		Values: []warehouse.ValueColumn{
			{Column: "delta_tests", Variable: "Pruebas"},
			{Column: "delta_positive_tests", Variable: "Pruebas positivas"},
		},
		Where: &warehouse.Discriminator{Column: "test_type", Equals: "Molecular"},
	}

	encounterAdditions := warehouse.QuerySpec{
		Table:          "bioportal_collected_agg",
		BulletinColumn: "bulletin_date",
		DatumColumn:    "collected_date",
		GroupColumn:    "test_type",
		Values: []warehouse.ValueColumn{
			{Column: "delta_tests", Variable: "Pruebas"},
			{Column: "delta_positive_tests", Variable: "Pruebas positivas"},
		},
		LookbackDays: 49,
	}

	daily := bulletinAdditions
	daily.LookbackDays = 8
	smoothed := bulletinAdditions
	smoothed.LookbackDays = 15
	molDaily := molecularAdditions
	molDaily.LookbackDays = 8
	molSmoothed := molecularAdditions
	molSmoothed.LookbackDays = 15
	molTiers := molecularAdditions
	molTiers.LookbackDays = 15

	return []chart.Spec{
		{
			Name:    "LatenessDaily",
			Query:   daily,
			Filter:  filter.Windowed(8),
			Render:  latenessDailyRender("Rezago estimado por boletín"),
			Formats: bothFormats,
		},
		{
			Name:    "Lateness7Day",
			Query:   smoothed,
			Filter:  filter.Windowed(15),
			Render:  latenessSmoothedRender("Rezago estimado (7 días)"),
			Formats: bothFormats,
		},
		{
			Name:    "MolecularLatenessDaily",
			Query:   molDaily,
			Filter:  filter.Windowed(8),
			Render:  latenessDailyRender("Rezago de pruebas moleculares"),
			Formats: bothFormats,
		},
		{
			Name:    "MolecularLateness7Day",
			Query:   molSmoothed,
			Filter:  filter.Windowed(15),
			Render:  latenessSmoothedRender("Rezago de pruebas moleculares (7 días)"),
			Formats: bothFormats,
		},
		{
			Name:    "MolecularLatenessTiers",
			Query:   molTiers,
			Filter:  filter.Windowed(15),
			Render:  latenessTiersRender,
			Formats: bothFormats,
		},
		{
			Name:    "EncounterLag",
			Query:   encounterAdditions,
			Filter:  filter.Windowed(49),
			Render:  encounterLagRender,
			Formats: bothFormats,
		},
	}
}

// latenessDailyRender estimates the mean reporting delay of each
// vintage in the filtered window.
func latenessDailyRender(title string) chart.RenderFunc {
	return func(f domain.Frame, _ time.Time) (*chart.Document, error) {
		var rows []chart.Row
		for _, bd := range f.BulletinDates() {
			for _, v := range f.Variables() {
				rows = append(rows, chart.Row{
					"bulletin_date": chart.ISO(bd),
					"variable":      v,
					"value":         derive.Lateness(f, v, bd),
				})
			}
		}
		return latenessDocument(title, rows), nil
	}
}

// latenessSmoothedRender pools each trailing week of vintages for a
// steadier delay estimate. The window's older half exists only to feed
// the smoothing; charted points start eight bulletins back.
func latenessSmoothedRender(title string) chart.RenderFunc {
	return func(f domain.Frame, bulletinDate time.Time) (*chart.Document, error) {
		cutoff := bulletinDate.AddDate(0, 0, -8)
		var rows []chart.Row
		for _, bd := range f.BulletinDates() {
			if !bd.After(cutoff) {
				continue
			}
			for _, v := range f.Variables() {
				rows = append(rows, chart.Row{
					"bulletin_date": chart.ISO(bd),
					"variable":      v,
					"value":         derive.SmoothedLateness(f, v, bd, 7),
				})
			}
		}
		return latenessDocument(title, rows), nil
	}
}

func latenessDocument(title string, rows []chart.Row) *chart.Document {
	return &chart.Document{
		Title: title,
		Mark:  "bar",
		Encoding: chart.Encoding{
			X:      &chart.Channel{Field: "bulletin_date", Type: "ordinal", Title: "Boletín"},
			Y:      &chart.Channel{Field: "value", Type: "quantitative", Title: "Rezago (días)"},
			Column: &chart.Channel{Field: "variable", Type: "nominal"},
		},
		Data: chart.Data{Values: rows},
	}
}

// encounterLagRender charts what share of each vintage's newly added
// test volume arrived at each reporting delay, per test type, pooled
// over the trailing week of vintages. The filtered window keeps an
// extra week of older vintages only to feed the pooling; charted
// bulletins start six weeks back.
func encounterLagRender(f domain.Frame, bulletinDate time.Time) (*chart.Document, error) {
	cutoff := bulletinDate.AddDate(0, 0, -42)
	var rows []chart.Row
	for _, g := range f.Groups() {
		var sub domain.Frame
		for _, o := range f {
			if o.Group == g {
				sub = append(sub, o)
			}
		}
		for _, v := range sub.Variables() {
			for _, bd := range sub.BulletinDates() {
				if !bd.After(cutoff) {
					continue
				}
				tiers := pooledTiers(sub, v, bd, 7)
				var total float64
				for _, tm := range tiers {
					total += tm.Mass
				}
				if total == 0 {
					continue
				}
				for _, tm := range tiers {
					rows = append(rows, chart.Row{
						"bulletin_date": chart.ISO(bd),
						"group":         g,
						"variable":      v,
						"tier":          tm.Tier,
						"tier_order":    tm.Order,
						"value":         tm.Mass / total,
					})
				}
			}
		}
	}
	return &chart.Document{
		Title: "Rezago entre muestra y Bioportal",
		Mark:  "area",
		Encoding: chart.Encoding{
			X:      &chart.Channel{Field: "bulletin_date", Type: "temporal", Title: "Fecha de datos"},
			Y:      &chart.Channel{Field: "value", Type: "quantitative", Title: "Proporción añadida"},
			Color:  &chart.Channel{Field: "tier", Type: "ordinal", Title: "Rezago (días)"},
			Column: &chart.Channel{Field: "group", Type: "nominal", Title: "Tipo de prueba"},
			Row:    &chart.Channel{Field: "variable", Type: "nominal"},
		},
		Data: chart.Data{Values: rows},
	}, nil
}

// pooledTiers sums the delay-tier masses of the trailing `window`
// vintages ending at bulletinDate, tier by tier.
func pooledTiers(f domain.Frame, variable string, bulletinDate time.Time, window int) []derive.TierMass {
	var pooled []derive.TierMass
	for i := 0; i < window; i++ {
		tiers := derive.LatenessTiers(f, variable, bulletinDate.AddDate(0, 0, -i), derive.DefaultTiers)
		if pooled == nil {
			pooled = tiers
			continue
		}
		for j := range tiers {
			pooled[j].Mass += tiers[j].Mass
		}
	}
	return pooled
}

// latenessTiersRender buckets each vintage's newly reported tests by
// delay tier, as a stacked bar per bulletin.
func latenessTiersRender(f domain.Frame, _ time.Time) (*chart.Document, error) {
	var rows []chart.Row
	for _, bd := range f.BulletinDates() {
		for _, tm := range derive.LatenessTiers(f, "Pruebas", bd, derive.DefaultTiers) {
			rows = append(rows, chart.Row{
				"bulletin_date": chart.ISO(bd),
				"tier":          tm.Tier,
				"tier_order":    tm.Order,
				"value":         tm.Mass,
			})
		}
	}
	return &chart.Document{
		Title: "Pruebas moleculares por rezago",
		Mark:  "bar",
		Encoding: chart.Encoding{
			X:     &chart.Channel{Field: "bulletin_date", Type: "ordinal", Title: "Boletín"},
			Y:     &chart.Channel{Field: "value", Type: "quantitative", Title: "Pruebas"},
			Color: &chart.Channel{Field: "tier", Type: "ordinal", Title: "Rezago (días)"},
		},
		Data: chart.Data{Values: rows},
	}, nil
}
