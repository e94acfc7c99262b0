package catalog

import (
	"time"

	"covid-charts/internal/chart"
	"covid-charts/internal/derive"
	"covid-charts/internal/domain"
	"covid-charts/internal/filter"
	"covid-charts/internal/warehouse"
)

func municipal(p Params) []chart.Spec {
	return []chart.Spec{
		{
			Name: "Municipal",
			Query: warehouse.QuerySpec{
				Table:          "municipal_agg",
				BulletinColumn: "bulletin_date",
				GroupColumn:    "municipality",
				Values: []warehouse.ValueColumn{
					{Column: "new_confirmed_cases", Variable: "Casos confirmados nuevos"},
				},
				LookbackDays: 35,
			},
			Filter:  filter.WindowedInclusive(35),
			Render:  municipalRender,
			Formats: bothFormats,
		},
		{
			Name: "MunicipalMap",
			Query: warehouse.QuerySpec{
				Schema:         "products",
				Table:          "municipal_map",
				BulletinColumn: "bulletin_date",
				GroupColumn:    "municipality",
				Values: []warehouse.ValueColumn{
					{Column: "new_confirmed_cases", Variable: "Casos nuevos"},
					{Column: "new_7day_confirmed_cases", Variable: "Casos nuevos (7 días)"},
					{Column: "pct_increase_1day", Variable: "Cambio diario"},
					{Column: "pct_increase_7day", Variable: "Cambio (7 días)"},
				},
			},
			Filter: filter.Exact(),
			Render: func(f domain.Frame, _ time.Time) (*chart.Document, error) {
				return &chart.Document{
					Title: "Casos nuevos por municipio",
					Mark:  "geoshape",
					Encoding: chart.Encoding{
						Color: &chart.Channel{Field: "value", Type: "quantitative"},
						Row:   &chart.Channel{Field: "variable", Type: "nominal"},
					},
					Data: chart.Data{Values: frameRows(f)},
				}, nil
			},
			Formats: bothFormats,
		},
		{
			Name: "MunicipalSPLOM",
			Query: warehouse.QuerySpec{
				Schema:         "covid_pr_etl",
				Table:          "municipal_splom",
				BulletinColumn: "bulletin_date",
				GroupColumn:    "municipio",
				Values: []warehouse.ValueColumn{
					{Column: "population", Variable: "Población"},
					{Column: "households_median", Variable: "Ingreso"},
					{Column: "households_lt_10k_pct", Variable: "<$10k"},
					{Column: "households_gte_200k_pct", Variable: "≥$200k"},
					{Column: "white_alone_pct", Variable: "% blanco"},
					{Column: "black_alone_pct", Variable: "% negro"},
					{Column: "total_dosis1_pct", Variable: "1 dosis"},
					{Column: "total_dosis2_pct", Variable: "2 dosis"},
					{Column: "cumulative_cases_1k", Variable: "Casos/1k"},
					{Column: "cumulative_specimens_1k", Variable: "Pruebas/1k"},
					{Column: "cumulative_antigens_1k", Variable: "Antígenos/1k"},
					{Column: "cumulative_antigen_positivity", Variable: "% +antígenos"},
					{Column: "cumulative_molecular_1k", Variable: "Moleculares/1k"},
					{Column: "cumulative_molecular_positivity", Variable: "% +molecular"},
				},
			},
			Filter:  filter.Exact(),
			Render:  splomRender,
			Formats: bothFormats,
		},
		{
			Name: "MunicipalTestingScatter",
			Query: warehouse.QuerySpec{
				Schema:         "covid_pr_etl",
				Table:          "municipal_testing_scatterplot",
				BulletinColumn: "bulletin_date",
				GroupColumn:    "municipality",
				Values: []warehouse.ValueColumn{
					{Column: "population", Variable: "Población"},
					{Column: "daily_specimens", Variable: "Especímenes diarios"},
					{Column: "daily_antigens", Variable: "Antígenos diarios"},
					{Column: "daily_molecular", Variable: "Moleculares diarias"},
				},
			},
			Filter:  filter.Exact(),
			Render:  municipalTestingRender,
			Formats: bothFormats,
		},
	}
}

// splomRender pivots the vintage back to one wide row per
// municipality, each demographic and testing indicator in its own
// column. The scatter matrix pairs the columns; it needs them side by
// side, not melted.
func splomRender(f domain.Frame, _ time.Time) (*chart.Document, error) {
	wide := make(map[string]chart.Row)
	for _, o := range f {
		row := wide[o.Group]
		if row == nil {
			row = chart.Row{
				"bulletin_date": chart.ISO(o.BulletinDate),
				"municipio":     o.Group,
			}
			wide[o.Group] = row
		}
		row[o.Variable] = o.Value
	}

	rows := make([]chart.Row, 0, len(wide))
	for _, row := range wide {
		rows = append(rows, row)
	}
	sortRows(rows, "municipio")

	return &chart.Document{
		Title: "Matriz de dispersión municipal",
		Mark:  "point",
		Encoding: chart.Encoding{
			Color: &chart.Channel{Field: "municipio", Type: "nominal", Title: "Municipio"},
		},
		Data: chart.Data{Values: rows},
	}, nil
}

// municipalTestingRender scatters each municipality's smoothed daily
// antigen volume against its molecular volume, both per thousand
// residents. A closing Puerto Rico row carries the island-wide means
// the reference rules are drawn at.
func municipalTestingRender(f domain.Frame, _ time.Time) (*chart.Document, error) {
	type agg struct {
		population, specimens, antigens, molecular float64
	}
	byMunicipality := make(map[string]*agg)
	for _, o := range f {
		if o.Value == nil {
			continue
		}
		a := byMunicipality[o.Group]
		if a == nil {
			a = &agg{}
			byMunicipality[o.Group] = a
		}
		switch o.Variable {
		case "Población":
			a.population = *o.Value
		case "Especímenes diarios":
			a.specimens = *o.Value
		case "Antígenos diarios":
			a.antigens = *o.Value
		case "Moleculares diarias":
			a.molecular = *o.Value
		}
	}

	var island agg
	var rows []chart.Row
	for m, a := range byMunicipality {
		island.population += a.population
		island.specimens += a.specimens
		island.antigens += a.antigens
		island.molecular += a.molecular
		rows = append(rows, chart.Row{
			"group":            m,
			"population":       a.population,
			"specimens_per_1k": derive.PerCapita(&a.specimens, a.population, 1000),
			"antigens_per_1k":  derive.PerCapita(&a.antigens, a.population, 1000),
			"molecular_per_1k": derive.PerCapita(&a.molecular, a.population, 1000),
		})
	}
	sortRows(rows, "group")
	rows = append(rows, chart.Row{
		"group":            "Puerto Rico",
		"population":       island.population,
		"specimens_per_1k": derive.PerCapita(&island.specimens, island.population, 1000),
		"antigens_per_1k":  derive.PerCapita(&island.antigens, island.population, 1000),
		"molecular_per_1k": derive.PerCapita(&island.molecular, island.population, 1000),
	})

	return &chart.Document{
		Title: "Pruebas diarias por municipio",
		Mark:  "point",
		Encoding: chart.Encoding{
			X:     &chart.Channel{Field: "antigens_per_1k", Type: "quantitative", Title: "Antígenos por millar"},
			Y:     &chart.Channel{Field: "molecular_per_1k", Type: "quantitative", Title: "Moleculares por millar"},
			Color: &chart.Channel{Field: "group", Type: "nominal", Title: "Municipio"},
		},
		Data: chart.Data{Values: rows},
	}, nil
}

// municipalRender draws a municipality × date grid of 7-day case
// sums. A municipality absent from a bulletin genuinely reported zero
// new cases, so the window is zero-imputed before summing; the run of
// imputed days would otherwise shorten every municipality's window
// differently.
func municipalRender(f domain.Frame, bulletinDate time.Time) (*chart.Document, error) {
	from := bulletinDate.AddDate(0, 0, -35)
	filled := derive.ImputeZero(f, from, bulletinDate).WithBulletinDate(bulletinDate)

	var rows []chart.Row
	for _, w := range derive.Rolling(filled, 7) {
		rows = append(rows, chart.Row{
			"datum_date": chart.ISO(w.DatumDate),
			"group":      w.Group,
			"value":      w.Sum,
		})
	}
	return &chart.Document{
		Title: "Casos nuevos por municipio (suma 7 días)",
		Mark:  "rect",
		Encoding: chart.Encoding{
			X:     &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Boletín"},
			Y:     &chart.Channel{Field: "group", Type: "nominal", Title: "Municipio"},
			Color: &chart.Channel{Field: "value", Type: "quantitative", Title: "Casos (7 días)"},
		},
		Data: chart.Data{Values: rows},
	}, nil
}
