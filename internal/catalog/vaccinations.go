package catalog

import (
	"time"

	"covid-charts/internal/chart"
	"covid-charts/internal/derive"
	"covid-charts/internal/domain"
	"covid-charts/internal/filter"
	"covid-charts/internal/warehouse"
)

func vaccinations(p Params) []chart.Spec {
	return []chart.Spec{
		{
			Name: "VaccinationMap",
			Query: warehouse.QuerySpec{
				Schema:         "covid_pr_etl",
				Table:          "municipal_vaccinations",
				BulletinColumn: "bulletin_date",
				GroupColumn:    "municipio",
				Values: []warehouse.ValueColumn{
					{Column: "population", Variable: "Población"},
					{Column: "dosis1", Variable: "Primeras dosis"},
					{Column: "dosis2", Variable: "Segundas dosis"},
				},
				LookbackDays: 7,
			},
			Filter:  filter.Windowed(7),
			Render:  vaccinationMapRender,
			Formats: bothFormats,
		},
		{
			Name: "MunicipalVaccination",
			Query: warehouse.QuerySpec{
				Schema:         "covid_pr_etl",
				Table:          "municipal_vaccinations",
				BulletinColumn: "bulletin_date",
				GroupColumn:    "municipio",
				Values: []warehouse.ValueColumn{
					{Column: "population", Variable: "Población"},
					{Column: "total_dosis1", Variable: "Primeras dosis"},
					{Column: "total_dosis2", Variable: "Segundas dosis"},
				},
			},
			Filter:  filter.UpTo(),
			Render:  vaccinationCoverageRender,
			Formats: bothFormats,
		},
	}
}

// vaccinationMapRender sums the week's doses per municipality and
// scales them per thousand residents.
func vaccinationMapRender(f domain.Frame, _ time.Time) (*chart.Document, error) {
	type agg struct {
		dosis1, dosis2, population float64
	}
	byMunicipio := make(map[string]*agg)
	for _, o := range f {
		if o.Value == nil {
			continue
		}
		a := byMunicipio[o.Group]
		if a == nil {
			a = &agg{}
			byMunicipio[o.Group] = a
		}
		switch o.Variable {
		case "Primeras dosis":
			a.dosis1 += *o.Value
		case "Segundas dosis":
			a.dosis2 += *o.Value
		case "Población":
			a.population = *o.Value
		}
	}

	var rows []chart.Row
	for municipio, a := range byMunicipio {
		rows = append(rows, chart.Row{
			"group":            municipio,
			"dosis1_per_1k":    derive.PerCapita(&a.dosis1, a.population, 1000),
			"dosis2_per_1k":    derive.PerCapita(&a.dosis2, a.population, 1000),
			"population":       a.population,
			"dosis1_this_week": a.dosis1,
			"dosis2_this_week": a.dosis2,
		})
	}
	sortRows(rows, "group")

	return &chart.Document{
		Title: "Dosis administradas esta semana por municipio",
		Mark:  "geoshape",
		Encoding: chart.Encoding{
			Color: &chart.Channel{Field: "dosis1_per_1k", Type: "quantitative", Title: "Dosis por mil"},
		},
		Data: chart.Data{Values: rows},
	}, nil
}

// vaccinationCoverageRender charts the share of each municipality's
// population covered by one and two doses over time.
func vaccinationCoverageRender(f domain.Frame, _ time.Time) (*chart.Document, error) {
	population := make(map[string]*float64)
	for _, o := range f.Select("Población") {
		population[o.Group] = o.Value
	}

	var rows []chart.Row
	for _, variable := range []string{"Primeras dosis", "Segundas dosis"} {
		for _, o := range f.Select(variable) {
			rows = append(rows, chart.Row{
				"datum_date": chart.ISO(o.DatumDate),
				"group":      o.Group,
				"variable":   variable,
				"value":      derive.Rate(o.Value, population[o.Group]),
			})
		}
	}
	sortRows(rows, "variable", "group", "datum_date")

	return &chart.Document{
		Title: "Cobertura de vacunación por municipio",
		Mark:  "line",
		Encoding: chart.Encoding{
			X:          &chart.Channel{Field: "datum_date", Type: "temporal", Title: "Fecha"},
			Y:          &chart.Channel{Field: "value", Type: "quantitative", Title: "Proporción de la población"},
			Color:      &chart.Channel{Field: "group", Type: "nominal", Title: "Municipio"},
			StrokeDash: &chart.Channel{Field: "variable", Type: "nominal"},
		},
		Data: chart.Data{Values: rows},
	}, nil
}
