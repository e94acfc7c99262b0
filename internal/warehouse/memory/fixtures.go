package memory

import (
	"time"

	"covid-charts/internal/domain"
)

// Fixtures builds a warehouse populated with a small synthetic
// epidemic: `days` consecutive bulletins ending at `last`, each
// revising the event dates of roughly the previous two weeks. The
// numbers are deliberately simple (each vintage adds cases with a
// fixed reporting delay profile) so derived values in demos and tests
// are easy to verify by hand.
func Fixtures(last time.Time, days int) *Warehouse {
	w := New()

	bulletins := domain.Dates(last.AddDate(0, 0, -(days-1)), last)
	first := bulletins[0].AddDate(0, 0, -14)

	var bitemporal, agg, cumulative, deltas []Row
	var aggregates []Row

	prior := make(map[time.Time]float64)
	for _, b := range bulletins {
		current := make(map[time.Time]float64)
		var announced float64
		for _, d := range domain.Dates(first, b) {
			// Cases for event date d accrue over the following week:
			// 10 on the day, then 2 per day of delay up to 5 days.
			age := domain.DaysBetween(d, b)
			v := 10.0
			if age > 5 {
				v += 10
			} else {
				v += 2 * float64(age)
			}
			current[d] = v
			announced += v

			delta := v - prior[d]
			row := func(vals map[string]*float64) Row {
				return Row{
					Dates:  map[string]time.Time{"bulletin_date": b, "datum_date": d},
					Values: vals,
				}
			}
			bitemporal = append(bitemporal, row(map[string]*float64{
				"confirmed_cases": domain.Float(v),
				"probable_cases":  domain.Float(v / 2),
				"deaths":          domain.Float(v / 10),
			}))
			agg = append(agg, row(map[string]*float64{
				"delta_confirmed_cases": domain.Float(delta),
				"delta_probable_cases":  domain.Float(delta / 2),
				"delta_deaths":          domain.Float(delta / 10),
			}))
			cumulative = append(cumulative, row(map[string]*float64{
				"confirmed_cases":  domain.Float(v),
				"probable_cases":   domain.Float(v / 2),
				"positive_results": domain.Float(v * 1.2),
				"announced_cases":  domain.Float(v),
				"deaths":           domain.Float(v / 10),
				"announced_deaths": domain.Float(v / 10),
			}))
			deltas = append(deltas, row(map[string]*float64{
				"delta_confirmed_cases": domain.Float(delta),
				"delta_probable_cases":  domain.Float(delta / 2),
				"delta_deaths":          domain.Float(delta / 10),
			}))
		}
		prior = current

		aggregates = append(aggregates, Row{
			Dates: map[string]time.Time{"bulletin_date": b},
			Values: map[string]*float64{
				"cumulative_confirmed_cases":          domain.Float(announced),
				"computed_cumulative_confirmed_cases": domain.Float(announced),
				"cumulative_probable_cases":           domain.Float(announced / 2),
				"computed_cumulative_probable_cases":  domain.Float(announced / 2),
				"cumulative_deaths":                   domain.Float(announced / 10),
				"computed_cumulative_deaths":          domain.Float(announced / 10),
			},
		})
	}

	bitemporalCols := []string{"bulletin_date", "datum_date", "confirmed_cases", "probable_cases", "deaths"}
	deltaCols := []string{"bulletin_date", "datum_date", "delta_confirmed_cases", "delta_probable_cases", "delta_deaths"}

	w.AddTable(Table{Name: "bitemporal", Columns: bitemporalCols, Rows: bitemporal})
	w.AddTable(Table{Name: "bitemporal_agg", Columns: deltaCols, Rows: agg})
	w.AddTable(Table{
		Schema: "products", Name: "cumulative_data",
		Columns: []string{"bulletin_date", "datum_date", "confirmed_cases", "probable_cases",
			"positive_results", "announced_cases", "deaths", "announced_deaths"},
		Rows: cumulative,
	})
	w.AddTable(Table{Schema: "products", Name: "daily_deltas", Columns: deltaCols, Rows: deltas})
	w.AddTable(Table{
		Schema: "quality", Name: "mismatched_announcement_aggregates",
		Columns: []string{"bulletin_date", "cumulative_confirmed_cases", "computed_cumulative_confirmed_cases",
			"cumulative_probable_cases", "computed_cumulative_probable_cases",
			"cumulative_deaths", "computed_cumulative_deaths"},
		Rows: aggregates,
	})

	w.AddTable(municipalFixture(bulletins))
	return w
}

func municipalFixture(bulletins []time.Time) Table {
	municipalities := []string{"Adjuntas", "Bayamón", "Caguas", "San Juan"}
	var rows []Row
	for i, b := range bulletins {
		for j, m := range municipalities {
			// Skip some days entirely so zero-imputation has work to do.
			if (i+j)%3 == 0 {
				continue
			}
			rows = append(rows, Row{
				Dates:   map[string]time.Time{"bulletin_date": b},
				Strings: map[string]string{"municipality": m},
				Values:  map[string]*float64{"new_confirmed_cases": domain.Float(float64(1 + (i+j)%4))},
			})
		}
	}
	return Table{
		Name:    "municipal_agg",
		Columns: []string{"bulletin_date", "municipality", "new_confirmed_cases"},
		Rows:    rows,
	}
}
