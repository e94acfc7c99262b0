package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"covid-charts/internal/domain"
	"covid-charts/internal/warehouse"
)

func testTable() Table {
	b1 := domain.Date(2022, 1, 7)
	b2 := domain.Date(2022, 1, 8)
	return Table{
		Schema:  "products",
		Name:    "daily_deltas",
		Columns: []string{"bulletin_date", "datum_date", "test_type", "delta_cases"},
		Rows: []Row{
			{
				Dates:   map[string]time.Time{"bulletin_date": b1, "datum_date": b1.AddDate(0, 0, -1)},
				Strings: map[string]string{"test_type": "Molecular"},
				Values:  map[string]*float64{"delta_cases": domain.Float(3)},
			},
			{
				Dates:   map[string]time.Time{"bulletin_date": b2, "datum_date": b2.AddDate(0, 0, -1)},
				Strings: map[string]string{"test_type": "Antígeno"},
				Values:  map[string]*float64{"delta_cases": domain.Float(5)},
			},
			{
				Dates:   map[string]time.Time{"bulletin_date": b2, "datum_date": b2.AddDate(0, 0, -2)},
				Strings: map[string]string{"test_type": "Molecular"},
				Values:  map[string]*float64{"delta_cases": nil},
			},
		},
	}
}

func baseSpec() warehouse.QuerySpec {
	return warehouse.QuerySpec{
		Schema:         "products",
		Table:          "daily_deltas",
		BulletinColumn: "bulletin_date",
		DatumColumn:    "datum_date",
		Values:         []warehouse.ValueColumn{{Column: "delta_cases", Variable: "cases"}},
	}
}

func TestFetchMeltsRows(t *testing.T) {
	w := New()
	w.AddTable(testTable())

	b2 := domain.Date(2022, 1, 8)
	got, err := w.Fetch(context.Background(), baseSpec(), []time.Time{b2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 observations for the vintage, got %d", len(got))
	}
	for _, o := range got {
		if !o.BulletinDate.Equal(b2) {
			t.Errorf("row outside requested vintage: %v", o.BulletinDate)
		}
		if o.Variable != "cases" {
			t.Errorf("variable = %q, want renamed %q", o.Variable, "cases")
		}
	}
}

func TestFetchLookbackWidensRange(t *testing.T) {
	w := New()
	w.AddTable(testTable())

	spec := baseSpec()
	spec.LookbackDays = 1
	got, err := w.Fetch(context.Background(), spec, []time.Time{domain.Date(2022, 1, 8)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("lookback fetch returned %d rows, want 3", len(got))
	}
}

func TestFetchDiscriminator(t *testing.T) {
	w := New()
	w.AddTable(testTable())

	spec := baseSpec()
	spec.Where = &warehouse.Discriminator{Column: "test_type", Equals: "Molecular"}
	spec.LookbackDays = 1

	got, err := w.Fetch(context.Background(), spec, []time.Time{domain.Date(2022, 1, 8)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("discriminator fetch returned %d rows, want 2", len(got))
	}
}

func TestFetchMissingTable(t *testing.T) {
	w := New()
	_, err := w.Fetch(context.Background(), baseSpec(), []time.Time{domain.Date(2022, 1, 8)})
	if !errors.Is(err, warehouse.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestFetchMissingColumn(t *testing.T) {
	w := New()
	w.AddTable(testTable())

	spec := baseSpec()
	spec.Values = append(spec.Values, warehouse.ValueColumn{Column: "no_such_column", Variable: "x"})

	_, err := w.Fetch(context.Background(), spec, []time.Time{domain.Date(2022, 1, 8)})
	if !errors.Is(err, warehouse.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestFetchEmptyRangeIsNotAnError(t *testing.T) {
	w := New()
	w.AddTable(testTable())

	got, err := w.Fetch(context.Background(), baseSpec(), []time.Time{domain.Date(2023, 6, 1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty frame, got %d rows", len(got))
	}
}

func TestFetchSingleAxisTable(t *testing.T) {
	w := New()
	b := domain.Date(2022, 1, 8)
	w.AddTable(Table{
		Name:    "hospitalizations",
		Columns: []string{"date", "hospitalized"},
		Rows: []Row{{
			Dates:  map[string]time.Time{"date": b},
			Values: map[string]*float64{"hospitalized": domain.Float(12)},
		}},
	})

	spec := warehouse.QuerySpec{
		Table:       "hospitalizations",
		DatumColumn: "date",
		Values:      []warehouse.ValueColumn{{Column: "hospitalized", Variable: "beds"}},
	}
	got, err := w.Fetch(context.Background(), spec, []time.Time{b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if !got[0].BulletinDate.Equal(b) || !got[0].DatumDate.Equal(b) {
		t.Errorf("single-axis date must land on both axes: %+v", got[0])
	}
}

func TestFixturesCoverRegisteredTables(t *testing.T) {
	w := Fixtures(domain.Date(2022, 1, 15), 15)

	for _, ref := range []struct{ schema, table string }{
		{"", "bitemporal"},
		{"", "bitemporal_agg"},
		{"products", "cumulative_data"},
		{"products", "daily_deltas"},
		{"quality", "mismatched_announcement_aggregates"},
		{"", "municipal_agg"},
	} {
		if !w.Has(ref.schema, ref.table) {
			t.Errorf("fixtures missing table %s.%s", ref.schema, ref.table)
		}
	}

	got, err := w.Fetch(context.Background(), warehouse.QuerySpec{
		Table:          "bitemporal",
		BulletinColumn: "bulletin_date",
		DatumColumn:    "datum_date",
		Values:         []warehouse.ValueColumn{{Column: "confirmed_cases", Variable: "cases"}},
	}, []time.Time{domain.Date(2022, 1, 15)})
	if err != nil {
		t.Fatalf("fixture fetch failed: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("fixture bitemporal vintage is empty")
	}
}
