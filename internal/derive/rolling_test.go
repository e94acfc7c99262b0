package derive

import (
	"testing"
	"time"

	"covid-charts/internal/domain"
)

func obsRow(b, d time.Time, variable string, v *float64) domain.Observation {
	return domain.Observation{BulletinDate: b, DatumDate: d, Variable: variable, Value: v}
}

func series(b time.Time, variable string, start time.Time, values ...*float64) domain.Frame {
	var f domain.Frame
	for i, v := range values {
		f = append(f, obsRow(b, start.AddDate(0, 0, i), variable, v))
	}
	return f
}

func TestRollingPartialWindows(t *testing.T) {
	b := domain.Date(2022, 1, 15)
	start := domain.Date(2022, 1, 1)
	f := series(b, "cases", start,
		domain.Float(1), domain.Float(2), domain.Float(3), domain.Float(4))

	got := Rolling(f, 3)
	if len(got) != 4 {
		t.Fatalf("expected one point per input row, got %d", len(got))
	}

	wantMeans := []float64{1, 1.5, 2, 3}
	wantSums := []float64{1, 3, 6, 9}
	for i, p := range got {
		if p.Mean == nil || *p.Mean != wantMeans[i] {
			t.Errorf("point %d: mean = %v, want %v", i, p.Mean, wantMeans[i])
		}
		if p.Sum == nil || *p.Sum != wantSums[i] {
			t.Errorf("point %d: sum = %v, want %v", i, p.Sum, wantSums[i])
		}
	}
}

func TestRollingSkipsMissing(t *testing.T) {
	b := domain.Date(2022, 1, 15)
	start := domain.Date(2022, 1, 1)
	f := series(b, "cases", start, domain.Float(2), nil, domain.Float(4))

	got := Rolling(f, 3)
	last := got[2]
	if last.Mean == nil || *last.Mean != 3 {
		t.Errorf("mean over {2, missing, 4} = %v, want 3", last.Mean)
	}
}

func TestRollingAllMissing(t *testing.T) {
	b := domain.Date(2022, 1, 15)
	f := series(b, "cases", domain.Date(2022, 1, 1), nil, nil)

	got := Rolling(f, 2)
	for _, p := range got {
		if p.Mean != nil || p.Sum != nil {
			t.Errorf("all-missing window produced %v / %v", p.Mean, p.Sum)
		}
	}
}

func TestRollingIsPositionalNotCalendar(t *testing.T) {
	// A three day hole between observations must not shrink the
	// window: the trailing window counts rows, not days.
	b := domain.Date(2022, 1, 15)
	f := domain.Frame{
		obsRow(b, domain.Date(2022, 1, 1), "cases", domain.Float(10)),
		obsRow(b, domain.Date(2022, 1, 5), "cases", domain.Float(20)),
	}

	got := Rolling(f, 2)
	if got[1].Mean == nil || *got[1].Mean != 15 {
		t.Errorf("positional window mean = %v, want 15", got[1].Mean)
	}
}

func TestRollingSeparatesSeries(t *testing.T) {
	b1 := domain.Date(2022, 1, 14)
	b2 := domain.Date(2022, 1, 15)
	start := domain.Date(2022, 1, 1)
	f := append(
		series(b1, "cases", start, domain.Float(100), domain.Float(100)),
		series(b2, "cases", start, domain.Float(1), domain.Float(3))...)

	got := Rolling(f, 2)
	for _, p := range got {
		if p.BulletinDate.Equal(b2) && p.DatumDate.Equal(start.AddDate(0, 0, 1)) {
			if p.Mean == nil || *p.Mean != 2 {
				t.Errorf("vintage b2 mean = %v, want 2 (no bleed from b1)", p.Mean)
			}
		}
	}
}

func TestDatumDiffs(t *testing.T) {
	b := domain.Date(2022, 1, 15)
	start := domain.Date(2022, 1, 1)
	f := series(b, "cases", start,
		domain.Float(10), domain.Float(15), nil, domain.Float(21))

	got := DatumDiffs(f)
	if got[0].Value == nil || *got[0].Value != 10 {
		t.Errorf("first increment = %v, want 10", got[0].Value)
	}
	if got[1].Value == nil || *got[1].Value != 5 {
		t.Errorf("second increment = %v, want 5", got[1].Value)
	}
	if got[2].Value != nil {
		t.Errorf("missing input produced increment %v", *got[2].Value)
	}
	if got[3].Value == nil || *got[3].Value != 6 {
		t.Errorf("increment after a gap = %v, want 6 (21-15)", got[3].Value)
	}
}
