package mismatch

import (
	"testing"
	"time"

	"covid-charts/internal/derive"
	"covid-charts/internal/domain"
)

func announcedRow(b time.Time, variable string, v float64) domain.Observation {
	return domain.Observation{BulletinDate: b, DatumDate: b, Variable: variable, Value: domain.Float(v)}
}

func deltaRow(b, d time.Time, variable string, v float64) domain.Observation {
	return domain.Observation{BulletinDate: b, DatumDate: d, Variable: variable, Value: domain.Float(v)}
}

func TestDetectConsistent(t *testing.T) {
	b := domain.Date(2022, 1, 8)
	announced := domain.Frame{announcedRow(b, "cases", 30)}
	deltas := domain.Frame{
		deltaRow(b, domain.Date(2022, 1, 5), "cases", 10),
		deltaRow(b, domain.Date(2022, 1, 6), "cases", 20),
	}

	rows := Detect(announced, deltas)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if d := rows[0].Discrepancy(); d != 0 {
		t.Errorf("discrepancy = %v, want 0", d)
	}
}

func TestDetectDiscrepancy(t *testing.T) {
	b := domain.Date(2022, 1, 8)
	announced := domain.Frame{announcedRow(b, "cases", 35)}
	deltas := domain.Frame{deltaRow(b, domain.Date(2022, 1, 5), "cases", 30)}

	rows := Detect(announced, deltas)
	if d := rows[0].Discrepancy(); d != 5 {
		t.Errorf("discrepancy = %v, want 5", d)
	}
}

func TestDetectIgnoresFutureDatums(t *testing.T) {
	b := domain.Date(2022, 1, 8)
	announced := domain.Frame{announcedRow(b, "cases", 10)}
	deltas := domain.Frame{
		deltaRow(b, domain.Date(2022, 1, 5), "cases", 10),
		// Present in the vintage but dated after the bulletin; the
		// announced total cannot include it.
		deltaRow(b, domain.Date(2022, 1, 9), "cases", 99),
	}

	rows := Detect(announced, deltas)
	if d := rows[0].Discrepancy(); d != 0 {
		t.Errorf("discrepancy = %v, want 0", d)
	}
}

func TestDetectSortedOutput(t *testing.T) {
	b1 := domain.Date(2022, 1, 1)
	b2 := domain.Date(2022, 1, 8)
	announced := domain.Frame{
		announcedRow(b2, "deaths", 1),
		announcedRow(b2, "cases", 2),
		announcedRow(b1, "cases", 3),
	}

	rows := Detect(announced, nil)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if !rows[0].BulletinDate.Equal(b1) || rows[1].Variable != "cases" || rows[2].Variable != "deaths" {
		t.Errorf("rows out of order: %+v", rows)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	b := domain.Date(2022, 1, 8)
	rows := []Row{{BulletinDate: b, Variable: "cases", Announced: 10, Computed: 7}}

	f := Frame(rows)
	if len(f) != 1 || f[0].Value == nil || *f[0].Value != 3 {
		t.Fatalf("frame conversion lost the discrepancy: %+v", f)
	}
	if !f[0].DatumDate.Equal(b) {
		t.Error("discrepancy rows live on the bulletin axis")
	}
}

// TestThreeVintageScenario walks a synthetic revision history through
// the whole derivation chain: vintage deltas, a trailing window over
// the newest vintage, and reconciliation of announced totals against
// summed deltas, first self-consistent and then with one corrupted
// record.
func TestThreeVintageScenario(t *testing.T) {
	vintages := []time.Time{
		domain.Date(2022, 1, 1),
		domain.Date(2022, 1, 8),
		domain.Date(2022, 1, 15),
	}
	datums := domain.Dates(domain.Date(2022, 1, 1), domain.Date(2022, 1, 14))

	// Cumulative cases: every event date starts at 10 in the first
	// vintage that covers it and gains 1 in each later vintage.
	cumulative := func(b, d time.Time) *float64 {
		if d.After(b) {
			return nil
		}
		bIdx, firstIdx := 0, 0
		for i, v := range vintages {
			if v.Equal(b) {
				bIdx = i
			}
		}
		for i, v := range vintages {
			if !v.Before(d) {
				firstIdx = i
				break
			}
		}
		v := 10.0 + float64(bIdx-firstIdx)
		return &v
	}

	var bitemporal domain.Frame
	for _, b := range vintages {
		for _, d := range datums {
			if v := cumulative(b, d); v != nil {
				bitemporal = append(bitemporal, deltaRow(b, d, "cases", *v))
			}
		}
	}

	// (a) Deltas between the second and first vintages: one new event
	// date appears per day of the gap, older dates gain 1 each.
	deltas := derive.Delta(bitemporal, vintages[1], vintages[0])
	for _, r := range deltas {
		if r.Dropped {
			t.Fatalf("unexpected dropped record at %v", r.DatumDate)
		}
		want := 1.0
		if r.DatumDate.After(vintages[0]) {
			want = 10.0
		}
		if r.Delta != want {
			t.Errorf("delta at %v = %v, want %v", r.DatumDate, r.Delta, want)
		}
	}

	// (b) A 7-row trailing mean over the newest vintage produces one
	// point per event date, the last one over a complete window.
	newest := bitemporal.Vintage(vintages[2])
	points := derive.Rolling(newest, 7)
	if len(points) != len(datums) {
		t.Fatalf("rolling produced %d points, want %d", len(points), len(datums))
	}
	last := points[len(points)-1]
	if last.Mean == nil {
		t.Fatal("complete window must have a mean")
	}

	// (c) Announced totals that match the summed per-vintage additions
	// reconcile to zero.
	var additions domain.Frame
	announcedTotals := make(map[time.Time]float64)
	for i, b := range vintages {
		var total float64
		for _, o := range bitemporal.Vintage(b) {
			total += *o.Value
		}
		announcedTotals[b] = total

		prior := time.Time{}
		if i > 0 {
			prior = vintages[i-1]
		}
		for _, r := range derive.Delta(bitemporal, b, prior) {
			additions = append(additions, deltaRow(b, r.DatumDate, "cases", r.Delta))
		}
	}

	var announced domain.Frame
	for b, total := range announcedTotals {
		announced = append(announced, announcedRow(b, "cases", total))
	}

	for _, r := range DetectCumulative(announced, additions) {
		if d := r.Discrepancy(); d != 0 {
			t.Errorf("self-consistent data: discrepancy at %v = %v", r.BulletinDate, d)
		}
	}

	// Corrupt one announced total and the detector flags exactly that
	// bulletin.
	for i := range announced {
		if announced[i].BulletinDate.Equal(vintages[1]) {
			announced[i].Value = domain.Float(*announced[i].Value + 5)
		}
	}
	for _, r := range DetectCumulative(announced, additions) {
		want := 0.0
		if r.BulletinDate.Equal(vintages[1]) {
			want = 5
		}
		if d := r.Discrepancy(); d != want {
			t.Errorf("discrepancy at %v = %v, want %v", r.BulletinDate, d, want)
		}
	}
}
