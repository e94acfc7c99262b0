package derive

import (
	"testing"

	"covid-charts/internal/domain"
)

func TestDeltaBetweenVintages(t *testing.T) {
	prior := domain.Date(2022, 1, 1)
	this := domain.Date(2022, 1, 8)
	d1 := domain.Date(2021, 12, 30)
	d2 := domain.Date(2021, 12, 31)

	f := domain.Frame{
		obsRow(prior, d1, "cases", domain.Float(100)),
		obsRow(prior, d2, "cases", domain.Float(50)),
		obsRow(this, d1, "cases", domain.Float(105)),
		obsRow(this, d2, "cases", domain.Float(50)),
	}

	got := Delta(f, this, prior)
	if len(got) != 2 {
		t.Fatalf("expected 2 delta rows, got %d", len(got))
	}
	if got[0].Delta != 5 {
		t.Errorf("delta for %v = %v, want 5", got[0].DatumDate, got[0].Delta)
	}
	if got[1].Delta != 0 {
		t.Errorf("delta for %v = %v, want 0", got[1].DatumDate, got[1].Delta)
	}
}

func TestDeltaImplicitZeroBaseline(t *testing.T) {
	prior := domain.Date(2022, 1, 1)
	this := domain.Date(2022, 1, 8)
	d := domain.Date(2022, 1, 5)

	// The event date appears for the first time in the newer vintage.
	f := domain.Frame{obsRow(this, d, "cases", domain.Float(12))}

	got := Delta(f, this, prior)
	if len(got) != 1 || got[0].Delta != 12 || got[0].Dropped {
		t.Fatalf("new fact delta = %+v, want 12 from implicit zero", got)
	}
}

func TestDeltaDroppedRecord(t *testing.T) {
	prior := domain.Date(2022, 1, 1)
	this := domain.Date(2022, 1, 8)
	d := domain.Date(2021, 12, 30)

	f := domain.Frame{obsRow(prior, d, "cases", domain.Float(7))}

	got := Delta(f, this, prior)
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].Delta != -7 || !got[0].Dropped {
		t.Errorf("dropped record row = %+v, want Delta -7 and Dropped", got[0])
	}
}

func TestDeltaConservation(t *testing.T) {
	// Sum of deltas equals the difference of vintage totals when no
	// record is dropped.
	prior := domain.Date(2022, 1, 1)
	this := domain.Date(2022, 1, 8)
	start := domain.Date(2021, 12, 25)

	var f domain.Frame
	var priorTotal, thisTotal float64
	for i := 0; i < 10; i++ {
		pv := float64(10 + i)
		tv := float64(12 + 2*i)
		priorTotal += pv
		thisTotal += tv
		d := start.AddDate(0, 0, i)
		f = append(f, obsRow(prior, d, "cases", domain.Float(pv)))
		f = append(f, obsRow(this, d, "cases", domain.Float(tv)))
	}

	var sum float64
	for _, r := range Delta(f, this, prior) {
		sum += r.Delta
	}
	if want := thisTotal - priorTotal; sum != want {
		t.Errorf("sum of deltas = %v, want %v", sum, want)
	}
}

func TestDeltaMissingTreatedAsAbsent(t *testing.T) {
	prior := domain.Date(2022, 1, 1)
	this := domain.Date(2022, 1, 8)
	d := domain.Date(2021, 12, 30)

	f := domain.Frame{
		obsRow(prior, d, "cases", nil),
		obsRow(this, d, "cases", domain.Float(3)),
	}

	got := Delta(f, this, prior)
	if len(got) != 1 || got[0].Delta != 3 || got[0].Dropped {
		t.Errorf("missing prior value should act as implicit zero, got %+v", got)
	}
}
