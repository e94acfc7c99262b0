package derive

import (
	"sort"
	"time"

	"covid-charts/internal/domain"
)

// DeltaRow captures the change in one fact between two vintages.
type DeltaRow struct {
	DatumDate time.Time
	Group     string
	Variable  string

	// Delta is value@this − value@prior. Facts first visible in the
	// newer vintage delta from an implicit zero baseline.
	Delta float64

	// Dropped marks a fact present in the prior vintage but absent from
	// the newer one. The newer value is treated as zero, so Delta is the
	// negated prior value. Dropped records are a data-quality anomaly
	// and are surfaced rather than hidden.
	Dropped bool
}

// Delta compares two vintages of the frame and returns the per-fact
// changes, sorted by (variable, group, datum date). Rows with missing
// values are treated as absent from their vintage.
func Delta(f domain.Frame, this, prior time.Time) []DeltaRow {
	type key struct {
		variable, group string
		datum           time.Time
	}

	thisVals := make(map[key]float64)
	priorVals := make(map[key]float64)
	for _, o := range f {
		if o.Value == nil {
			continue
		}
		k := key{o.Variable, o.Group, o.DatumDate}
		switch {
		case o.BulletinDate.Equal(this):
			thisVals[k] = *o.Value
		case o.BulletinDate.Equal(prior):
			priorVals[k] = *o.Value
		}
	}

	out := make([]DeltaRow, 0, len(thisVals))
	for k, v := range thisVals {
		out = append(out, DeltaRow{
			DatumDate: k.datum,
			Group:     k.group,
			Variable:  k.variable,
			Delta:     v - priorVals[k],
		})
	}
	for k, v := range priorVals {
		if _, ok := thisVals[k]; ok {
			continue
		}
		out = append(out, DeltaRow{
			DatumDate: k.datum,
			Group:     k.group,
			Variable:  k.variable,
			Delta:     -v,
			Dropped:   true,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Variable != out[j].Variable {
			return out[i].Variable < out[j].Variable
		}
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].DatumDate.Before(out[j].DatumDate)
	})
	return out
}
