package derive

import (
	"time"

	"covid-charts/internal/domain"
)

// TreatZeroAsMissing returns a copy of the frame with zero values
// replaced by nil. Used by the delta heatmap charts, where zero means
// "nothing changed" and would drown the revisions that did happen.
// This is a deliberate per-chart choice; most charts keep zeros.
func TreatZeroAsMissing(f domain.Frame) domain.Frame {
	out := make(domain.Frame, len(f))
	for i, o := range f {
		if o.Value != nil && *o.Value == 0 {
			o.Value = nil
		}
		out[i] = o
	}
	return out
}

// DropMissing returns the rows that carry a value.
func DropMissing(f domain.Frame) domain.Frame {
	out := make(domain.Frame, 0, len(f))
	for _, o := range f {
		if o.Value != nil {
			out = append(out, o)
		}
	}
	return out
}

// ImputeZero fills calendar gaps with explicit zeros: for every
// (variable, group) series, each day of [from, to] missing from the
// series' datum-date axis gets a zero row. This is the one place the
// pipeline calendar-imputes; rolling windows everywhere else are
// positional. Used by the municipal band charts, where an absent day
// genuinely means zero new cases. Intended to run on an
// already-filtered frame; imputed rows take the date on both time
// axes.
func ImputeZero(f domain.Frame, from, to time.Time) domain.Frame {
	type key struct {
		variable, group string
	}

	present := make(map[key]map[time.Time]struct{})
	for _, o := range f {
		k := key{o.Variable, o.Group}
		if present[k] == nil {
			present[k] = make(map[time.Time]struct{})
		}
		present[k][o.DatumDate] = struct{}{}
	}

	out := make(domain.Frame, len(f))
	copy(out, f)
	for k, days := range present {
		for _, d := range domain.Dates(from, to) {
			if _, ok := days[d]; ok {
				continue
			}
			out = append(out, domain.Observation{
				BulletinDate: d,
				DatumDate:    d,
				Group:        k.group,
				Variable:     k.variable,
				Value:        domain.Float(0),
			})
		}
	}
	sortFrame(out)
	return out
}
