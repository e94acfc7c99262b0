package derive

import (
	"covid-charts/internal/domain"
)

// DatumDiffs converts cumulative series into daily increments along
// the datum axis, within each (variable, group, vintage) series. The
// first datum of a series keeps its cumulative value as its increment.
// A missing value yields a missing increment; the next present value
// diffs against the last value actually seen.
func DatumDiffs(f domain.Frame) domain.Frame {
	rows := make(domain.Frame, len(f))
	copy(rows, f)
	sortFrame(rows)

	out := make(domain.Frame, 0, len(rows))
	var prev *float64
	for i, o := range rows {
		if i == 0 || !sameSeries(rows[i-1], o) {
			prev = nil
		}
		d := o
		if o.Value == nil {
			d.Value = nil
		} else if prev == nil {
			v := *o.Value
			d.Value = &v
		} else {
			v := *o.Value - *prev
			d.Value = &v
		}
		if o.Value != nil {
			prev = o.Value
		}
		out = append(out, d)
	}
	return out
}
