// Package derive computes derived quantities over bitemporal frames:
// trailing-window statistics, vintage deltas, rates, and lateness
// estimates. All functions are pure; they never mutate their input.
package derive

import (
	"sort"

	"covid-charts/internal/domain"
)

// WindowPoint is one row of a rolling-window computation. Mean and Sum
// cover the trailing window ending at this row; both are nil when the
// window holds no non-missing values.
type WindowPoint struct {
	domain.Observation
	Mean *float64
	Sum  *float64
}

// Rolling computes trailing-window mean and sum over each
// (variable, group, bulletin date) series ordered by datum date.
// The window is positional: the last `window` rows of the series, not a
// calendar span, so gaps in the calendar do not shrink the statistic.
// Series shorter than the window aggregate over however many rows
// exist. Missing values are skipped, never poisoning the aggregate.
//
// Output is sorted by (variable, group, bulletin date, datum date) and
// has one point per input row.
func Rolling(f domain.Frame, window int) []WindowPoint {
	if window < 1 || len(f) == 0 {
		return nil
	}

	rows := make(domain.Frame, len(f))
	copy(rows, f)
	sortFrame(rows)

	out := make([]WindowPoint, 0, len(rows))
	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && sameSeries(rows[start], rows[end]) {
			end++
		}
		out = append(out, rollSeries(rows[start:end], window)...)
		start = end
	}
	return out
}

// rollSeries computes the trailing window over one ordered series.
func rollSeries(series domain.Frame, window int) []WindowPoint {
	out := make([]WindowPoint, len(series))
	for i, o := range series {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		sum := 0.0
		count := 0
		for _, w := range series[lo : i+1] {
			if w.Value == nil {
				continue
			}
			sum += *w.Value
			count++
		}
		p := WindowPoint{Observation: o}
		if count > 0 {
			s := sum
			m := sum / float64(count)
			p.Sum = &s
			p.Mean = &m
		}
		out[i] = p
	}
	return out
}

func sameSeries(a, b domain.Observation) bool {
	return a.Variable == b.Variable &&
		a.Group == b.Group &&
		a.BulletinDate.Equal(b.BulletinDate)
}

func sortFrame(f domain.Frame) {
	sort.SliceStable(f, func(i, j int) bool {
		if f[i].Variable != f[j].Variable {
			return f[i].Variable < f[j].Variable
		}
		if f[i].Group != f[j].Group {
			return f[i].Group < f[j].Group
		}
		if !f[i].BulletinDate.Equal(f[j].BulletinDate) {
			return f[i].BulletinDate.Before(f[j].BulletinDate)
		}
		return f[i].DatumDate.Before(f[j].DatumDate)
	})
}
