// Package mismatch reconciles officially announced cumulative totals
// against totals recomputed by summing daily deltas. A nonzero
// discrepancy means the upstream dataset revised history in a way the
// deltas do not account for, or a summation bug. Discrepancies are
// surfaced as a time series, never auto-corrected.
package mismatch

import (
	"sort"
	"time"

	"covid-charts/internal/domain"
)

// Row is one reconciliation result for a variable at a bulletin date.
type Row struct {
	BulletinDate time.Time
	Variable     string
	Announced    float64
	Computed     float64
}

// Discrepancy is announced minus computed. Zero means consistent.
func (r Row) Discrepancy() float64 {
	return r.Announced - r.Computed
}

// Detect reconciles announced totals against computed counterparts
// vintage by vintage: for every (bulletin date, variable) in
// announced, the computed side is the sum of that vintage's rows with
// datum date up to the bulletin date. Nil values count as zero on
// both sides. Output is sorted by bulletin date then variable.
//
// For reconciling a cumulative announced series against a daily
// deltas table, where the computed total must telescope across every
// vintage up to the bulletin, use DetectCumulative.
func Detect(announced, deltas domain.Frame) []Row {
	type key struct {
		bulletin time.Time
		variable string
	}

	totals := make(map[key]float64)
	for _, o := range announced {
		k := key{o.BulletinDate, o.Variable}
		if o.Value != nil {
			totals[k] += *o.Value
		} else if _, ok := totals[k]; !ok {
			totals[k] = 0
		}
	}

	sums := make(map[key]float64)
	for _, o := range deltas {
		if o.DatumDate.After(o.BulletinDate) {
			continue
		}
		k := key{o.BulletinDate, o.Variable}
		if o.Value != nil {
			sums[k] += *o.Value
		}
	}

	rows := make([]Row, 0, len(totals))
	for k, announced := range totals {
		rows = append(rows, Row{
			BulletinDate: k.bulletin,
			Variable:     k.variable,
			Announced:    announced,
			Computed:     sums[k],
		})
	}
	sortRows(rows)
	return rows
}

func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].BulletinDate.Equal(rows[j].BulletinDate) {
			return rows[i].BulletinDate.Before(rows[j].BulletinDate)
		}
		return rows[i].Variable < rows[j].Variable
	})
}

// DetectCumulative reconciles cumulative announced totals against a
// daily deltas table. The computed total for a bulletin date is the
// sum of every delta reported by any vintage up to that bulletin,
// restricted to datum dates up to the bulletin. Deltas telescope, so
// for self-consistent data this reproduces the cumulative total
// exactly.
func DetectCumulative(announced, deltas domain.Frame) []Row {
	type key struct {
		bulletin time.Time
		variable string
	}

	totals := make(map[key]float64)
	for _, o := range announced {
		k := key{o.BulletinDate, o.Variable}
		if o.Value != nil {
			totals[k] += *o.Value
		} else if _, ok := totals[k]; !ok {
			totals[k] = 0
		}
	}

	rows := make([]Row, 0, len(totals))
	for k, announcedTotal := range totals {
		var sum float64
		for _, o := range deltas {
			if o.Variable != k.variable || o.Value == nil {
				continue
			}
			if o.BulletinDate.After(k.bulletin) || o.DatumDate.After(k.bulletin) {
				continue
			}
			sum += *o.Value
		}
		rows = append(rows, Row{
			BulletinDate: k.bulletin,
			Variable:     k.variable,
			Announced:    announcedTotal,
			Computed:     sum,
		})
	}
	sortRows(rows)
	return rows
}

// Frame converts reconciliation rows back into a frame with the
// discrepancy as the value, so the standard filter policies and chart
// shaping apply.
func Frame(rows []Row) domain.Frame {
	f := make(domain.Frame, 0, len(rows))
	for _, r := range rows {
		d := r.Discrepancy()
		f = append(f, domain.Observation{
			BulletinDate: r.BulletinDate,
			DatumDate:    r.BulletinDate,
			Variable:     r.Variable,
			Value:        &d,
		})
	}
	return f
}
