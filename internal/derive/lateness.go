package derive

import (
	"time"

	"covid-charts/internal/domain"
)

// Lateness estimates the mean reporting delay for one vintage: the
// average of (bulletin_date − datum_date) in days, weighted by the
// value mass newly observed in that vintage. The input frame is an
// additions frame, i.e. each row holds how much of the variable first
// became visible at that (bulletin date, datum date).
//
// Only positive additions carry mass; retroactive removals tell us
// nothing about delay. Returns nil when the vintage carries no mass.
func Lateness(f domain.Frame, variable string, bulletinDate time.Time) *float64 {
	var weighted, mass float64
	for _, o := range f {
		if o.Variable != variable || o.Value == nil || *o.Value <= 0 {
			continue
		}
		if !o.BulletinDate.Equal(bulletinDate) {
			continue
		}
		weighted += float64(domain.DaysBetween(o.DatumDate, o.BulletinDate)) * *o.Value
		mass += *o.Value
	}
	if mass == 0 {
		return nil
	}
	r := weighted / mass
	return &r
}

// SmoothedLateness pools the newly observed mass of the trailing
// `window` vintages ending at bulletinDate and returns their combined
// delay estimate. Both the daily and the smoothed series come from the
// same fetched frame, so multi-vintage output never refetches.
func SmoothedLateness(f domain.Frame, variable string, bulletinDate time.Time, window int) *float64 {
	since := bulletinDate.AddDate(0, 0, -window)
	var weighted, mass float64
	for _, o := range f {
		if o.Variable != variable || o.Value == nil || *o.Value <= 0 {
			continue
		}
		if !o.BulletinDate.After(since) || o.BulletinDate.After(bulletinDate) {
			continue
		}
		weighted += float64(domain.DaysBetween(o.DatumDate, o.BulletinDate)) * *o.Value
		mass += *o.Value
	}
	if mass == 0 {
		return nil
	}
	r := weighted / mass
	return &r
}

// Tier is one delay bucket of the lateness histogram. MaxDays < 0
// leaves the bucket open-ended.
type Tier struct {
	Label   string
	MinDays int
	MaxDays int
}

// DefaultTiers mirrors the delay buckets of the published lateness
// tiers chart.
var DefaultTiers = []Tier{
	{Label: "0-3", MinDays: 0, MaxDays: 3},
	{Label: "4-7", MinDays: 4, MaxDays: 7},
	{Label: "8-14", MinDays: 8, MaxDays: 14},
	{Label: "> 14", MinDays: 15, MaxDays: -1},
}

// TierMass is the newly observed value mass falling into one delay
// bucket for one vintage.
type TierMass struct {
	Tier  string
	Order int
	Mass  float64
}

// LatenessTiers buckets the vintage's newly observed mass by reporting
// delay. Every tier appears in the output, zero-mass tiers included,
// in tier order.
func LatenessTiers(f domain.Frame, variable string, bulletinDate time.Time, tiers []Tier) []TierMass {
	out := make([]TierMass, len(tiers))
	for i, t := range tiers {
		out[i] = TierMass{Tier: t.Label, Order: i}
	}
	for _, o := range f {
		if o.Variable != variable || o.Value == nil || *o.Value <= 0 {
			continue
		}
		if !o.BulletinDate.Equal(bulletinDate) {
			continue
		}
		delay := domain.DaysBetween(o.DatumDate, o.BulletinDate)
		for i, t := range tiers {
			if delay >= t.MinDays && (t.MaxDays < 0 || delay <= t.MaxDays) {
				out[i].Mass += *o.Value
				break
			}
		}
	}
	return out
}
