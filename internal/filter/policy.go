// Package filter provides the bulletin-date filter policies that each
// chart picks from. A policy selects which vintages of a fetched frame
// are relevant to a given bulletin date.
//
// Every policy is deterministic, side-effect free, idempotent, and
// safe against bulletin dates with no matching rows (the result is
// simply empty).
package filter

import (
	"time"

	"covid-charts/internal/domain"
)

// Policy selects the rows of f relevant to bulletinDate.
type Policy func(f domain.Frame, bulletinDate time.Time) domain.Frame

// Exact keeps the rows of the single vintage matching the bulletin
// date. The default policy for most charts.
func Exact() Policy {
	return func(f domain.Frame, d time.Time) domain.Frame {
		return keep(f, func(o domain.Observation) bool {
			return o.BulletinDate.Equal(d)
		})
	}
}

// UpTo keeps the full history up to and including the bulletin date.
func UpTo() Policy {
	return func(f domain.Frame, d time.Time) domain.Frame {
		return keep(f, func(o domain.Observation) bool {
			return !o.BulletinDate.After(d)
		})
	}
}

// Windowed keeps vintages in (bulletinDate − backDays, bulletinDate]:
// exclusive at the old end, inclusive at the new end.
func Windowed(backDays int) Policy {
	return func(f domain.Frame, d time.Time) domain.Frame {
		since := d.AddDate(0, 0, -backDays)
		return keep(f, func(o domain.Observation) bool {
			return o.BulletinDate.After(since) && !o.BulletinDate.After(d)
		})
	}
}

// WindowedInclusive keeps vintages in [bulletinDate − backDays,
// bulletinDate], inclusive at both ends.
func WindowedInclusive(backDays int) Policy {
	return func(f domain.Frame, d time.Time) domain.Frame {
		since := d.AddDate(0, 0, -backDays)
		return keep(f, func(o domain.Observation) bool {
			return !o.BulletinDate.Before(since) && !o.BulletinDate.After(d)
		})
	}
}

// WeekOverWeek keeps exactly the bulletin date's vintage and the one
// seven days earlier, for charts that overlay the two.
func WeekOverWeek() Policy {
	return func(f domain.Frame, d time.Time) domain.Frame {
		weekAgo := d.AddDate(0, 0, -7)
		return keep(f, func(o domain.Observation) bool {
			return o.BulletinDate.Equal(d) || o.BulletinDate.Equal(weekAgo)
		})
	}
}

// ClampedExact is Exact after clamping the bulletin date to the latest
// vintage present in the frame. Used where the requested bulletin date
// may run ahead of what has been ingested.
func ClampedExact() Policy {
	return func(f domain.Frame, d time.Time) domain.Frame {
		return Exact()(f, clamp(f, d))
	}
}

// ClampedWeekOverWeek clamps the bulletin date to the latest available
// vintage and then takes the week-over-week pair from there.
func ClampedWeekOverWeek() Policy {
	return func(f domain.Frame, d time.Time) domain.Frame {
		return WeekOverWeek()(f, clamp(f, d))
	}
}

// Shifted applies p with the bulletin date moved by days. A negative
// shift renders against trends established before the bulletin (the
// weekday-bias chart); a positive shift admits next-day data from
// sources whose clock runs ahead (hospital censuses).
func Shifted(days int, p Policy) Policy {
	return func(f domain.Frame, d time.Time) domain.Frame {
		return p(f, d.AddDate(0, 0, days))
	}
}

func clamp(f domain.Frame, d time.Time) time.Time {
	if max := f.MaxBulletinDate(); !max.IsZero() && max.Before(d) {
		return max
	}
	return d
}

func keep(f domain.Frame, pred func(domain.Observation) bool) domain.Frame {
	out := make(domain.Frame, 0, len(f))
	for _, o := range f {
		if pred(o) {
			out = append(out, o)
		}
	}
	return out
}
