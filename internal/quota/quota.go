// Package quota converts a contracted total into time-boxed per-period
// delivery targets with deficit-only rollover: a period's shortfall is folded
// into the following period's burden, never the other way around.
package quota

import "time"

// DefaultPeriods is the quarterly cycle split into months.
const DefaultPeriods = 4

// Period is one allocation window, [Start, End).
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether the instant falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Event is a delivery that counts toward a period's target.
type Event struct {
	Date     time.Time
	Quantity float64
}

// Target is the computed obligation for one period.
//
// Target carries the verbatim adjusted value and may go negative when the
// accumulated deficit exceeds the base share; Remaining is the floor-clamped
// figure shown to callers. The rollover itself always works on the raw value.
type Target struct {
	Period    Period  `json:"period"`
	Base      float64 `json:"base"`
	Target    float64 `json:"target"`
	Delivered float64 `json:"delivered"`
	Remaining float64 `json:"remaining"`
	Deficit   float64 `json:"deficit"`
}

// MonthlyPeriods builds n consecutive calendar-month periods starting at the
// month of start.
func MonthlyPeriods(start time.Time, n int) []Period {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	periods := make([]Period, 0, n)
	for i := 0; i < n; i++ {
		s := first.AddDate(0, i, 0)
		periods = append(periods, Period{Start: s, End: s.AddDate(0, 1, 0)})
	}
	return periods
}

// Allocate splits total evenly across the periods and processes them in
// chronological order, carrying each period's unmet shortfall forward as an
// increased burden on the next. Surplus never relaxes future targets.
//
// A shortfall only becomes a deficit once its period has fully elapsed at
// asOf; a period still in progress is not yet considered missed.
func Allocate(total float64, periods []Period, events []Event, asOf time.Time) []Target {
	if len(periods) == 0 {
		return nil
	}

	base := total / float64(len(periods))
	targets := make([]Target, 0, len(periods))

	var deficit float64
	for _, p := range periods {
		adjusted := base - deficit

		var delivered float64
		for _, ev := range events {
			if p.Contains(ev.Date) {
				delivered += ev.Quantity
			}
		}

		raw := adjusted - delivered
		elapsed := !asOf.Before(p.End)
		if elapsed && raw > 0 {
			deficit = raw
		} else {
			deficit = 0
		}

		remaining := raw
		if remaining < 0 {
			remaining = 0
		}

		targets = append(targets, Target{
			Period:    p,
			Base:      base,
			Target:    adjusted,
			Delivered: delivered,
			Remaining: remaining,
			Deficit:   deficit,
		})
	}
	return targets
}
