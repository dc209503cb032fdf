package quota

import (
	"math"
	"testing"
	"time"
)

const tolerance = 0.001

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestMonthlyPeriods(t *testing.T) {
	periods := MonthlyPeriods(date(2026, time.February, 15), 4)
	if len(periods) != 4 {
		t.Fatalf("got %d periods, want 4", len(periods))
	}
	if !periods[0].Start.Equal(date(2026, time.February, 1)) {
		t.Errorf("first period starts %v, want 2026-02-01", periods[0].Start)
	}
	if !periods[3].End.Equal(date(2026, time.June, 1)) {
		t.Errorf("last period ends %v, want 2026-06-01", periods[3].End)
	}
	if !periods[1].Contains(date(2026, time.March, 31)) {
		t.Error("period should contain its last day")
	}
	if periods[1].Contains(date(2026, time.April, 1)) {
		t.Error("period end is exclusive")
	}
}

func TestAllocateNoDeliveries(t *testing.T) {
	periods := MonthlyPeriods(date(2026, time.January, 1), DefaultPeriods)
	targets := Allocate(400, periods, nil, date(2026, time.January, 1))

	for i, tg := range targets {
		if !almostEqual(tg.Target, 100) {
			t.Errorf("period %d target = %v, want 100", i, tg.Target)
		}
		if !almostEqual(tg.Remaining, 100) {
			t.Errorf("period %d remaining = %v, want 100", i, tg.Remaining)
		}
		if tg.Deficit != 0 {
			t.Errorf("period %d deficit = %v, want 0 before anything elapses", i, tg.Deficit)
		}
	}
}

func TestAllocateDeficitRollover(t *testing.T) {
	periods := MonthlyPeriods(date(2026, time.January, 1), DefaultPeriods)
	events := []Event{{Date: date(2026, time.January, 20), Quantity: 60}}

	// Evaluated during February: January has elapsed with 60 of 100 delivered.
	targets := Allocate(400, periods, events, date(2026, time.February, 10))

	if !almostEqual(targets[0].Delivered, 60) {
		t.Fatalf("period 1 delivered = %v, want 60", targets[0].Delivered)
	}
	if !almostEqual(targets[0].Deficit, 40) {
		t.Errorf("period 1 deficit = %v, want 40", targets[0].Deficit)
	}
	// The shortfall tightens the next period's burden.
	if !almostEqual(targets[1].Target, 60) {
		t.Errorf("period 2 target = %v, want 100-40=60", targets[1].Target)
	}
	// February is still in progress, so nothing rolls into March yet.
	if !almostEqual(targets[2].Target, 100) {
		t.Errorf("period 3 target = %v, want 100", targets[2].Target)
	}
}

func TestAllocateSurplusDoesNotRelax(t *testing.T) {
	periods := MonthlyPeriods(date(2026, time.January, 1), DefaultPeriods)
	events := []Event{{Date: date(2026, time.January, 10), Quantity: 150}}

	targets := Allocate(400, periods, events, date(2026, time.February, 10))

	if !almostEqual(targets[0].Deficit, 0) {
		t.Errorf("overdelivered period deficit = %v, want 0", targets[0].Deficit)
	}
	if !almostEqual(targets[0].Remaining, 0) {
		t.Errorf("overdelivered period remaining = %v, want clamped 0", targets[0].Remaining)
	}
	if !almostEqual(targets[1].Target, 100) {
		t.Errorf("period 2 target = %v, want 100 (surplus never carries)", targets[1].Target)
	}
}

func TestAllocateFullShortfallResetsDeficit(t *testing.T) {
	// A completely missed period pushes the next period's target to zero.
	// Zero raw remaining is not "> 0", so the carried debt is wiped and the
	// third period falls back to the base share. Deliberate verbatim
	// behavior, see DESIGN.md.
	periods := MonthlyPeriods(date(2026, time.January, 1), 3)
	targets := Allocate(300, periods, nil, date(2026, time.May, 1))

	if !almostEqual(targets[0].Target, 100) || !almostEqual(targets[0].Deficit, 100) {
		t.Errorf("period 1 = %+v, want target 100 deficit 100", targets[0])
	}
	if !almostEqual(targets[1].Target, 0) || !almostEqual(targets[1].Deficit, 0) {
		t.Errorf("period 2 = %+v, want target 0 deficit 0", targets[1])
	}
	if !almostEqual(targets[2].Target, 100) {
		t.Errorf("period 3 target = %v, want 100", targets[2].Target)
	}
}

func TestAllocateEmptyPeriods(t *testing.T) {
	if targets := Allocate(400, nil, nil, date(2026, time.January, 1)); targets != nil {
		t.Errorf("expected nil targets for zero periods, got %v", targets)
	}
}
