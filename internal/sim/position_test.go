package sim

import (
	"reflect"
	"testing"
	"time"

	"github.com/railviz/engine/internal/schedule"
)

func mustClock(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", "2025-03-01 "+hhmm)
	if err != nil {
		t.Fatalf("bad test clock %q: %v", hhmm, err)
	}
	return parsed
}

func tp(t *testing.T, hhmm string) *time.Time {
	t.Helper()
	ts := mustClock(t, hhmm)
	return &ts
}

// tripABC: depart A 08:00, arrive B 08:30 / depart 08:32, arrive C 09:00.
func tripABC(t *testing.T) schedule.Train {
	t.Helper()
	return schedule.Train{
		ID: "T-100",
		Route: schedule.Route{
			{StationID: "A", Departure: tp(t, "08:00"), DwellMinutes: 2, IsOrigin: true},
			{StationID: "B", Arrival: tp(t, "08:30"), Departure: tp(t, "08:32"), DwellMinutes: 2},
			{StationID: "C", Arrival: tp(t, "09:00"), DwellMinutes: 2, IsDestination: true},
		},
	}
}

func TestResolvePositionMidLeg(t *testing.T) {
	snap := ResolvePosition(tripABC(t), mustClock(t, "08:45"))

	if snap.Status != StatusEnRoute {
		t.Errorf("status = %s, want %s", snap.Status, StatusEnRoute)
	}
	if snap.CurrentStop != "B" || snap.NextStop != "C" {
		t.Errorf("leg = %s->%s, want B->C", snap.CurrentStop, snap.NextStop)
	}
	if snap.LegIndex != 1 {
		t.Errorf("leg index = %d, want 1", snap.LegIndex)
	}
	// 13 minutes into a 28 minute leg.
	want := 13.0 / 28.0
	if diff := snap.Progress - want; diff > 0.001 || diff < -0.001 {
		t.Errorf("progress = %f, want %f", snap.Progress, want)
	}
	if snap.AtStation {
		t.Error("in-transit snapshot should not be at-station")
	}
}

func TestResolvePositionBeforeDeparture(t *testing.T) {
	snap := ResolvePosition(tripABC(t), mustClock(t, "07:59"))

	if snap.Status != StatusScheduled {
		t.Errorf("status = %s, want %s", snap.Status, StatusScheduled)
	}
	if !snap.AtStation {
		t.Error("scheduled train should be at-station")
	}
	if snap.Progress != 0 {
		t.Errorf("progress = %f, want 0", snap.Progress)
	}
	if snap.CurrentStop != "A" || snap.NextStop != "B" {
		t.Errorf("stops = %s/%s, want A/B", snap.CurrentStop, snap.NextStop)
	}
	if snap.HasStarted {
		t.Error("scheduled train should not have started")
	}
}

func TestResolvePositionArrivedIsTerminal(t *testing.T) {
	for _, clock := range []string{"09:00", "09:30", "12:00"} {
		snap := ResolvePosition(tripABC(t), mustClock(t, clock))

		if snap.Status != StatusArrived {
			t.Errorf("at %s: status = %s, want %s", clock, snap.Status, StatusArrived)
		}
		if snap.Progress != 1 {
			t.Errorf("at %s: progress = %f, want 1", clock, snap.Progress)
		}
		if !snap.AtStation || !snap.HasCompleted {
			t.Errorf("at %s: arrived snapshot should be at-station and completed", clock)
		}
		if snap.CurrentStop != "C" || snap.NextStop != "" {
			t.Errorf("at %s: stops = %s/%s, want C/none", clock, snap.CurrentStop, snap.NextStop)
		}
	}
}

func TestResolvePositionDwellAtStation(t *testing.T) {
	snap := ResolvePosition(tripABC(t), mustClock(t, "08:31"))

	if snap.Status != StatusStopped {
		t.Errorf("status = %s, want %s", snap.Status, StatusStopped)
	}
	if !snap.AtStation {
		t.Error("dwelling train should be at-station")
	}
	if snap.CurrentStop != "B" || snap.NextStop != "C" {
		t.Errorf("stops = %s/%s, want B/C", snap.CurrentStop, snap.NextStop)
	}
}

func TestResolvePositionWithDelayShift(t *testing.T) {
	delayed := tripABC(t).WithDelay(15)

	// Shifted origin departure is 08:15.
	if snap := ResolvePosition(delayed, mustClock(t, "08:10")); snap.Status != StatusScheduled {
		t.Errorf("at 08:10: status = %s, want %s", snap.Status, StatusScheduled)
	}

	// One minute into the shifted 30-minute A->B leg.
	snap := ResolvePosition(delayed, mustClock(t, "08:16"))
	if snap.Status != StatusDelayed {
		t.Errorf("at 08:16: status = %s, want %s", snap.Status, StatusDelayed)
	}
	if snap.LegIndex != 0 {
		t.Errorf("at 08:16: leg index = %d, want 0", snap.LegIndex)
	}
	want := 1.0 / 30.0
	if diff := snap.Progress - want; diff > 0.001 || diff < -0.001 {
		t.Errorf("at 08:16: progress = %f, want %f", snap.Progress, want)
	}

	// Shifted arrival at B is 08:45, departure 08:47.
	if snap := ResolvePosition(delayed, mustClock(t, "08:46")); snap.Status != StatusStopped || snap.CurrentStop != "B" {
		t.Errorf("at 08:46: got %s at %s, want %s at B", snap.Status, snap.CurrentStop, StatusStopped)
	}
}

func TestResolvePositionDeterministic(t *testing.T) {
	train := tripABC(t)
	at := mustClock(t, "08:45")

	first := ResolvePosition(train, at)
	second := ResolvePosition(train, at)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("snapshots differ: %+v vs %+v", first, second)
	}
}

func TestResolvePositionProgressAlwaysInRange(t *testing.T) {
	train := tripABC(t)
	at := mustClock(t, "07:00")
	for i := 0; i < 6*60; i++ {
		snap := ResolvePosition(train, at)
		if snap.Progress < 0 || snap.Progress > 1 {
			t.Fatalf("at %s: progress %f out of [0,1]", at.Format("15:04"), snap.Progress)
		}
		at = at.Add(time.Minute)
	}
}

func TestResolvePositionFallbackAnimation(t *testing.T) {
	// No leg carries usable timing, so resolution degrades to the marked
	// cyclic animation instead of freezing.
	train := schedule.Train{
		ID: "T-200",
		Route: schedule.Route{
			{StationID: "A", IsOrigin: true},
			{StationID: "B"},
			{StationID: "C", IsDestination: true},
		},
	}

	snap := ResolvePosition(train, mustClock(t, "08:00"))
	if !snap.Fallback {
		t.Fatal("expected fallback snapshot")
	}
	if snap.StageInfo != StageFallback {
		t.Errorf("stage info = %q, want %q", snap.StageInfo, StageFallback)
	}
	if snap.Progress < 0 || snap.Progress > 1 {
		t.Errorf("fallback progress %f out of [0,1]", snap.Progress)
	}
	if snap.LegIndex < 0 || snap.LegIndex > 1 {
		t.Errorf("fallback leg index %d out of range", snap.LegIndex)
	}

	// Still deterministic for a fixed virtual time.
	if again := ResolvePosition(train, mustClock(t, "08:00")); !reflect.DeepEqual(snap, again) {
		t.Error("fallback snapshot not deterministic")
	}
}

func TestResolvePositionRouteTooShort(t *testing.T) {
	train := schedule.Train{
		ID:    "T-300",
		Route: schedule.Route{{StationID: "A", IsOrigin: true}},
	}

	snap := ResolvePosition(train, mustClock(t, "08:00"))
	if snap.Status != StatusScheduled || !snap.AtStation || snap.CurrentStop != "A" {
		t.Errorf("degenerate route: got %+v, want scheduled at A", snap)
	}
}
