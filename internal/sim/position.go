package sim

import (
	"fmt"
	"time"

	"github.com/railviz/engine/internal/schedule"
)

// Train statuses exposed to the renderer.
const (
	StatusScheduled = "SCHEDULED"
	StatusEnRoute   = "EN_ROUTE"
	StatusDelayed   = "DELAYED"
	StatusStopped   = "STOPPED"
	StatusArrived   = "ARRIVED"
)

// StageFallback marks a snapshot produced by the degraded cyclic animation
// used when no leg timing can bracket the virtual time.
const StageFallback = "fallback animation"

// fallbackPeriod is the real-duration cycle of the degraded animation,
// measured against the virtual timestamp to keep resolution deterministic.
const fallbackPeriod = 15 * time.Second

// Snapshot is the per-tick derived view of one train. It is recomputed
// whole on every tick and never partially applied.
type Snapshot struct {
	TrainID      string    `json:"trainId"`
	Status       string    `json:"status"`
	CurrentStop  string    `json:"currentStop"`
	NextStop     string    `json:"nextStop,omitempty"`
	AtStation    bool      `json:"atStation"`
	Progress     float64   `json:"progress"`
	LegIndex     int       `json:"legIndex"`
	StageInfo    string    `json:"stageInfo"`
	Fallback     bool      `json:"fallback,omitempty"`
	HasStarted   bool      `json:"hasStarted"`
	HasCompleted bool      `json:"hasCompleted"`
	Position     Point     `json:"position"`
	VirtualTime  time.Time `json:"virtualTime"`
}

// ResolvePosition computes a train's snapshot at the given virtual time.
// Pure and deterministic: the same route and timestamp always yield the
// same snapshot, so any instant can be re-rendered, not just forward
// playback. Coordinates are filled in later by the orchestrator.
func ResolvePosition(t schedule.Train, at time.Time) Snapshot {
	snap := Snapshot{
		TrainID:     t.ID,
		VirtualTime: at,
	}

	route := t.Route
	if len(route) < 2 {
		return scheduledAtOrigin(snap, t)
	}

	first := route[0]
	last := route[len(route)-1]

	// Not yet departed.
	if first.Departure != nil && at.Before(*first.Departure) {
		snap.Status = StatusScheduled
		snap.AtStation = true
		snap.CurrentStop = first.StationID
		snap.NextStop = route[1].StationID
		snap.StageInfo = fmt.Sprintf("waiting to depart from %s", first.StationID)
		return snap
	}

	// Journey complete. Terminal: every later timestamp resolves the same.
	if last.Arrival != nil && !at.Before(*last.Arrival) {
		snap.Status = StatusArrived
		snap.AtStation = true
		snap.CurrentStop = last.StationID
		snap.Progress = 1
		snap.LegIndex = len(route) - 2
		snap.HasStarted = true
		snap.HasCompleted = true
		snap.StageInfo = fmt.Sprintf("arrived at %s", last.StationID)
		return snap
	}

	for i := 0; i < len(route)-1; i++ {
		from := route[i]
		to := route[i+1]

		// Legs with missing timing cannot bracket the virtual time; that is
		// a gap in determinability, not an error.
		if from.Departure == nil || to.Arrival == nil {
			continue
		}

		if !at.Before(*from.Departure) && !at.After(*to.Arrival) {
			return inTransit(snap, t, i, at)
		}

		// Dwelling: between arrival at the next stop and its departure.
		if to.Departure != nil && at.After(*to.Arrival) && at.Before(*to.Departure) {
			return atStation(snap, t, i+1)
		}
	}

	// No leg brackets the virtual time: degrade to the cyclic demo loop so
	// the visualization never freezes.
	return fallbackCycle(snap, t, at)
}

func inTransit(snap Snapshot, t schedule.Train, leg int, at time.Time) Snapshot {
	from := t.Route[leg]
	to := t.Route[leg+1]

	duration := to.Arrival.Sub(*from.Departure)
	progress := 0.5
	if duration > 0 {
		progress = Clamp(float64(at.Sub(*from.Departure))/float64(duration), 0, 1)
	}

	snap.Status = StatusEnRoute
	if t.DelayMinutes > 0 {
		snap.Status = StatusDelayed
	}
	snap.CurrentStop = from.StationID
	snap.NextStop = to.StationID
	snap.Progress = progress
	snap.LegIndex = leg
	snap.HasStarted = true
	snap.StageInfo = fmt.Sprintf("en route %s -> %s (%.0f%%)", from.StationID, to.StationID, progress*100)
	return snap
}

func atStation(snap Snapshot, t schedule.Train, stop int) Snapshot {
	here := t.Route[stop]

	snap.Status = StatusStopped
	if here.DwellMinutes <= 0 {
		snap.Status = StatusEnRoute
	}
	snap.AtStation = true
	snap.CurrentStop = here.StationID
	if stop+1 < len(t.Route) {
		snap.NextStop = t.Route[stop+1].StationID
	}
	snap.LegIndex = stop
	snap.HasStarted = true
	snap.StageInfo = fmt.Sprintf("stopped at %s", here.StationID)
	return snap
}

// fallbackCycle loops the train over its leg sequence on a fixed period
// derived from the virtual timestamp. Explicitly degraded-mode: the
// StageInfo marker distinguishes it from timed operation.
func fallbackCycle(snap Snapshot, t schedule.Train, at time.Time) Snapshot {
	legs := len(t.Route) - 1
	if legs < 1 {
		return scheduledAtOrigin(snap, t)
	}

	elapsed := at.UnixMilli() % fallbackPeriod.Milliseconds()
	if elapsed < 0 {
		elapsed += fallbackPeriod.Milliseconds()
	}
	cycle := float64(elapsed) / float64(fallbackPeriod.Milliseconds()) * float64(legs)
	leg := int(cycle)
	if leg >= legs {
		leg = legs - 1
	}

	snap.Status = StatusEnRoute
	snap.CurrentStop = t.Route[leg].StationID
	snap.NextStop = t.Route[leg+1].StationID
	snap.Progress = Clamp(cycle-float64(leg), 0, 1)
	snap.LegIndex = leg
	snap.HasStarted = true
	snap.Fallback = true
	snap.StageInfo = StageFallback
	return snap
}

// scheduledAtOrigin is the ultimate fallback for routes with no traversable
// legs at all.
func scheduledAtOrigin(snap Snapshot, t schedule.Train) Snapshot {
	snap.Status = StatusScheduled
	snap.AtStation = true
	if len(t.Route) > 0 {
		snap.CurrentStop = t.Route[0].StationID
		snap.StageInfo = fmt.Sprintf("waiting to depart from %s", t.Route[0].StationID)
	}
	return snap
}
