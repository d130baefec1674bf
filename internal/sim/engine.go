// Package sim contains the train-movement simulation engine: the virtual
// clock, the pure position/path/geometry resolvers, and the orchestrator
// that recomputes every train's snapshot on each tick.
package sim

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/railviz/engine/internal/schedule"
	"github.com/railviz/engine/internal/topology"
)

// State is the engine-level view read by the dashboard on every frame.
type State struct {
	VirtualTime *time.Time `json:"virtualTime,omitempty"`
	Running     bool       `json:"running"`
	Multiplier  float64    `json:"multiplier"`
	TrainCount  int        `json:"trainCount"`
	Strategy    Strategy   `json:"strategy"`
}

type pathKey struct {
	trainID  string
	from     string
	to       string
	strategy Strategy
}

// trainState pairs a canonical train with its last good snapshot. The
// mutable simulation view is owned exclusively by the engine.
type trainState struct {
	train schedule.Train
	snap  Snapshot
}

// Engine is the simulation orchestrator: one explicit state container
// holding the loaded trains, the topology, the clock, and the visual-path
// cache. Multiple engines can run side by side.
type Engine struct {
	mu        sync.RWMutex
	topo      *topology.Index
	trains    []*trainState
	byID      map[string]*trainState
	strategy  Strategy
	pathCache map[pathKey][]Point
	clock     *Clock
}

// New creates an empty engine ticking at the given real-time period.
func New(tickPeriod time.Duration) *Engine {
	e := &Engine{
		strategy:  StrategyBalanced,
		pathCache: make(map[pathKey][]Point),
		byID:      make(map[string]*trainState),
	}
	e.clock = NewClock(tickPeriod, e.tick)
	return e
}

// Load replaces the engine's trains and topology, rewinds the clock to the
// earliest departure across the new trains, and computes initial snapshots.
func (e *Engine) Load(trains []schedule.Train, topo *topology.Index) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.clock.Stop()
	e.topo = topo
	e.trains = make([]*trainState, 0, len(trains))
	e.byID = make(map[string]*trainState, len(trains))
	e.pathCache = make(map[pathKey][]Point)

	for _, t := range trains {
		st := &trainState{train: t}
		e.trains = append(e.trains, st)
		e.byID[t.ID] = st
	}

	start := earliestDeparture(trains)
	e.clock.SetInitial(start)
	if !start.IsZero() {
		e.recomputeLocked(start)
	}

	stations := 0
	if topo != nil {
		stations = topo.Stations()
	}
	log.Printf("Engine: loaded %d trains, %d stations", len(trains), stations)
}

// LoadPlan replaces the schedule with an externally computed plan (either a
// record array or a legacy train map), keeping the current topology.
func (e *Engine) LoadPlan(data []byte) error {
	records, err := schedule.DecodePlan(data)
	if err != nil {
		return err
	}

	e.mu.RLock()
	topo := e.topo
	e.mu.RUnlock()

	ref := time.Now().UTC()
	if at, ok := e.clock.Now(); ok {
		ref = at
	}
	e.Load(schedule.NormalizeAll(records, ref), topo)
	return nil
}

// Start begins simulation playback. Starting with zero loaded trains is a
// no-op, not an error.
func (e *Engine) Start(ctx context.Context) {
	e.mu.RLock()
	n := len(e.trains)
	e.mu.RUnlock()

	if n == 0 {
		log.Println("Engine: start ignored, no trains loaded")
		return
	}
	e.clock.Start(ctx)
}

// Stop halts playback; the last computed snapshots stay readable.
func (e *Engine) Stop() {
	e.clock.Stop()
}

// Reset rewinds virtual time to the earliest departure and recomputes every
// snapshot there. With no loaded schedule it is a no-op.
func (e *Engine) Reset() {
	e.clock.Reset()
	if at, ok := e.clock.Now(); ok {
		e.mu.Lock()
		e.recomputeLocked(at)
		e.mu.Unlock()
	}
}

// SetSpeed changes the virtual-minutes-per-real-minute multiplier; effective
// on the next tick.
func (e *Engine) SetSpeed(multiplier float64) {
	e.clock.SetSpeed(multiplier)
}

// SetStrategy switches the routing-strategy hint used for visual paths and
// drops the path cache so the next tick re-resolves.
func (e *Engine) SetStrategy(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategy = s
	e.pathCache = make(map[pathKey][]Point)
}

// ApplyDelay updates a train's cumulative delay, shifting its timetable
// uniformly. The change is visible on the next tick, never mid-tick.
func (e *Engine) ApplyDelay(trainID string, minutes int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.byID[trainID]
	if !ok {
		return false
	}
	st.train = st.train.WithDelay(minutes)
	return true
}

// ReportTrackFailure marks a track disabled. Path caches are dropped so
// strategy selection sees the failure on the next tick.
func (e *Engine) ReportTrackFailure(trackID string) bool {
	return e.setTrackStatus(trackID, topology.TrackDisabled)
}

// ReportTrackRepair marks a track operational again.
func (e *Engine) ReportTrackRepair(trackID string) bool {
	return e.setTrackStatus(trackID, topology.TrackOperational)
}

func (e *Engine) setTrackStatus(trackID, status string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.topo == nil || !e.topo.SetTrackStatus(trackID, status) {
		return false
	}
	e.pathCache = make(map[pathKey][]Point)
	return true
}

// State returns the engine-level view.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := State{
		Running:    e.clock.Running(),
		Multiplier: e.clock.Multiplier(),
		TrainCount: len(e.trains),
		Strategy:   e.strategy,
	}
	if at, ok := e.clock.Now(); ok {
		s.VirtualTime = &at
	}
	return s
}

// Snapshots returns a copy of every train's current snapshot.
func (e *Engine) Snapshots() []Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Snapshot, 0, len(e.trains))
	for _, st := range e.trains {
		out = append(out, st.snap)
	}
	return out
}

// Snapshot returns one train's current snapshot.
func (e *Engine) Snapshot(trainID string) (Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st, ok := e.byID[trainID]
	if !ok {
		return Snapshot{}, false
	}
	return st.snap, true
}

// Advance moves virtual time forward by a virtual duration and runs one
// tick. Single-step playback for tests and debugging.
func (e *Engine) Advance(d time.Duration) {
	e.clock.Advance(d)
}

// tick recomputes every train at the new virtual time. A failure on one
// train freezes that train at its last good snapshot and never aborts the
// tick for the others.
func (e *Engine) tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recomputeLocked(now)
}

func (e *Engine) recomputeLocked(now time.Time) {
	for _, st := range e.trains {
		snap, ok := e.resolveTrain(st.train, now)
		if !ok {
			continue
		}
		st.snap = snap
	}
}

// resolveTrain computes one train's full snapshot, coordinates included.
// Recovers from panics on unexpected data shapes so the caller can keep the
// prior snapshot.
func (e *Engine) resolveTrain(t schedule.Train, now time.Time) (snap Snapshot, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Engine: train %s tick failed, keeping last snapshot: %v", t.ID, r)
			ok = false
		}
	}()

	snap = ResolvePosition(t, now)
	points := e.pathPointsLocked(t)
	snap.Position = coordinate(snap, len(t.Route)-1, points)
	return snap, true
}

// pathPointsLocked resolves (and caches) a train's visual path coordinates,
// keyed by train, endpoints, and strategy.
func (e *Engine) pathPointsLocked(t schedule.Train) []Point {
	key := pathKey{
		trainID:  t.ID,
		from:     t.Origin().StationID,
		to:       t.Destination().StationID,
		strategy: e.strategy,
	}
	if points, hit := e.pathCache[key]; hit {
		return points
	}
	if e.topo == nil {
		return nil
	}

	points := PathPoints(ResolvePath(t, e.topo, e.strategy), e.topo)
	e.pathCache[key] = points
	return points
}

// coordinate maps a snapshot's leg progress onto the visual path. When the
// path aligns point-for-point with the route stops, interpolation happens
// inside the matching segment; otherwise the overall journey fraction is
// walked along the polyline by distance.
func coordinate(snap Snapshot, legs int, points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	if len(points) == 1 || legs < 1 {
		return points[0]
	}

	leg := snap.LegIndex
	progress := snap.Progress
	if snap.AtStation && !snap.HasCompleted {
		progress = 0
	}
	if snap.HasCompleted {
		return points[len(points)-1]
	}

	if len(points) == legs+1 {
		if leg >= legs {
			leg = legs - 1
		}
		return Lerp(points[leg], points[leg+1], Clamp(progress, 0, 1))
	}

	overall := (float64(leg) + Clamp(progress, 0, 1)) / float64(legs)
	return PointAlongPath(points, overall)
}

// earliestDeparture finds the initial virtual timestamp across a load.
func earliestDeparture(trains []schedule.Train) time.Time {
	var earliest time.Time
	for _, t := range trains {
		dep := t.FirstDeparture()
		if dep == nil {
			continue
		}
		if earliest.IsZero() || dep.Before(earliest) {
			earliest = *dep
		}
	}
	return earliest
}
