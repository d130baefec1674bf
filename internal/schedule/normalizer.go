// Package schedule normalizes heterogeneous raw schedule records into the
// canonical multi-stop route model the simulation engine runs on.
package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

const (
	// Synthesized spacing between consecutive stops when a record carries no
	// usable timing at all, so every leg still has a computable duration.
	syntheticLegMinutes = 30

	// Default dwell used when a stop declares none.
	defaultDwellMinutes = 2
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"15:04:05",
	"15:04",
}

// ParseTimestamp parses a schedule timestamp in any of the accepted layouts.
// Bare clock values are anchored to ref's date. Returns nil for empty or
// unparseable input; timestamp problems are never fatal here.
func ParseTimestamp(s string, ref time.Time) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if layout == "15:04" || layout == "15:04:05" {
			t = time.Date(ref.Year(), ref.Month(), ref.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, ref.Location())
		}
		return &t
	}
	return nil
}

// Normalize converts one raw record into a canonical Train. Multi-stop
// records take precedence over the legacy single-section shape. Missing
// timestamps are back-filled so the output always satisfies: route length
// >= 2, first stop departure-only, last stop arrival-only, and a positive
// reported delay shifted uniformly into every timestamp.
func Normalize(raw RawTrain, ref time.Time) (Train, error) {
	var route Route
	switch {
	case len(raw.Stops) >= 2:
		route = normalizeStops(raw.Stops, ref)
	case len(raw.Stops) == 1:
		return Train{}, fmt.Errorf("train %q: route has a single stop", raw.ID)
	case raw.Section != nil:
		var err error
		route, err = expandLegacy(raw, ref)
		if err != nil {
			return Train{}, err
		}
	default:
		return Train{}, errors.New("record has neither stops nor a legacy section")
	}

	id := raw.ID
	if id == "" {
		id = uuid.NewString()
	}

	t := Train{
		ID:         id,
		Name:       raw.Name,
		Type:       raw.Type,
		Priority:   raw.Priority,
		Route:      route,
		VisualPath: append([]string(nil), raw.VisualPath...),
	}

	if d := int(raw.DelayMinutes); d > 0 {
		t = t.WithDelay(d)
	}
	return t, nil
}

// NormalizeAll normalizes a batch, skipping individually malformed records
// so one bad record never sinks a load.
func NormalizeAll(records []RawTrain, ref time.Time) []Train {
	trains := make([]Train, 0, len(records))
	for i, raw := range records {
		t, err := Normalize(raw, ref)
		if err != nil {
			log.Printf("Schedule: skipping record %d: %v", i, err)
			continue
		}
		trains = append(trains, t)
	}
	return trains
}

// DecodePlan decodes an externally computed schedule, which arrives either
// as an array of schedule-shaped records or as a legacy map keyed by train
// identifier.
func DecodePlan(data []byte) ([]RawTrain, error) {
	var records []RawTrain
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var byID map[string]RawTrain
	if err := json.Unmarshal(data, &byID); err != nil {
		return nil, fmt.Errorf("plan is neither a record array nor a train map: %w", err)
	}
	records = make([]RawTrain, 0, len(byID))
	for id, raw := range byID {
		if raw.ID == "" {
			raw.ID = id
		}
		records = append(records, raw)
	}
	return records, nil
}

func dwellOf(s RawStop) float64 {
	if s.DwellMinutes > 0 {
		return s.DwellMinutes
	}
	return defaultDwellMinutes
}

// normalizeStops parses each stop's timestamps and back-fills the gaps.
func normalizeStops(stops []RawStop, ref time.Time) Route {
	last := len(stops) - 1
	route := make(Route, len(stops))
	for i, rs := range stops {
		route[i] = RouteStop{
			StationID:     rs.Station,
			Arrival:       ParseTimestamp(rs.Arrival, ref),
			Departure:     ParseTimestamp(rs.Departure, ref),
			DwellMinutes:  dwellOf(rs),
			Platform:      rs.Platform,
			IsOrigin:      i == 0,
			IsDestination: i == last,
		}
	}

	start := routeStart(route, ref)

	for i := range route {
		stop := &route[i]
		dwell := time.Duration(stop.DwellMinutes * float64(time.Minute))

		if stop.Arrival == nil && stop.Departure == nil {
			// Both missing: synthesize from the route start with fixed
			// spacing so the leg durations stay computable.
			arr := start.Add(time.Duration(i) * syntheticLegMinutes * time.Minute)
			dep := arr.Add(dwell)
			stop.Arrival, stop.Departure = &arr, &dep
		} else if stop.Arrival == nil {
			arr := stop.Departure.Add(-dwell)
			stop.Arrival = &arr
		} else if stop.Departure == nil {
			dep := stop.Arrival.Add(dwell)
			stop.Departure = &dep
		}

		if stop.IsOrigin {
			stop.Arrival = nil
		}
		if stop.IsDestination {
			stop.Departure = nil
		}
	}

	clampMonotonic(route)
	return route
}

// clampMonotonic forces the route's timestamps onto a non-decreasing
// timeline. Synthesized times anchored at the route start can otherwise land
// past a later stop's explicit timestamp.
func clampMonotonic(route Route) {
	var prev time.Time
	for i := range route {
		stop := &route[i]
		if stop.Arrival != nil {
			if stop.Arrival.Before(prev) {
				a := prev
				stop.Arrival = &a
			}
			prev = *stop.Arrival
		}
		if stop.Departure != nil {
			if stop.Departure.Before(prev) {
				d := prev
				stop.Departure = &d
			}
			prev = *stop.Departure
		}
	}
}

// routeStart picks the anchor timestamp for synthesized times: the first
// parseable departure or arrival, or ref when the record has no timing.
func routeStart(route Route, ref time.Time) time.Time {
	for _, stop := range route {
		if stop.Departure != nil {
			return *stop.Departure
		}
		if stop.Arrival != nil {
			return *stop.Arrival
		}
	}
	return ref
}

// expandLegacy turns the legacy single-section shape into a synthetic
// two-stop route.
func expandLegacy(raw RawTrain, ref time.Time) (Route, error) {
	if raw.Section.Start == "" || raw.Section.End == "" {
		return nil, fmt.Errorf("train %q: legacy section is missing a station", raw.ID)
	}

	dep := ParseTimestamp(raw.Departure, ref)
	if dep == nil {
		d := ref
		dep = &d
	}
	arr := ParseTimestamp(raw.Arrival, ref)
	if arr == nil || !arr.After(*dep) {
		a := dep.Add(syntheticLegMinutes * time.Minute)
		arr = &a
	}

	return Route{
		{
			StationID:    raw.Section.Start,
			Departure:    dep,
			DwellMinutes: defaultDwellMinutes,
			IsOrigin:     true,
		},
		{
			StationID:     raw.Section.End,
			Arrival:       arr,
			DwellMinutes:  defaultDwellMinutes,
			IsDestination: true,
		},
	}, nil
}
