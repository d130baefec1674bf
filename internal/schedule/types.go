package schedule

import "time"

// RouteStop is one stop of a canonical route. Arrival and Departure are nil
// where the input carried no usable timestamp and none could be derived; the
// first stop never has an arrival and the last never has a departure.
type RouteStop struct {
	StationID     string     `json:"stationId"`
	Arrival       *time.Time `json:"arrival,omitempty"`
	Departure     *time.Time `json:"departure,omitempty"`
	DwellMinutes  float64    `json:"dwellMinutes"`
	Platform      string     `json:"platform,omitempty"`
	IsOrigin      bool       `json:"isOrigin"`
	IsDestination bool       `json:"isDestination"`
}

// Route is the canonical ordered stop sequence; always length >= 2 after
// normalization.
type Route []RouteStop

// Train is a normalized train: its canonical route with the reported delay
// already folded into every timestamp.
type Train struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Priority     int      `json:"priority"`
	DelayMinutes int      `json:"delayMinutes"`
	Route        Route    `json:"route"`
	VisualPath   []string `json:"visualPath,omitempty"`
}

// Origin returns the first stop of the route.
func (t Train) Origin() RouteStop { return t.Route[0] }

// Destination returns the last stop of the route.
func (t Train) Destination() RouteStop { return t.Route[len(t.Route)-1] }

// FirstDeparture returns the origin departure, or nil when the route has no
// usable origin timestamp.
func (t Train) FirstDeparture() *time.Time {
	if len(t.Route) == 0 {
		return nil
	}
	return t.Route[0].Departure
}

// WithDelay returns a copy of the train with every timestamp shifted so the
// cumulative delay equals minutes. Shifting is relative to the delay already
// applied, so repeated reports of the same delay are idempotent.
func (t Train) WithDelay(minutes int) Train {
	if minutes < 0 {
		minutes = 0
	}
	delta := time.Duration(minutes-t.DelayMinutes) * time.Minute
	out := t
	out.DelayMinutes = minutes
	out.Route = make(Route, len(t.Route))
	for i, stop := range t.Route {
		s := stop
		if s.Arrival != nil {
			shifted := s.Arrival.Add(delta)
			s.Arrival = &shifted
		}
		if s.Departure != nil {
			shifted := s.Departure.Add(delta)
			s.Departure = &shifted
		}
		out.Route[i] = s
	}
	return out
}

// RawStop is one stop of a multi-stop raw schedule record. Timestamps are
// strings because upstream sources mix RFC3339, date-time, and bare clock
// forms; unparseable values are treated as missing, not fatal.
type RawStop struct {
	Station      string  `json:"station"`
	Arrival      string  `json:"arrivalTime,omitempty"`
	Departure    string  `json:"departureTime,omitempty"`
	DwellMinutes float64 `json:"stopDuration,omitempty"`
	Platform     string  `json:"platform,omitempty"`
}

// RawSection is the legacy single-leg shape: one start/end station pair.
type RawSection struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RawTrain is one raw schedule record as supplied by the dashboard backend,
// either multi-stop (Stops set) or legacy (Section plus the record-level
// departure/arrival pair).
type RawTrain struct {
	ID           string      `json:"id,omitempty"`
	Name         string      `json:"name,omitempty"`
	Type         string      `json:"type,omitempty"`
	Priority     int         `json:"priority,omitempty"`
	DelayMinutes float64     `json:"delay,omitempty"`
	Stops        []RawStop   `json:"route,omitempty"`
	VisualPath   []string    `json:"path,omitempty"`
	Section      *RawSection `json:"section,omitempty"`
	Departure    string      `json:"departureTime,omitempty"`
	Arrival      string      `json:"arrivalTime,omitempty"`
}
