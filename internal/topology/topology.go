// Package topology holds the static network model: stations, tracks, and the
// alternative-route table. An Index is built once per simulation load and is
// read-only during a run, except for track status changes reported by the
// failure/repair endpoints, which become visible on the next tick.
package topology

import (
	"strings"
	"sync"
)

// Station categories.
const (
	CategoryJunction     = "junction"
	CategoryTerminal     = "terminal"
	CategoryIntermediate = "intermediate"
	CategorySmall        = "small"
	CategoryDestination  = "destination"
)

// Track operational statuses.
const (
	TrackOperational = "operational"
	TrackDisabled    = "disabled"
	TrackMaintenance = "maintenance"
)

// Station is a node in the network with 2D render coordinates.
type Station struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Category string  `json:"category"`
}

// Track is an edge between two stations.
type Track struct {
	ID            string  `json:"id"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	Status        string  `json:"status"`
	TravelTimeMin float64 `json:"travelTimeMin"`
	Priority      int     `json:"priority"`
}

// AlternativeRouteRecord is the load-time shape of one alternative-route
// table entry: an ordered station pair mapped to a primary chain of track IDs
// and zero or more alternative chains.
type AlternativeRouteRecord struct {
	From         string     `json:"from"`
	To           string     `json:"to"`
	Primary      []string   `json:"primary"`
	Alternatives [][]string `json:"alternatives"`
}

// CanonicalPathRecord is a well-known multi-hop visual route between a
// station pair, used by the balanced routing strategy.
type CanonicalPathRecord struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Stations []string `json:"stations"`
}

type pairKey struct {
	from string
	to   string
}

// Index is the read-mostly lookup structure over a loaded network.
type Index struct {
	mu sync.RWMutex

	stations     map[string]Station
	tracks       map[string]Track
	byEndpoints  map[pairKey][]string // station pair -> track IDs, both orientations
	alternatives map[pairKey]AlternativeRouteRecord
	canonical    map[pairKey][]string
	aliases      map[string]string
}

// NewIndex builds an Index from loaded network data. Station display names
// and any explicit aliases are folded into a single alias table so that
// schedule data referring to a station by name resolves to its code.
func NewIndex(stations []Station, tracks []Track, altRoutes []AlternativeRouteRecord, canonicalPaths []CanonicalPathRecord, aliases map[string]string) *Index {
	idx := &Index{
		stations:     make(map[string]Station, len(stations)),
		tracks:       make(map[string]Track, len(tracks)),
		byEndpoints:  make(map[pairKey][]string),
		alternatives: make(map[pairKey]AlternativeRouteRecord, len(altRoutes)),
		canonical:    make(map[pairKey][]string, len(canonicalPaths)),
		aliases:      make(map[string]string),
	}

	for _, s := range stations {
		idx.stations[s.ID] = s
		if s.Name != "" {
			idx.aliases[aliasKey(s.Name)] = s.ID
		}
	}
	for alias, id := range aliases {
		idx.aliases[aliasKey(alias)] = id
	}

	for _, t := range tracks {
		idx.tracks[t.ID] = t
		k := pairKey{t.From, t.To}
		idx.byEndpoints[k] = append(idx.byEndpoints[k], t.ID)
		r := pairKey{t.To, t.From}
		idx.byEndpoints[r] = append(idx.byEndpoints[r], t.ID)
	}

	for _, ar := range altRoutes {
		idx.alternatives[pairKey{ar.From, ar.To}] = ar
	}
	for _, cp := range canonicalPaths {
		if len(cp.Stations) >= 2 {
			idx.canonical[pairKey{cp.From, cp.To}] = cp.Stations
		}
	}

	return idx
}

func aliasKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Canonical normalizes a station identifier arriving from schedule data.
// Identifiers already matching a known station code pass through unchanged;
// otherwise the alias table (display names plus explicit aliases) is
// consulted. Unknown identifiers are returned as-is so callers can still
// degrade to a straight-line path.
func (idx *Index) Canonical(id string) string {
	id = strings.TrimSpace(id)
	if _, ok := idx.stations[id]; ok {
		return id
	}
	if code, ok := idx.aliases[aliasKey(id)]; ok {
		return code
	}
	return id
}

// Station returns a station by canonical or aliased identifier.
func (idx *Index) Station(id string) (Station, bool) {
	s, ok := idx.stations[idx.Canonical(id)]
	return s, ok
}

// Stations returns the number of stations in the index.
func (idx *Index) Stations() int {
	return len(idx.stations)
}

// Track returns a track by identifier with its current status.
func (idx *Index) Track(id string) (Track, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	t, ok := idx.tracks[id]
	return t, ok
}

// DirectTrack returns an operational track directly connecting the two
// stations, preferring the lowest priority tier. Disabled and maintenance
// tracks never qualify.
func (idx *Index) DirectTrack(from, to string) (Track, bool) {
	from, to = idx.Canonical(from), idx.Canonical(to)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var best Track
	found := false
	for _, id := range idx.byEndpoints[pairKey{from, to}] {
		t := idx.tracks[id]
		if t.Status != TrackOperational {
			continue
		}
		if !found || t.Priority < best.Priority {
			best = t
			found = true
		}
	}
	return best, found
}

// AlternativeChains returns every chain registered for the station pair,
// primary first, checking both orientations of the pair.
func (idx *Index) AlternativeChains(from, to string) [][]string {
	from, to = idx.Canonical(from), idx.Canonical(to)

	rec, ok := idx.alternatives[pairKey{from, to}]
	if !ok {
		rec, ok = idx.alternatives[pairKey{to, from}]
		if !ok {
			return nil
		}
	}

	chains := make([][]string, 0, 1+len(rec.Alternatives))
	if len(rec.Primary) > 0 {
		chains = append(chains, rec.Primary)
	}
	chains = append(chains, rec.Alternatives...)
	return chains
}

// ChainOperational reports whether every track in the chain exists and is
// operational.
func (idx *Index) ChainOperational(chain []string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(chain) == 0 {
		return false
	}
	for _, id := range chain {
		t, ok := idx.tracks[id]
		if !ok || t.Status != TrackOperational {
			return false
		}
	}
	return true
}

// ExpandChain walks a chain of track IDs starting at the given station and
// returns the visited station sequence. Returns false if the chain does not
// form a connected walk from the start station.
func (idx *Index) ExpandChain(from string, chain []string) ([]string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	current := idx.Canonical(from)
	stations := []string{current}
	for _, id := range chain {
		t, ok := idx.tracks[id]
		if !ok {
			return nil, false
		}
		switch current {
		case t.From:
			current = t.To
		case t.To:
			current = t.From
		default:
			return nil, false
		}
		stations = append(stations, current)
	}
	if len(stations) < 2 {
		return nil, false
	}
	return stations, true
}

// CanonicalPath returns the well-known multi-hop visual route for the pair,
// if one is registered, checking both orientations (the reverse orientation
// is returned reversed).
func (idx *Index) CanonicalPath(from, to string) ([]string, bool) {
	from, to = idx.Canonical(from), idx.Canonical(to)

	if p, ok := idx.canonical[pairKey{from, to}]; ok {
		out := make([]string, len(p))
		copy(out, p)
		return out, true
	}
	if p, ok := idx.canonical[pairKey{to, from}]; ok {
		out := make([]string, len(p))
		for i, s := range p {
			out[len(p)-1-i] = s
		}
		return out, true
	}
	return nil, false
}

// SetTrackStatus updates a track's operational status. Used by the external
// failure/repair collaborator; the change takes effect on the next tick.
func (idx *Index) SetTrackStatus(id, status string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	t, ok := idx.tracks[id]
	if !ok {
		return false
	}
	t.Status = status
	idx.tracks[id] = t
	return true
}
