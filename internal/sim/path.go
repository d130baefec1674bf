package sim

import (
	"github.com/railviz/engine/internal/schedule"
	"github.com/railviz/engine/internal/topology"
)

// Strategy is the closed routing-preference tag influencing visual path
// selection only.
type Strategy string

const (
	StrategyBalanced    Strategy = "balanced"
	StrategyPunctuality Strategy = "punctuality"
	StrategyThroughput  Strategy = "throughput"
)

// ParseStrategy maps an external strategy hint onto the closed enum,
// defaulting to balanced.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyPunctuality:
		return StrategyPunctuality
	case StrategyThroughput:
		return StrategyThroughput
	default:
		return StrategyBalanced
	}
}

// ResolvePath derives the ordered station sequence a train is drawn
// following. Selection order: an explicit path on the record, then the
// route's own stop sequence when it has intermediate stops, then a
// strategy-derived path between the endpoints, and finally the straight
// two-station line, so the visualization is never path-less.
func ResolvePath(t schedule.Train, idx *topology.Index, strategy Strategy) []string {
	if len(t.VisualPath) >= 2 {
		return canonicalize(t.VisualPath, idx)
	}

	if len(t.Route) > 2 {
		stations := make([]string, len(t.Route))
		for i, stop := range t.Route {
			stations[i] = idx.Canonical(stop.StationID)
		}
		return stations
	}

	from := idx.Canonical(t.Origin().StationID)
	to := idx.Canonical(t.Destination().StationID)

	if path := strategyPath(from, to, idx, strategy); len(path) >= 2 {
		return path
	}
	return []string{from, to}
}

func canonicalize(stations []string, idx *topology.Index) []string {
	out := make([]string, len(stations))
	for i, s := range stations {
		out[i] = idx.Canonical(s)
	}
	return out
}

func strategyPath(from, to string, idx *topology.Index, strategy Strategy) []string {
	switch strategy {
	case StrategyThroughput:
		// Direct operational track wins; a disabled or maintenance track is
		// never treated as traversable.
		if _, ok := idx.DirectTrack(from, to); ok {
			return []string{from, to}
		}
		return operationalChainPath(from, to, idx)

	case StrategyPunctuality:
		// A registered multi-hop detour wins over the direct track. The
		// primary chain for a pair is often the direct track itself, so only
		// expansions with an intermediate station count as detours here.
		if path := operationalDetourPath(from, to, idx); path != nil {
			return path
		}
		if _, ok := idx.DirectTrack(from, to); ok {
			return []string{from, to}
		}
		return operationalChainPath(from, to, idx)

	default:
		if path, ok := idx.CanonicalPath(from, to); ok {
			return canonicalize(path, idx)
		}
		if _, ok := idx.DirectTrack(from, to); ok {
			return []string{from, to}
		}
		return operationalChainPath(from, to, idx)
	}
}

// operationalChainPath expands the first fully operational chain registered
// for the pair into its station sequence.
func operationalChainPath(from, to string, idx *topology.Index) []string {
	return chainPath(from, to, idx, 2)
}

// operationalDetourPath is like operationalChainPath but only accepts chains
// that pass through at least one intermediate station.
func operationalDetourPath(from, to string, idx *topology.Index) []string {
	return chainPath(from, to, idx, 3)
}

func chainPath(from, to string, idx *topology.Index, minStations int) []string {
	for _, chain := range idx.AlternativeChains(from, to) {
		if !idx.ChainOperational(chain) {
			continue
		}
		stations, ok := idx.ExpandChain(from, chain)
		if !ok || stations[len(stations)-1] != to || len(stations) < minStations {
			continue
		}
		return stations
	}
	return nil
}

// PathPoints maps a station sequence onto render coordinates, skipping
// stations missing from the topology.
func PathPoints(stations []string, idx *topology.Index) []Point {
	points := make([]Point, 0, len(stations))
	for _, id := range stations {
		if s, ok := idx.Station(id); ok {
			points = append(points, Point{X: s.X, Y: s.Y})
		}
	}
	return points
}
