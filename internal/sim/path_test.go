package sim

import (
	"reflect"
	"testing"

	"github.com/railviz/engine/internal/schedule"
	"github.com/railviz/engine/internal/topology"
)

// testIndex builds a small network:
//
//	A --T1-- B --T2-- C      (operational)
//	A --T3-- D --T4-- B      (operational detour for A-B)
//	A ------TAC------ C      (direct, disabled)
func testIndex() *topology.Index {
	stations := []topology.Station{
		{ID: "A", Name: "Alpha Central", X: 0, Y: 0, Category: topology.CategoryTerminal},
		{ID: "B", Name: "Bravo Junction", X: 10, Y: 0, Category: topology.CategoryJunction},
		{ID: "C", Name: "Charlie Town", X: 20, Y: 0, Category: topology.CategoryDestination},
		{ID: "D", Name: "Delta Halt", X: 5, Y: 5, Category: topology.CategorySmall},
	}
	tracks := []topology.Track{
		{ID: "T1", From: "A", To: "B", Status: topology.TrackOperational, TravelTimeMin: 30, Priority: 1},
		{ID: "T2", From: "B", To: "C", Status: topology.TrackOperational, TravelTimeMin: 28, Priority: 1},
		{ID: "T3", From: "A", To: "D", Status: topology.TrackOperational, TravelTimeMin: 20, Priority: 2},
		{ID: "T4", From: "D", To: "B", Status: topology.TrackOperational, TravelTimeMin: 20, Priority: 2},
		{ID: "TAC", From: "A", To: "C", Status: topology.TrackDisabled, TravelTimeMin: 50, Priority: 1},
	}
	altRoutes := []topology.AlternativeRouteRecord{
		{From: "A", To: "C", Primary: []string{"TAC"}, Alternatives: [][]string{{"T1", "T2"}}},
		{From: "A", To: "B", Primary: []string{"T1"}, Alternatives: [][]string{{"T3", "T4"}}},
	}
	canonical := []topology.CanonicalPathRecord{
		{From: "A", To: "C", Stations: []string{"A", "B", "C"}},
	}
	return topology.NewIndex(stations, tracks, altRoutes, canonical, nil)
}

func twoStopTrain(from, to string) schedule.Train {
	return schedule.Train{
		ID: "P-1",
		Route: schedule.Route{
			{StationID: from, IsOrigin: true},
			{StationID: to, IsDestination: true},
		},
	}
}

func TestResolvePathExplicitPathWins(t *testing.T) {
	idx := testIndex()
	train := twoStopTrain("A", "C")
	train.VisualPath = []string{"Alpha Central", "D", "B", "C"}

	got := ResolvePath(train, idx, StrategyThroughput)
	want := []string{"A", "D", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolvePathUsesMultiStopRoute(t *testing.T) {
	idx := testIndex()
	train := schedule.Train{
		ID: "P-2",
		Route: schedule.Route{
			{StationID: "Alpha Central", IsOrigin: true},
			{StationID: "B"},
			{StationID: "C", IsDestination: true},
		},
	}

	got := ResolvePath(train, idx, StrategyBalanced)
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolvePathThroughputSkipsDisabledDirect(t *testing.T) {
	idx := testIndex()

	// The only direct A-C track is disabled; the viable alternative chain
	// must win, never the disabled track.
	got := ResolvePath(twoStopTrain("A", "C"), idx, StrategyThroughput)
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolvePathThroughputPrefersDirect(t *testing.T) {
	idx := testIndex()

	got := ResolvePath(twoStopTrain("A", "B"), idx, StrategyThroughput)
	want := []string{"A", "B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolvePathPunctualityPrefersAlternative(t *testing.T) {
	idx := testIndex()

	// Direct A-B exists and is operational, but punctuality prefers the
	// registered multi-hop chain.
	got := ResolvePath(twoStopTrain("A", "B"), idx, StrategyPunctuality)
	want := []string{"A", "D", "B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolvePathPunctualityFallsBackToDirect(t *testing.T) {
	idx := testIndex()
	idx.SetTrackStatus("T4", topology.TrackDisabled)

	// With the only multi-hop chain broken, punctuality degrades to the
	// direct track instead of the dead detour.
	got := ResolvePath(twoStopTrain("A", "B"), idx, StrategyPunctuality)
	want := []string{"A", "B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolvePathBalancedUsesCanonicalRoute(t *testing.T) {
	idx := testIndex()

	got := ResolvePath(twoStopTrain("A", "C"), idx, StrategyBalanced)
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// Reverse orientation resolves the same route reversed.
	got = ResolvePath(twoStopTrain("C", "A"), idx, StrategyBalanced)
	want = []string{"C", "B", "A"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("reverse: got %v, want %v", got, want)
	}
}

func TestResolvePathStraightLineFallback(t *testing.T) {
	idx := testIndex()

	// D and C share no track, chain, or canonical route; the path degrades
	// to the straight two-station line rather than disappearing.
	got := ResolvePath(twoStopTrain("D", "C"), idx, StrategyBalanced)
	want := []string{"D", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolvePathAfterTrackRepair(t *testing.T) {
	idx := testIndex()
	idx.SetTrackStatus("TAC", topology.TrackOperational)

	got := ResolvePath(twoStopTrain("A", "C"), idx, StrategyThroughput)
	want := []string{"A", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"balanced", StrategyBalanced},
		{"punctuality", StrategyPunctuality},
		{"throughput", StrategyThroughput},
		{"", StrategyBalanced},
		{"nonsense", StrategyBalanced},
	}
	for _, tc := range tests {
		if got := ParseStrategy(tc.in); got != tc.want {
			t.Errorf("ParseStrategy(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestPathPointsSkipsUnknownStations(t *testing.T) {
	idx := testIndex()

	points := PathPoints([]string{"A", "GHOST", "B"}, idx)
	want := []Point{{X: 0, Y: 0}, {X: 10, Y: 0}}
	if !reflect.DeepEqual(points, want) {
		t.Errorf("got %v, want %v", points, want)
	}
}
