package topology

import (
	"reflect"
	"testing"
)

func newTestIndex() *Index {
	stations := []Station{
		{ID: "A", Name: "Alpha Central", X: 0, Y: 0, Category: CategoryTerminal},
		{ID: "B", Name: "Bravo Junction", X: 10, Y: 0, Category: CategoryJunction},
		{ID: "C", Name: "Charlie Town", X: 20, Y: 0, Category: CategoryDestination},
	}
	tracks := []Track{
		{ID: "T1", From: "A", To: "B", Status: TrackOperational, TravelTimeMin: 30, Priority: 2},
		{ID: "T1X", From: "A", To: "B", Status: TrackOperational, TravelTimeMin: 25, Priority: 1},
		{ID: "T2", From: "B", To: "C", Status: TrackOperational, TravelTimeMin: 28, Priority: 1},
		{ID: "TAC", From: "A", To: "C", Status: TrackDisabled, TravelTimeMin: 50, Priority: 1},
	}
	altRoutes := []AlternativeRouteRecord{
		{From: "A", To: "C", Primary: []string{"TAC"}, Alternatives: [][]string{{"T1", "T2"}}},
	}
	aliases := map[string]string{"ALF": "A"}
	return NewIndex(stations, tracks, altRoutes, nil, aliases)
}

func TestCanonicalNormalization(t *testing.T) {
	idx := newTestIndex()

	tests := []struct {
		in   string
		want string
	}{
		{"A", "A"},                // already canonical
		{"Alpha Central", "A"},    // display name
		{"alpha central", "A"},    // case-insensitive
		{"  Bravo Junction ", "B"}, // whitespace
		{"ALF", "A"},              // explicit alias
		{"GHOST", "GHOST"},        // unknown passes through
	}
	for _, tc := range tests {
		if got := idx.Canonical(tc.in); got != tc.want {
			t.Errorf("Canonical(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStationLookupThroughAlias(t *testing.T) {
	idx := newTestIndex()

	s, ok := idx.Station("Charlie Town")
	if !ok || s.ID != "C" {
		t.Errorf("Station by name failed, got %+v ok=%v", s, ok)
	}
	if _, ok := idx.Station("nowhere"); ok {
		t.Error("unknown station should not resolve")
	}
}

func TestDirectTrackOnlyOperational(t *testing.T) {
	idx := newTestIndex()

	if _, ok := idx.DirectTrack("A", "C"); ok {
		t.Error("disabled track must never count as direct")
	}

	tr, ok := idx.DirectTrack("A", "B")
	if !ok {
		t.Fatal("expected a direct A-B track")
	}
	if tr.ID != "T1X" {
		t.Errorf("direct track = %s, want the lower priority tier T1X", tr.ID)
	}

	// Both orientations resolve.
	if _, ok := idx.DirectTrack("B", "A"); !ok {
		t.Error("reverse orientation should find the same track")
	}
}

func TestDirectTrackAfterStatusChange(t *testing.T) {
	idx := newTestIndex()

	if !idx.SetTrackStatus("TAC", TrackOperational) {
		t.Fatal("SetTrackStatus should find TAC")
	}
	if _, ok := idx.DirectTrack("A", "C"); !ok {
		t.Error("repaired track should count as direct")
	}

	idx.SetTrackStatus("TAC", TrackMaintenance)
	if _, ok := idx.DirectTrack("A", "C"); ok {
		t.Error("maintenance track must not count as direct")
	}

	if idx.SetTrackStatus("ghost", TrackDisabled) {
		t.Error("unknown track should not update")
	}
}

func TestAlternativeChains(t *testing.T) {
	idx := newTestIndex()

	chains := idx.AlternativeChains("A", "C")
	want := [][]string{{"TAC"}, {"T1", "T2"}}
	if !reflect.DeepEqual(chains, want) {
		t.Errorf("chains = %v, want %v", chains, want)
	}

	// Reverse orientation finds the same record.
	if got := idx.AlternativeChains("C", "A"); !reflect.DeepEqual(got, want) {
		t.Errorf("reverse chains = %v, want %v", got, want)
	}

	if got := idx.AlternativeChains("A", "B"); got != nil {
		t.Errorf("unregistered pair should have no chains, got %v", got)
	}
}

func TestChainOperational(t *testing.T) {
	idx := newTestIndex()

	if idx.ChainOperational([]string{"TAC"}) {
		t.Error("chain with a disabled track is not operational")
	}
	if !idx.ChainOperational([]string{"T1", "T2"}) {
		t.Error("fully operational chain should pass")
	}
	if idx.ChainOperational(nil) {
		t.Error("empty chain is not operational")
	}
	if idx.ChainOperational([]string{"ghost"}) {
		t.Error("chain with an unknown track is not operational")
	}
}

func TestExpandChain(t *testing.T) {
	idx := newTestIndex()

	stations, ok := idx.ExpandChain("A", []string{"T1", "T2"})
	if !ok {
		t.Fatal("chain should expand")
	}
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(stations, want) {
		t.Errorf("stations = %v, want %v", stations, want)
	}

	// Walking from the far end traverses tracks in reverse orientation.
	stations, ok = idx.ExpandChain("C", []string{"T2", "T1"})
	if !ok || !reflect.DeepEqual(stations, []string{"C", "B", "A"}) {
		t.Errorf("reverse walk = %v ok=%v, want [C B A]", stations, ok)
	}

	if _, ok := idx.ExpandChain("C", []string{"T1"}); ok {
		t.Error("disconnected walk should fail")
	}
	if _, ok := idx.ExpandChain("A", []string{"ghost"}); ok {
		t.Error("unknown track should fail the walk")
	}
}

func TestCanonicalPathOrientation(t *testing.T) {
	idx := NewIndex(
		[]Station{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		nil, nil,
		[]CanonicalPathRecord{{From: "A", To: "C", Stations: []string{"A", "B", "C"}}},
		nil,
	)

	forward, ok := idx.CanonicalPath("A", "C")
	if !ok || !reflect.DeepEqual(forward, []string{"A", "B", "C"}) {
		t.Errorf("forward = %v ok=%v", forward, ok)
	}
	reverse, ok := idx.CanonicalPath("C", "A")
	if !ok || !reflect.DeepEqual(reverse, []string{"C", "B", "A"}) {
		t.Errorf("reverse = %v ok=%v", reverse, ok)
	}
	if _, ok := idx.CanonicalPath("A", "B"); ok {
		t.Error("unregistered pair should have no canonical path")
	}
}
