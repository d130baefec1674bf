// Package repository loads simulation datasets (network topology plus raw
// schedules) from SQLite or Postgres. Both backends return the same Dataset
// shape, and the HTTP load endpoint accepts it directly as JSON, so a
// database is optional.
package repository

import (
	"github.com/railviz/engine/internal/schedule"
	"github.com/railviz/engine/internal/topology"
)

// Dataset is everything one simulation load needs.
type Dataset struct {
	Stations          []topology.Station                `json:"stations"`
	Tracks            []topology.Track                  `json:"tracks"`
	AlternativeRoutes []topology.AlternativeRouteRecord `json:"alternativeRoutes,omitempty"`
	CanonicalPaths    []topology.CanonicalPathRecord    `json:"canonicalPaths,omitempty"`
	Aliases           map[string]string                 `json:"aliases,omitempty"`
	Trains            []schedule.RawTrain               `json:"trains"`
}

// BuildIndex assembles the topology index for this dataset.
func (d Dataset) BuildIndex() *topology.Index {
	return topology.NewIndex(d.Stations, d.Tracks, d.AlternativeRoutes, d.CanonicalPaths, d.Aliases)
}
