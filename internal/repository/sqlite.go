package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/railviz/engine/internal/schedule"
	"github.com/railviz/engine/internal/topology"

	_ "modernc.org/sqlite"
)

// Expected schema:
//
//	stations(id, name, x, y, category)
//	tracks(id, from_station, to_station, status, travel_time_min, priority)
//	alternative_routes(from_station, to_station, primary_chain, alternative_chains)  -- chains as JSON
//	canonical_paths(from_station, to_station, stations)                              -- stations as JSON
//	station_aliases(alias, station_id)
//	trains(id, name, type, priority, delay_min, visual_path)                         -- path as JSON
//	train_stops(train_id, seq, station, arrival, departure, dwell_min, platform)

// SQLiteStore loads datasets from a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the dataset database read-only for the engine's purposes.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal=WAL&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadDataset reads the full simulation dataset.
func (s *SQLiteStore) LoadDataset(ctx context.Context) (Dataset, error) {
	var ds Dataset
	var err error

	if ds.Stations, err = s.loadStations(ctx); err != nil {
		return Dataset{}, err
	}
	if ds.Tracks, err = s.loadTracks(ctx); err != nil {
		return Dataset{}, err
	}
	if ds.AlternativeRoutes, err = s.loadAlternativeRoutes(ctx); err != nil {
		return Dataset{}, err
	}
	if ds.CanonicalPaths, err = s.loadCanonicalPaths(ctx); err != nil {
		return Dataset{}, err
	}
	if ds.Aliases, err = s.loadAliases(ctx); err != nil {
		return Dataset{}, err
	}
	if ds.Trains, err = s.loadTrains(ctx); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

func (s *SQLiteStore) loadStations(ctx context.Context) ([]topology.Station, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, x, y, category
		FROM stations
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []topology.Station
	for rows.Next() {
		var st topology.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.X, &st.Y, &st.Category); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

func (s *SQLiteStore) loadTracks(ctx context.Context) ([]topology.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_station, to_station, status, travel_time_min, priority
		FROM tracks
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []topology.Track
	for rows.Next() {
		var t topology.Track
		if err := rows.Scan(&t.ID, &t.From, &t.To, &t.Status, &t.TravelTimeMin, &t.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func (s *SQLiteStore) loadAlternativeRoutes(ctx context.Context) ([]topology.AlternativeRouteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_station, to_station, primary_chain, alternative_chains
		FROM alternative_routes
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alternative routes: %w", err)
	}
	defer rows.Close()

	var routes []topology.AlternativeRouteRecord
	for rows.Next() {
		var rec topology.AlternativeRouteRecord
		var primaryJSON, alternativesJSON string
		if err := rows.Scan(&rec.From, &rec.To, &primaryJSON, &alternativesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan alternative route: %w", err)
		}
		if err := json.Unmarshal([]byte(primaryJSON), &rec.Primary); err != nil {
			return nil, fmt.Errorf("bad primary chain for %s-%s: %w", rec.From, rec.To, err)
		}
		if alternativesJSON != "" {
			if err := json.Unmarshal([]byte(alternativesJSON), &rec.Alternatives); err != nil {
				return nil, fmt.Errorf("bad alternative chains for %s-%s: %w", rec.From, rec.To, err)
			}
		}
		routes = append(routes, rec)
	}
	return routes, rows.Err()
}

func (s *SQLiteStore) loadCanonicalPaths(ctx context.Context) ([]topology.CanonicalPathRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_station, to_station, stations
		FROM canonical_paths
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query canonical paths: %w", err)
	}
	defer rows.Close()

	var paths []topology.CanonicalPathRecord
	for rows.Next() {
		var rec topology.CanonicalPathRecord
		var stationsJSON string
		if err := rows.Scan(&rec.From, &rec.To, &stationsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan canonical path: %w", err)
		}
		if err := json.Unmarshal([]byte(stationsJSON), &rec.Stations); err != nil {
			return nil, fmt.Errorf("bad canonical path for %s-%s: %w", rec.From, rec.To, err)
		}
		paths = append(paths, rec)
	}
	return paths, rows.Err()
}

func (s *SQLiteStore) loadAliases(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alias, station_id
		FROM station_aliases
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer rows.Close()

	aliases := make(map[string]string)
	for rows.Next() {
		var alias, stationID string
		if err := rows.Scan(&alias, &stationID); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases[alias] = stationID
	}
	return aliases, rows.Err()
}

func (s *SQLiteStore) loadTrains(ctx context.Context) ([]schedule.RawTrain, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, priority, delay_min, visual_path
		FROM trains
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trains: %w", err)
	}
	defer rows.Close()

	var trains []schedule.RawTrain
	for rows.Next() {
		var raw schedule.RawTrain
		var pathJSON *string
		if err := rows.Scan(&raw.ID, &raw.Name, &raw.Type, &raw.Priority, &raw.DelayMinutes, &pathJSON); err != nil {
			return nil, fmt.Errorf("failed to scan train: %w", err)
		}
		if pathJSON != nil && *pathJSON != "" {
			if err := json.Unmarshal([]byte(*pathJSON), &raw.VisualPath); err != nil {
				return nil, fmt.Errorf("bad visual path for train %s: %w", raw.ID, err)
			}
		}
		trains = append(trains, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range trains {
		stops, err := s.loadStops(ctx, trains[i].ID)
		if err != nil {
			return nil, err
		}
		trains[i].Stops = stops
	}
	return trains, nil
}

func (s *SQLiteStore) loadStops(ctx context.Context, trainID string) ([]schedule.RawStop, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT station, COALESCE(arrival, ''), COALESCE(departure, ''), dwell_min, COALESCE(platform, '')
		FROM train_stops
		WHERE train_id = ?
		ORDER BY seq
	`, trainID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stops for train %s: %w", trainID, err)
	}
	defer rows.Close()

	var stops []schedule.RawStop
	for rows.Next() {
		var st schedule.RawStop
		if err := rows.Scan(&st.Station, &st.Arrival, &st.Departure, &st.DwellMinutes, &st.Platform); err != nil {
			return nil, fmt.Errorf("failed to scan stop: %w", err)
		}
		stops = append(stops, st)
	}
	return stops, rows.Err()
}
