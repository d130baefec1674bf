package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/railviz/engine/internal/schedule"
	"github.com/railviz/engine/internal/topology"
)

// PostgresStore loads datasets from Postgres. Same schema as the SQLite
// backend, JSON chain columns as jsonb.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the dataset database.
func OpenPostgres(databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// LoadDataset reads the full simulation dataset.
func (s *PostgresStore) LoadDataset(ctx context.Context) (Dataset, error) {
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

func (s *PostgresStore) loadStations(ctx context.Context) ([]topology.Station, error) {
	rows, err := s.pool.Query(ctx, `
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

func (s *PostgresStore) loadTracks(ctx context.Context) ([]topology.Track, error) {
	rows, err := s.pool.Query(ctx, `
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

func (s *PostgresStore) loadAlternativeRoutes(ctx context.Context) ([]topology.AlternativeRouteRecord, error) {
	rows, err := s.pool.Query(ctx, `
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
		var primaryJSON, alternativesJSON []byte
		if err := rows.Scan(&rec.From, &rec.To, &primaryJSON, &alternativesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan alternative route: %w", err)
		}
		if err := json.Unmarshal(primaryJSON, &rec.Primary); err != nil {
			return nil, fmt.Errorf("bad primary chain for %s-%s: %w", rec.From, rec.To, err)
		}
		if len(alternativesJSON) > 0 {
			if err := json.Unmarshal(alternativesJSON, &rec.Alternatives); err != nil {
				return nil, fmt.Errorf("bad alternative chains for %s-%s: %w", rec.From, rec.To, err)
			}
		}
		routes = append(routes, rec)
	}
	return routes, rows.Err()
}

func (s *PostgresStore) loadCanonicalPaths(ctx context.Context) ([]topology.CanonicalPathRecord, error) {
	rows, err := s.pool.Query(ctx, `
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
		var stationsJSON []byte
		if err := rows.Scan(&rec.From, &rec.To, &stationsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan canonical path: %w", err)
		}
		if err := json.Unmarshal(stationsJSON, &rec.Stations); err != nil {
			return nil, fmt.Errorf("bad canonical path for %s-%s: %w", rec.From, rec.To, err)
		}
		paths = append(paths, rec)
	}
	return paths, rows.Err()
}

func (s *PostgresStore) loadAliases(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `
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

func (s *PostgresStore) loadTrains(ctx context.Context) ([]schedule.RawTrain, error) {
	rows, err := s.pool.Query(ctx, `
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
		var pathJSON []byte
		if err := rows.Scan(&raw.ID, &raw.Name, &raw.Type, &raw.Priority, &raw.DelayMinutes, &pathJSON); err != nil {
			return nil, fmt.Errorf("failed to scan train: %w", err)
		}
		if len(pathJSON) > 0 {
			if err := json.Unmarshal(pathJSON, &raw.VisualPath); err != nil {
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

func (s *PostgresStore) loadStops(ctx context.Context, trainID string) ([]schedule.RawStop, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT station, COALESCE(arrival, ''), COALESCE(departure, ''), dwell_min, COALESCE(platform, '')
		FROM train_stops
		WHERE train_id = $1
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
