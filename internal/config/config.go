package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the simulation service.
type Config struct {
	// HTTP
	Port           string
	AllowedOrigins []string

	// Simulation
	TickPeriod      time.Duration
	SpeedMultiplier float64
	Strategy        string
	AutoStart       bool

	// Dataset sources, in priority order: Postgres, SQLite, JSON file.
	DatabaseURL string
	SQLitePath  string
	DatasetPath string

	// Real-time delay feed (GTFS-RT trip updates); empty disables it.
	TripUpdatesURL      string
	TripUpdatesInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		AllowedOrigins: []string{getEnv("ALLOWED_ORIGIN", "http://localhost:5173")},

		TickPeriod:      time.Duration(getEnvInt("TICK_PERIOD_MS", 100)) * time.Millisecond,
		SpeedMultiplier: getEnvFloat("SPEED_MULTIPLIER", 1),
		Strategy:        getEnv("STRATEGY", "balanced"),
		AutoStart:       getEnv("AUTO_START", "") == "true",

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_DATABASE", ""),
		DatasetPath: getEnv("DATASET_PATH", ""),

		TripUpdatesURL:      getEnv("GTFS_TRIP_UPDATES_URL", ""),
		TripUpdatesInterval: time.Duration(getEnvInt("TRIP_UPDATES_INTERVAL", 30)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
