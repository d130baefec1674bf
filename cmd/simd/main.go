package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/railviz/engine/internal/api"
	"github.com/railviz/engine/internal/config"
	"github.com/railviz/engine/internal/realtime"
	"github.com/railviz/engine/internal/repository"
	"github.com/railviz/engine/internal/schedule"
	"github.com/railviz/engine/internal/sim"
)

func main() {
	log.Println("Starting simulation service...")

	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := config.Load()
	log.Printf("Config loaded: tick=%v, speed=%.1fx, strategy=%s", cfg.TickPeriod, cfg.SpeedMultiplier, cfg.Strategy)

	engine := sim.New(cfg.TickPeriod)
	engine.SetSpeed(cfg.SpeedMultiplier)
	engine.SetStrategy(sim.ParseStrategy(cfg.Strategy))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if ds, ok := loadDataset(ctx, cfg); ok {
		trains := schedule.NormalizeAll(ds.Trains, time.Now().UTC())
		engine.Load(trains, ds.BuildIndex())
		if cfg.AutoStart {
			engine.Start(ctx)
		}
	} else {
		log.Println("No dataset source configured; waiting for a load via the API")
	}

	if cfg.TripUpdatesURL != "" {
		watcher := realtime.NewWatcher(realtime.NewClient(cfg.TripUpdatesURL), engine, cfg.TripUpdatesInterval)
		go watcher.Run(ctx)
		log.Printf("Realtime: watching trip updates every %v", cfg.TripUpdatesInterval)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Mount("/", api.NewHandler(engine).Routes())

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Printf("API server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	engine.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Goodbye!")
}

// loadDataset tries the configured sources in priority order: Postgres,
// SQLite, JSON file. Failures are logged, not fatal; the service still comes
// up and accepts a dataset over the API.
func loadDataset(ctx context.Context, cfg *config.Config) (repository.Dataset, bool) {
	if cfg.DatabaseURL != "" {
		store, err := repository.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: postgres unavailable: %v", err)
		} else {
			defer store.Close()
			ds, err := store.LoadDataset(ctx)
			if err != nil {
				log.Printf("Warning: postgres dataset load failed: %v", err)
			} else {
				log.Printf("Dataset loaded from postgres: %d stations, %d trains", len(ds.Stations), len(ds.Trains))
				return ds, true
			}
		}
	}

	if cfg.SQLitePath != "" {
		store, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Printf("Warning: sqlite unavailable: %v", err)
		} else {
			defer store.Close()
			ds, err := store.LoadDataset(ctx)
			if err != nil {
				log.Printf("Warning: sqlite dataset load failed: %v", err)
			} else {
				log.Printf("Dataset loaded from sqlite: %d stations, %d trains", len(ds.Stations), len(ds.Trains))
				return ds, true
			}
		}
	}

	if cfg.DatasetPath != "" {
		data, err := os.ReadFile(cfg.DatasetPath)
		if err != nil {
			log.Printf("Warning: dataset file unreadable: %v", err)
			return repository.Dataset{}, false
		}
		var ds repository.Dataset
		if err := json.Unmarshal(data, &ds); err != nil {
			log.Printf("Warning: dataset file invalid: %v", err)
			return repository.Dataset{}, false
		}
		log.Printf("Dataset loaded from %s: %d stations, %d trains", cfg.DatasetPath, len(ds.Stations), len(ds.Trains))
		return ds, true
	}

	return repository.Dataset{}, false
}
