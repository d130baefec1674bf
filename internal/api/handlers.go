// Package api exposes the simulation engine to the dashboard: snapshot
// reads at render cadence and the control signals (load, start, stop,
// reset, speed, strategy, track failure reports).
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/railviz/engine/internal/repository"
	"github.com/railviz/engine/internal/schedule"
	"github.com/railviz/engine/internal/sim"
)

// ErrorResponse is the JSON error response structure.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Handler serves the engine's HTTP surface.
type Handler struct {
	engine *sim.Engine
}

// NewHandler creates a handler around an engine instance.
func NewHandler(engine *sim.Engine) *Handler {
	return &Handler{engine: engine}
}

// Routes mounts every endpoint on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)

	r.Get("/api/simulation", h.GetState)
	r.Post("/api/simulation/load", h.LoadDataset)
	r.Post("/api/simulation/plan", h.LoadPlan)
	r.Post("/api/simulation/start", h.Start)
	r.Post("/api/simulation/stop", h.Stop)
	r.Post("/api/simulation/reset", h.Reset)
	r.Put("/api/simulation/speed", h.SetSpeed)
	r.Put("/api/simulation/strategy", h.SetStrategy)

	r.Get("/api/trains", h.GetTrains)
	r.Get("/api/trains/{trainID}", h.GetTrain)

	r.Post("/api/tracks/{trackID}/failure", h.ReportFailure)
	r.Post("/api/tracks/{trackID}/repair", h.ReportRepair)

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string, details map[string]interface{}) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// GetState handles GET /api/simulation.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.State())
}

// GetTrainsResponse is the JSON response for GET /api/trains.
type GetTrainsResponse struct {
	Trains []sim.Snapshot `json:"trains"`
	Count  int            `json:"count"`
}

// GetTrains handles GET /api/trains.
func (h *Handler) GetTrains(w http.ResponseWriter, r *http.Request) {
	snaps := h.engine.Snapshots()
	writeJSON(w, http.StatusOK, GetTrainsResponse{Trains: snaps, Count: len(snaps)})
}

// GetTrain handles GET /api/trains/{trainID}.
func (h *Handler) GetTrain(w http.ResponseWriter, r *http.Request) {
	trainID := chi.URLParam(r, "trainID")
	snap, ok := h.engine.Snapshot(trainID)
	if !ok {
		writeError(w, http.StatusNotFound, "train not found", map[string]interface{}{"trainId": trainID})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// LoadDataset handles POST /api/simulation/load with a full dataset body.
func (h *Handler) LoadDataset(w http.ResponseWriter, r *http.Request) {
	var ds repository.Dataset
	if err := json.NewDecoder(r.Body).Decode(&ds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid dataset", map[string]interface{}{"internal": err.Error()})
		return
	}

	trains := schedule.NormalizeAll(ds.Trains, time.Now().UTC())
	h.engine.Load(trains, ds.BuildIndex())
	writeJSON(w, http.StatusOK, h.engine.State())
}

// LoadPlan handles POST /api/simulation/plan: an externally computed
// schedule, either a record array or a legacy train map.
func (h *Handler) LoadPlan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body", nil)
		return
	}
	if err := h.engine.LoadPlan(body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid plan", map[string]interface{}{"internal": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.engine.State())
}

// Start handles POST /api/simulation/start. The tick loop outlives the
// request, so it runs on a background context; Stop cancels it.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.engine.Start(context.Background())
	writeJSON(w, http.StatusOK, h.engine.State())
}

// Stop handles POST /api/simulation/stop.
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop()
	writeJSON(w, http.StatusOK, h.engine.State())
}

// Reset handles POST /api/simulation/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.engine.Reset()
	writeJSON(w, http.StatusOK, h.engine.State())
}

// SpeedRequest is the body of PUT /api/simulation/speed.
type SpeedRequest struct {
	Multiplier float64 `json:"multiplier"`
}

// SetSpeed handles PUT /api/simulation/speed.
func (h *Handler) SetSpeed(w http.ResponseWriter, r *http.Request) {
	var req SpeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if req.Multiplier <= 0 {
		writeError(w, http.StatusBadRequest, "multiplier must be positive", nil)
		return
	}
	h.engine.SetSpeed(req.Multiplier)
	writeJSON(w, http.StatusOK, h.engine.State())
}

// StrategyRequest is the body of PUT /api/simulation/strategy.
type StrategyRequest struct {
	Strategy string `json:"strategy"`
}

// SetStrategy handles PUT /api/simulation/strategy.
func (h *Handler) SetStrategy(w http.ResponseWriter, r *http.Request) {
	var req StrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	h.engine.SetStrategy(sim.ParseStrategy(req.Strategy))
	writeJSON(w, http.StatusOK, h.engine.State())
}

// ReportFailure handles POST /api/tracks/{trackID}/failure.
func (h *Handler) ReportFailure(w http.ResponseWriter, r *http.Request) {
	h.setTrack(w, r, h.engine.ReportTrackFailure)
}

// ReportRepair handles POST /api/tracks/{trackID}/repair.
func (h *Handler) ReportRepair(w http.ResponseWriter, r *http.Request) {
	h.setTrack(w, r, h.engine.ReportTrackRepair)
}

func (h *Handler) setTrack(w http.ResponseWriter, r *http.Request, apply func(string) bool) {
	trackID := chi.URLParam(r, "trackID")
	if !apply(trackID) {
		writeError(w, http.StatusNotFound, "track not found", map[string]interface{}{"trackId": trackID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trackId": trackID, "updated": true})
}
