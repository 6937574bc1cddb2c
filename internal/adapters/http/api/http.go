// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/dwell/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SeenAndRecord atomically checks-and-records a session id for
	// idempotent dispatch.
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)

	// Enqueue pushes a session for async processing. Returns false on
	// backpressure.
	Enqueue(ctx context.Context, s model.Session) bool

	// RegisterBuilding creates a building profile with a heuristic baseline.
	RegisterBuilding(ctx context.Context, buildingID, address, zipCode string) (model.BuildingProfile, error)

	// Read operations expose processing results and aggregates.
	SessionStatus(ctx context.Context, sessionID string) (model.ProcessingStatus, error)
	BuildingProfile(ctx context.Context, buildingID string) (model.BuildingProfile, error)
	UserProfile(ctx context.Context, userID string) (model.UserProfile, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	sessionsHandler  *SessionsHandler
	buildingsHandler *BuildingsHandler
	usersHandler     *UsersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		sessionsHandler:  NewSessionsHandler(deps),
		buildingsHandler: NewBuildingsHandler(deps),
		usersHandler:     NewUsersHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandlePostSession, "sessions"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleGetSession, "session_status"))
	mux.HandleFunc("/buildings", MetricsMiddleware(s.buildingsHandler.HandleRegisterBuilding, "buildings"))
	mux.HandleFunc("/buildings/", MetricsMiddleware(s.buildingsHandler.HandleGetBuilding, "building_profile"))
	mux.HandleFunc("/users/", MetricsMiddleware(s.usersHandler.HandleGetUser, "user_profile"))
}

type ackResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
