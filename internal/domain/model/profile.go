package model

import "time"

// DefaultHeuristicDwellSeconds is the baseline used when a building was
// never registered with a smarter estimate.
const DefaultHeuristicDwellSeconds = 240.0

// BuildingProfile is the per-building aggregate. The heuristic baseline is
// set once at creation and never mutated afterwards; everything else is
// recomputed on each committed session.
type BuildingProfile struct {
	BuildingID           string    `json:"building_id"`
	Address              string    `json:"address,omitempty"`
	ZipCode              string    `json:"zip_code,omitempty"`
	HeuristicDwellTime   float64   `json:"heuristic_dwell_time"`
	LiveAverageDwellTime float64   `json:"live_average_dwell_time"`
	BlendedDwellTime     float64   `json:"blended_dwell_time"`
	VisitCount           int64     `json:"visit_count"`
	TotalDwellSeconds    float64   `json:"total_dwell_seconds"`
	CreatedAt            time.Time `json:"created_at"`
	LastUpdated          time.Time `json:"last_updated"`
}

// UserProfile is the per-user aggregate. The user type is fixed at creation.
type UserProfile struct {
	UserID            string    `json:"user_id"`
	UserType          string    `json:"user_type"`
	TotalSessions     int64     `json:"total_sessions"`
	TotalDwellSeconds float64   `json:"total_dwell_seconds"`
	AverageDwellTime  float64   `json:"average_dwell_time"`
	FirstSessionAt    time.Time `json:"first_session_at"`
	LastSessionAt     time.Time `json:"last_session_at"`
}
