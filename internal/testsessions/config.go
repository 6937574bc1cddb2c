package testsessions

import "time"

// Config holds configuration for the session test
type Config struct {
	BaseURL      string        // Base URL of the service
	NumSessions  int           // Number of sessions to generate
	NumBuildings int           // Number of distinct buildings to register
	NumUsers     int           // Number of distinct users to spread sessions over
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	OutputFile   string        // Output file for sessions
	LogFile      string        // Log file for test output
	Verbose      bool          // Enable verbose logging
}

// Session represents a session to be submitted
type Session struct {
	SessionID     string        `json:"session_id"`
	BuildingID    string        `json:"building_id"`
	UserID        string        `json:"user_id"`
	UserType      string        `json:"user_type"`
	StartTime     string        `json:"start_time,omitempty"`
	EndTime       string        `json:"end_time,omitempty"`
	DwellSeconds  float64       `json:"dwell_seconds"`
	Accelerometer []AccelSample `json:"accelerometer_samples,omitempty"`
	Barometer     []BaroSample  `json:"barometer_samples,omitempty"`
}

// AccelSample mirrors one accelerometer reading.
type AccelSample struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	TS string  `json:"ts"`
}

// BaroSample mirrors one barometer reading.
type BaroSample struct {
	Pressure float64 `json:"pressure"`
	TS       string  `json:"ts"`
}

// AckResponse represents the response from session submission
type AckResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// StatusResponse mirrors the terminal processing status.
type StatusResponse struct {
	SessionID             string  `json:"session_id"`
	State                 string  `json:"state"`
	Reason                string  `json:"reason,omitempty"`
	ProcessedDwellSeconds float64 `json:"processed_dwell_seconds,omitempty"`
}

// BuildingResponse mirrors the building aggregate profile.
type BuildingResponse struct {
	BuildingID           string  `json:"building_id"`
	HeuristicDwellTime   float64 `json:"heuristic_dwell_time"`
	LiveAverageDwellTime float64 `json:"live_average_dwell_time"`
	BlendedDwellTime     float64 `json:"blended_dwell_time"`
	VisitCount           int64   `json:"visit_count"`
}

// Stats holds test statistics
type Stats struct {
	BuildingsRegistered int
	SessionsGenerated   int
	SessionsSubmitted   int
	SessionsSuccessful  int
	SessionsDuplicate   int
	SessionsFailed      int
	StatusesRetrieved   int
	StatusesCompleted   int
	StatusesInvalid     int
	ProfilesRetrieved   int
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
