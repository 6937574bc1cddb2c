// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// User types accepted on a session record.
const (
	UserTypeFriend  = "friend"
	UserTypeCarrier = "carrier"
	UserTypeAdmin   = "admin"
)

// ValidUserType reports whether t is one of the accepted user types.
func ValidUserType(t string) bool {
	switch t {
	case UserTypeFriend, UserTypeCarrier, UserTypeAdmin:
		return true
	}
	return false
}

// serverSentinel is the wire token a client sends to request a
// server-assigned timestamp.
const serverSentinel = "server"

// Timestamp is a session boundary time. A pending timestamp was requested as
// server-assigned and has not been resolved yet, so time-ordering checks
// must be skipped for it.
type Timestamp struct {
	Time    time.Time
	Pending bool
}

// MarshalJSON encodes the timestamp as RFC3339, or the server sentinel token
// when still pending.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Pending {
		return json.Marshal(serverSentinel)
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON decodes either an RFC3339 string or the server sentinel.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == serverSentinel {
		*t = Timestamp{Pending: true}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	*t = Timestamp{Time: parsed}
	return nil
}

// AccelSample is a single accelerometer reading.
type AccelSample struct {
	X  float64   `json:"x"`
	Y  float64   `json:"y"`
	Z  float64   `json:"z"`
	TS time.Time `json:"ts"`
}

// BaroSample is a single barometer reading.
type BaroSample struct {
	Pressure float64   `json:"pressure"`
	TS       time.Time `json:"ts"`
}

// Session represents a visit record submitted by a client device. It is
// immutable once created; processing results are written to a separate
// status record.
type Session struct {
	SessionID     string        `json:"session_id"`
	BuildingID    string        `json:"building_id"`
	UserID        string        `json:"user_id"`
	UserType      string        `json:"user_type"`
	StartTime     *Timestamp    `json:"start_time,omitempty"`
	EndTime       *Timestamp    `json:"end_time,omitempty"`
	DwellSeconds  float64       `json:"dwell_seconds"`
	Accelerometer []AccelSample `json:"accelerometer_samples,omitempty"`
	Barometer     []BaroSample  `json:"barometer_samples,omitempty"`
}

// HasSensorData reports whether either sensor batch is non-empty.
func (s *Session) HasSensorData() bool {
	return len(s.Accelerometer) > 0 || len(s.Barometer) > 0
}

// ProcessingState names a session's terminal processing outcome.
type ProcessingState string

// Terminal processing states. Exactly one is written per session.
const (
	StateInvalid   ProcessingState = "invalid"
	StateCompleted ProcessingState = "completed"
	StateError     ProcessingState = "error"
)

// ProcessingStatus is the terminal status record written back onto a
// session after the pipeline finishes with it.
type ProcessingStatus struct {
	SessionID             string          `json:"session_id"`
	State                 ProcessingState `json:"state"`
	Reason                string          `json:"reason,omitempty"`
	Message               string          `json:"message,omitempty"`
	ProcessedDwellSeconds float64         `json:"processed_dwell_seconds,omitempty"`
	ProcessedAt           time.Time       `json:"processed_at"`
}
