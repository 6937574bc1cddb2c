// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory session queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of pipeline workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// StorePath selects the SQLite store file. Empty keeps the in-memory store.
	StorePath string `koanf:"store_path"`

	// TxnMaxRetries bounds transaction retries on conflicts.
	TxnMaxRetries int `koanf:"txn_max_retries"`

	// ConfidenceK is the smoothing constant in confidence = n/(n+k).
	ConfidenceK float64 `koanf:"confidence_k"`

	// MovementThreshold is the acceleration magnitude delta counting as movement.
	MovementThreshold float64 `koanf:"movement_threshold"`

	// PressureThreshold is the pressure delta counting as one floor change.
	PressureThreshold float64 `koanf:"pressure_threshold"`

	// FloorChangeSeconds is the assumed travel time per floor change.
	FloorChangeSeconds float64 `koanf:"floor_change_seconds"`

	// MinDwellSeconds and MaxDwellSeconds bound accepted dwell times.
	MinDwellSeconds float64 `koanf:"min_dwell_seconds"`
	MaxDwellSeconds float64 `koanf:"max_dwell_seconds"`

	// DefaultBaselineSeconds is the fallback heuristic dwell time.
	DefaultBaselineSeconds float64 `koanf:"default_baseline_seconds"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		QueueSize:              100_000,
		WorkerCount:            runtime.NumCPU() * 2,
		DedupeSize:             50_000,
		StorePath:              "",
		TxnMaxRetries:          5,
		ConfidenceK:            10,
		MovementThreshold:      2.0,
		PressureThreshold:      12.0,
		FloorChangeSeconds:     30,
		MinDwellSeconds:        10,
		MaxDwellSeconds:        7200,
		DefaultBaselineSeconds: 240,
	}
}
