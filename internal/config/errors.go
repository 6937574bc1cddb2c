package config

import "errors"

// Sentinel kinds for configuration errors.
var (
	ErrEmptyAddr      = errors.New("addr must not be empty")
	ErrBadDwellBounds = errors.New("dwell bounds must satisfy 0 < min < max")
)
