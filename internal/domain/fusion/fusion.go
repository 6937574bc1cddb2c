// Package fusion derives movement and floor-change signals from raw sensor
// batches and refines a session's dwell time with them.
//
// Both analyses run over the complete fixed-size batch attached to a
// session. Empty batches produce neutral "no signal" results instead of
// errors.
package fusion

import (
	"math"

	"github.com/okian/dwell/internal/domain/model"
)

// Default fusion thresholds and constants.
const (
	defaultMovementThreshold  = 2.0  // acceleration magnitude delta per pair
	defaultPressureThreshold  = 12.0 // pressure delta per pair for one floor
	defaultFloorChangeSeconds = 30.0 // assumed travel time per floor change
	defaultMinDwellSeconds    = 10.0
	defaultMaxDwellSeconds    = 7200.0

	// movementDetectRatio is the fraction of moving pairs above which the
	// batch counts as movement.
	movementDetectRatio = 0.1

	// movementConfidenceFloor gates the refinement adjustment: below it the
	// movement signal is too weak to act on.
	movementConfidenceFloor = 0.3

	// floorConfidenceSamples separates small batches (confidence 0.4) from
	// larger ones (confidence 0.8). A coarse sample-size proxy, not a
	// statistical measure.
	floorConfidenceSamples    = 10
	floorConfidenceLargeBatch = 0.8
	floorConfidenceSmallBatch = 0.4
)

// MovementSignal is the result of analyzing an accelerometer batch. The
// confidence is the movement ratio itself.
type MovementSignal struct {
	Detected   bool
	Confidence float64
	Samples    int
}

// FloorSignal is the result of analyzing a barometer batch.
type FloorSignal struct {
	Changes    int
	Confidence float64
	Samples    int
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMovementThreshold overrides the acceleration magnitude delta that
// counts a sample pair as movement.
func WithMovementThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 {
			e.movementThreshold = t
		}
	}
}

// WithPressureThreshold overrides the pressure delta that counts a sample
// pair as a floor change.
func WithPressureThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 {
			e.pressureThreshold = t
		}
	}
}

// WithFloorChangeSeconds overrides the assumed time cost of one floor change.
func WithFloorChangeSeconds(s float64) Option {
	return func(e *Engine) {
		if s > 0 {
			e.floorChangeSeconds = s
		}
	}
}

// WithDwellBounds overrides the clamp applied to refined dwell times.
func WithDwellBounds(minSeconds, maxSeconds float64) Option {
	return func(e *Engine) {
		if minSeconds > 0 && maxSeconds > minSeconds {
			e.minDwellSeconds = minSeconds
			e.maxDwellSeconds = maxSeconds
		}
	}
}

// Engine runs the two sensor analyses and the fusion step.
type Engine struct {
	movementThreshold  float64
	pressureThreshold  float64
	floorChangeSeconds float64
	minDwellSeconds    float64
	maxDwellSeconds    float64
}

// New creates an Engine with default thresholds.
func New(opts ...Option) *Engine {
	e := &Engine{
		movementThreshold:  defaultMovementThreshold,
		pressureThreshold:  defaultPressureThreshold,
		floorChangeSeconds: defaultFloorChangeSeconds,
		minDwellSeconds:    defaultMinDwellSeconds,
		maxDwellSeconds:    defaultMaxDwellSeconds,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// AnalyzeMovement derives a movement signal from consecutive acceleration
// magnitude deltas. Batches with fewer than two samples carry no signal.
func (e *Engine) AnalyzeMovement(samples []model.AccelSample) MovementSignal {
	n := len(samples)
	if n < 2 {
		return MovementSignal{Samples: n}
	}

	movementCount := 0
	prevMag := magnitude(samples[0])
	for i := 1; i < n; i++ {
		curMag := magnitude(samples[i])
		if math.Abs(curMag-prevMag) > e.movementThreshold {
			movementCount++
		}
		prevMag = curMag
	}

	ratio := float64(movementCount) / float64(n-1)
	return MovementSignal{
		Detected:   ratio > movementDetectRatio,
		Confidence: ratio,
		Samples:    n,
	}
}

// AnalyzeFloorChanges counts pressure jumps that exceed the floor-change
// threshold. The comparison is strictly greater-than.
func (e *Engine) AnalyzeFloorChanges(samples []model.BaroSample) FloorSignal {
	n := len(samples)
	if n == 0 {
		return FloorSignal{}
	}

	changes := 0
	for i := 1; i < n; i++ {
		if math.Abs(samples[i].Pressure-samples[i-1].Pressure) > e.pressureThreshold {
			changes++
		}
	}

	confidence := floorConfidenceSmallBatch
	if n > floorConfidenceSamples {
		confidence = floorConfidenceLargeBatch
	}

	return FloorSignal{Changes: changes, Confidence: confidence, Samples: n}
}

// Refine adjusts a base dwell time with the fused sensor signals. When the
// movement signal is both detected and confident enough, each inferred floor
// change adds the configured per-floor travel time. The result is clamped to
// the dwell bounds; this clamp is the last bounds check before aggregation.
func (e *Engine) Refine(baseDwellSeconds float64, movement MovementSignal, floors FloorSignal) float64 {
	adjusted := baseDwellSeconds

	if movement.Detected && movement.Confidence > movementConfidenceFloor {
		adjusted += float64(floors.Changes) * e.floorChangeSeconds
	}

	return math.Max(e.minDwellSeconds, math.Min(adjusted, e.maxDwellSeconds))
}

func magnitude(s model.AccelSample) float64 {
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}
