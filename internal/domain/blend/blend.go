// Package blend computes the confidence-weighted estimate between a
// building's heuristic baseline and its live measured average.
package blend

import "math"

// defaultSmoothingK is the smoothing constant in confidence = n/(n+k).
const defaultSmoothingK = 10.0

// Option applies a configuration option to the Blender.
type Option func(*Blender)

// WithSmoothingK overrides the confidence smoothing constant.
func WithSmoothingK(k float64) Option {
	return func(b *Blender) {
		if k > 0 {
			b.k = k
		}
	}
}

// Blender is a pure estimator. Confidence grows with the visit count and is
// independent of the magnitude of either input value: 0 at zero visits,
// approaching 1 as visits grow.
type Blender struct {
	k float64
}

// New creates a Blender with the default smoothing constant.
func New(opts ...Option) Blender {
	b := Blender{k: defaultSmoothingK}

	for _, opt := range opts {
		opt(&b)
	}

	return b
}

// Confidence returns n/(n+k) for a visit count n. Negative counts carry no
// confidence.
func (b Blender) Confidence(visitCount int64) float64 {
	if visitCount <= 0 {
		return 0
	}
	n := float64(visitCount)
	return n / (n + b.k)
}

// Blend returns the confidence-weighted average of the heuristic baseline
// and the live average. With no live data yet (zero visits, or a live
// average that is not a number) the heuristic passes through unchanged.
func (b Blender) Blend(visitCount int64, heuristic, liveAverage float64) float64 {
	if visitCount <= 0 || math.IsNaN(liveAverage) {
		return heuristic
	}

	confidence := b.Confidence(visitCount)
	return heuristic*(1-confidence) + liveAverage*confidence
}
