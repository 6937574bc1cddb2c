package fusion_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dwell/internal/domain/fusion"
	"github.com/okian/dwell/internal/domain/model"
)

// accelBatch builds samples whose magnitude equals the given z values, so
// consecutive deltas are easy to reason about.
func accelBatch(zs ...float64) []model.AccelSample {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	samples := make([]model.AccelSample, len(zs))
	for i, z := range zs {
		samples[i] = model.AccelSample{Z: z, TS: base.Add(time.Duration(i) * time.Second)}
	}
	return samples
}

func baroBatch(pressures ...float64) []model.BaroSample {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	samples := make([]model.BaroSample, len(pressures))
	for i, p := range pressures {
		samples[i] = model.BaroSample{Pressure: p, TS: base.Add(time.Duration(i) * time.Second)}
	}
	return samples
}

func TestAnalyzeMovement(t *testing.T) {
	Convey("Given a fusion engine with default thresholds", t, func() {
		e := fusion.New()

		Convey("When the batch is empty", func() {
			sig := e.AnalyzeMovement(nil)

			Convey("Then the signal is neutral", func() {
				So(sig.Detected, ShouldBeFalse)
				So(sig.Confidence, ShouldEqual, 0)
				So(sig.Samples, ShouldEqual, 0)
			})
		})

		Convey("When the batch has a single sample", func() {
			sig := e.AnalyzeMovement(accelBatch(9.8))

			Convey("Then no pair exists and the signal is neutral", func() {
				So(sig.Detected, ShouldBeFalse)
				So(sig.Confidence, ShouldEqual, 0)
				So(sig.Samples, ShouldEqual, 1)
			})
		})

		Convey("When all magnitude deltas are below the threshold", func() {
			sig := e.AnalyzeMovement(accelBatch(9.8, 10.0, 9.9, 10.1, 9.7))

			Convey("Then no movement is detected", func() {
				So(sig.Detected, ShouldBeFalse)
				So(sig.Confidence, ShouldEqual, 0)
			})
		})

		Convey("When exactly ten percent of pairs move", func() {
			// 11 samples, 10 pairs, 1 moving pair: ratio sits on the
			// detection boundary and the comparison is strict.
			sig := e.AnalyzeMovement(accelBatch(0, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5))

			Convey("Then the boundary does not count as movement", func() {
				So(sig.Confidence, ShouldAlmostEqual, 0.1, 1e-9)
				So(sig.Detected, ShouldBeFalse)
			})
		})

		Convey("When more than ten percent of pairs move", func() {
			// 5 samples, 4 pairs, 2 moving pairs.
			sig := e.AnalyzeMovement(accelBatch(0, 5, 5, 10, 10))

			Convey("Then movement is detected with the ratio as confidence", func() {
				So(sig.Detected, ShouldBeTrue)
				So(sig.Confidence, ShouldAlmostEqual, 0.5, 1e-9)
				So(sig.Samples, ShouldEqual, 5)
			})
		})

		Convey("When every pair moves", func() {
			sig := e.AnalyzeMovement(accelBatch(0, 5, 0, 5, 0))

			Convey("Then the confidence is one", func() {
				So(sig.Detected, ShouldBeTrue)
				So(sig.Confidence, ShouldAlmostEqual, 1.0, 1e-9)
			})
		})
	})

	Convey("Given a custom movement threshold", t, func() {
		e := fusion.New(fusion.WithMovementThreshold(6.0))

		Convey("When deltas clear the default but not the custom threshold", func() {
			sig := e.AnalyzeMovement(accelBatch(0, 5, 0, 5, 0))

			So(sig.Detected, ShouldBeFalse)
			So(sig.Confidence, ShouldEqual, 0)
		})
	})
}

func TestAnalyzeFloorChanges(t *testing.T) {
	Convey("Given a fusion engine with default thresholds", t, func() {
		e := fusion.New()

		Convey("When the batch is empty", func() {
			sig := e.AnalyzeFloorChanges(nil)

			Convey("Then the signal is neutral", func() {
				So(sig.Changes, ShouldEqual, 0)
				So(sig.Confidence, ShouldEqual, 0)
				So(sig.Samples, ShouldEqual, 0)
			})
		})

		Convey("When a pressure jump sits exactly on the threshold", func() {
			sig := e.AnalyzeFloorChanges(baroBatch(1000, 1012))

			Convey("Then the strict comparison does not count it", func() {
				So(sig.Changes, ShouldEqual, 0)
			})
		})

		Convey("When a pressure jump just exceeds the threshold", func() {
			sig := e.AnalyzeFloorChanges(baroBatch(1000, 1012.01))

			So(sig.Changes, ShouldEqual, 1)
		})

		Convey("When pressure falls across floors", func() {
			sig := e.AnalyzeFloorChanges(baroBatch(1013, 1000, 987))

			Convey("Then downward jumps count too", func() {
				So(sig.Changes, ShouldEqual, 2)
			})
		})

		Convey("When the batch has ten samples", func() {
			sig := e.AnalyzeFloorChanges(baroBatch(make([]float64, 10)...))

			Convey("Then the confidence stays at the small-batch level", func() {
				So(sig.Confidence, ShouldEqual, 0.4)
				So(sig.Samples, ShouldEqual, 10)
			})
		})

		Convey("When the batch has eleven samples", func() {
			sig := e.AnalyzeFloorChanges(baroBatch(make([]float64, 11)...))

			Convey("Then the confidence moves to the large-batch level", func() {
				So(sig.Confidence, ShouldEqual, 0.8)
				So(sig.Samples, ShouldEqual, 11)
			})
		})
	})
}

func TestRefine(t *testing.T) {
	Convey("Given a fusion engine with default thresholds", t, func() {
		e := fusion.New()

		moving := fusion.MovementSignal{Detected: true, Confidence: 0.5}
		weak := fusion.MovementSignal{Detected: true, Confidence: 0.2}
		still := fusion.MovementSignal{}

		Convey("When no movement was detected", func() {
			got := e.Refine(300, still, fusion.FloorSignal{Changes: 3})

			Convey("Then the base dwell passes through", func() {
				So(got, ShouldEqual, 300)
			})
		})

		Convey("When movement was detected but confidence is too low", func() {
			got := e.Refine(300, weak, fusion.FloorSignal{Changes: 3})

			So(got, ShouldEqual, 300)
		})

		Convey("When movement is confident and floors changed", func() {
			got := e.Refine(300, moving, fusion.FloorSignal{Changes: 2})

			Convey("Then each floor change adds the per-floor travel time", func() {
				So(got, ShouldEqual, 360)
			})
		})

		Convey("When the adjustment overshoots the maximum", func() {
			got := e.Refine(7190, moving, fusion.FloorSignal{Changes: 5})

			Convey("Then the result is clamped to the upper bound", func() {
				So(got, ShouldEqual, 7200)
			})
		})

		Convey("When the base is below the minimum", func() {
			got := e.Refine(2, still, fusion.FloorSignal{})

			Convey("Then the result is clamped to the lower bound", func() {
				So(got, ShouldEqual, 10)
			})
		})
	})

	Convey("Given a custom floor-change cost", t, func() {
		e := fusion.New(fusion.WithFloorChangeSeconds(45))
		moving := fusion.MovementSignal{Detected: true, Confidence: 0.9}

		Convey("When refining with one floor change", func() {
			got := e.Refine(300, moving, fusion.FloorSignal{Changes: 1})

			So(got, ShouldEqual, 345)
		})
	})
}
