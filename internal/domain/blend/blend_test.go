package blend_test

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dwell/internal/domain/blend"
)

func TestConfidence(t *testing.T) {
	Convey("Given a blender with the default smoothing constant", t, func() {
		b := blend.New()

		Convey("When the visit count is zero or negative", func() {
			So(b.Confidence(0), ShouldEqual, 0)
			So(b.Confidence(-5), ShouldEqual, 0)
		})

		Convey("When the visit count equals the smoothing constant", func() {
			Convey("Then the confidence is exactly one half", func() {
				So(b.Confidence(10), ShouldAlmostEqual, 0.5, 1e-9)
			})
		})

		Convey("When visit counts grow", func() {
			Convey("Then the confidence is strictly increasing", func() {
				prev := b.Confidence(1)
				for n := int64(2); n <= 100; n++ {
					cur := b.Confidence(n)
					So(cur, ShouldBeGreaterThan, prev)
					prev = cur
				}
			})

			Convey("And it approaches but never reaches one", func() {
				So(b.Confidence(100000), ShouldBeGreaterThan, 0.999)
				So(b.Confidence(100000), ShouldBeLessThan, 1.0)
			})
		})
	})

	Convey("Given a custom smoothing constant", t, func() {
		b := blend.New(blend.WithSmoothingK(5))

		Convey("Then the half-confidence point shifts with it", func() {
			So(b.Confidence(5), ShouldAlmostEqual, 0.5, 1e-9)
		})
	})
}

func TestBlend(t *testing.T) {
	Convey("Given a blender with the default smoothing constant", t, func() {
		b := blend.New()

		Convey("When no visits were recorded yet", func() {
			got := b.Blend(0, 240, 999)

			Convey("Then the heuristic passes through unchanged", func() {
				So(got, ShouldEqual, 240)
			})
		})

		Convey("When the live average is not a number", func() {
			got := b.Blend(5, 240, math.NaN())

			So(got, ShouldEqual, 240)
		})

		Convey("When blending a 240 heuristic with a 180 live average", func() {
			Convey("And there is one visit", func() {
				got := b.Blend(1, 240, 180)

				// confidence 1/11: mostly heuristic.
				So(got, ShouldAlmostEqual, 234.5454, 0.1)
			})

			Convey("And there are ten visits", func() {
				got := b.Blend(10, 240, 180)

				// confidence 1/2: an even split.
				So(got, ShouldAlmostEqual, 210.0, 1e-9)
			})

			Convey("And there are fifty visits", func() {
				got := b.Blend(50, 240, 180)

				// confidence 5/6: mostly live data.
				So(got, ShouldAlmostEqual, 190.0, 0.1)
			})
		})

		Convey("When the live average equals the heuristic", func() {
			got := b.Blend(25, 240, 240)

			Convey("Then the blend is a fixed point", func() {
				So(got, ShouldAlmostEqual, 240, 1e-9)
			})
		})

		Convey("When visits grow without bound", func() {
			got := b.Blend(1000000, 240, 180)

			Convey("Then the blend converges on the live average", func() {
				So(got, ShouldAlmostEqual, 180, 0.01)
			})
		})
	})
}
