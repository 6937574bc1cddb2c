package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			enabledOpt := WithEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(enabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with degenerate option values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the defaults survive and creation succeeds", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given the metrics HTTP handler", t, func() {
		Convey("Then it should be available", func() {
			So(Handler(), ShouldNotBeNil)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording session pipeline metrics", func() {
			So(func() {
				RecordSessionReceived()
				RecordSessionCompleted()
				RecordSessionInvalid("missing_field")
				RecordSessionInvalid("unrealistic_dwell_time")
				RecordSessionErrored()
				RecordSessionDuplicate()
			}, ShouldNotPanic)
		})

		Convey("When recording sensor fusion metrics", func() {
			So(func() {
				RecordRefinementAdjustment(30.0)
				RecordRefinementAdjustment(0.0)
				RecordFloorChanges(2)
				RecordFloorChanges(0)
				RecordMovementDetected()
				RecordBlendConfidence(0.5)
			}, ShouldNotPanic)
		})

		Convey("When recording store metrics", func() {
			So(func() {
				RecordTxnRetry()
				RecordTxnConflict()
				RecordTxnExhausted()
				RecordPartialUpdate()
				RecordStoreUpdateLatency(5.0)
				UpdateBuildingsTracked(100)
				UpdateUsersTracked(5000)
			}, ShouldNotPanic)
		})

		Convey("When recording queue metrics", func() {
			So(func() {
				UpdateQueueSize(1000)
				UpdateQueueCapacity(100000)
				UpdateQueueUtilization(0.01)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
			}, ShouldNotPanic)
		})

		Convey("When recording worker metrics", func() {
			So(func() {
				UpdateWorkerCount(8)
				RecordWorkerProcessingLatency(12.5)
				RecordWorkerError()
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("/sessions", "202")
				RecordHTTPRequest("/buildings", "201")
				RecordHTTPRequestDuration("/sessions", 5.0)
				RecordHTTPRequestDuration("/healthz", 0.1)
			}, ShouldNotPanic)
		})

		Convey("When recording system metrics", func() {
			So(func() {
				UpdateSystemMemoryUsage(1024 * 1024 * 100)
				UpdateSystemGoroutineCount(200)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsEdgeCases(t *testing.T) {
	Convey("Given metrics edge cases", t, func() {
		Convey("When using zero values", func() {
			So(func() {
				UpdateQueueSize(0)
				UpdateWorkerCount(0)
				RecordStoreUpdateLatency(0.0)
				RecordBlendConfidence(0.0)
				RecordHTTPRequestDuration("/test", 0.0)
			}, ShouldNotPanic)
		})

		Convey("When using negative values", func() {
			So(func() {
				UpdateQueueSize(-100)
				UpdateWorkerCount(-10)
				RecordFloorChanges(-1)
			}, ShouldNotPanic)
		})

		Convey("When using very large values", func() {
			So(func() {
				UpdateQueueSize(1_000_000)
				RecordWorkerProcessingLatency(30_000.0)
				UpdateSystemMemoryUsage(1 << 40)
			}, ShouldNotPanic)
		})

		Convey("When using empty label values", func() {
			So(func() {
				RecordSessionInvalid("")
				RecordHTTPRequest("", "")
				RecordHTTPRequestDuration("", 10.0)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given metrics concurrency", t, func() {
		Convey("When recording metrics concurrently", func() {
			done := make(chan bool, 10)

			for i := 0; i < 10; i++ {
				go func() {
					for j := 0; j < 100; j++ {
						RecordSessionReceived()
						UpdateQueueSize(1000 + j)
						RecordStoreUpdateLatency(float64(j))
						RecordHTTPRequest("/sessions", "202")
					}
					done <- true
				}()
			}

			for i := 0; i < 10; i++ {
				<-done
			}

			Convey("Then it should handle concurrent access without panics", func() {
				So(true, ShouldBeTrue)
			})
		})
	})
}
