package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the stride namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "stride")
				So(manager.subsystem, ShouldEqual, "feedback")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 2, 3})
			})

			Convey("And empty values should leave defaults alone", func() {
				other := NewManager(WithNamespace(""), WithHistogramBuckets(nil), WithPrometheusRegistry(prometheus.NewRegistry()))
				So(other.namespace, ShouldEqual, "stride")
				So(len(other.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording serving metrics", func() {
			before := testutil.ToFloat64(globalManager.feedbackRequests.WithLabelValues("shown"))
			RecordFeedback("shown", 3)
			RecordFeedback("shown", 4)

			Convey("Then the outcome counter should advance", func() {
				So(testutil.ToFloat64(globalManager.feedbackRequests.WithLabelValues("shown")), ShouldEqual, before+2)
			})
		})

		Convey("When recording condition assignments", func() {
			before := testutil.ToFloat64(globalManager.conditionAssigns.WithLabelValues("control"))
			RecordConditionAssignment(false)

			Convey("Then the control label should advance", func() {
				So(testutil.ToFloat64(globalManager.conditionAssigns.WithLabelValues("control")), ShouldEqual, before+1)
			})
		})

		Convey("When recording lifecycle and queue metrics", func() {
			So(func() {
				RecordUnknownSubgoal()
				RecordEventLogged("Submit")
				RecordEventDuplicate()
				RecordRebuild("published", 12)
				RecordDegenerateRange()
				UpdateModelsPublished(3)
				RecordStoreLatency("get", 0.2)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(2)
				RecordWorkerError()
				RecordWorkerProcessingLatency(5)
				RecordHTTPRequest("/feedback", "POST", "200")
				RecordHTTPRequestDuration("/feedback", "POST", "200", 1.5)
				RecordErrorByComponent("scheduler", "fit")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
			}, ShouldNotPanic)

			Convey("Then the gauges should hold the latest value", func() {
				So(testutil.ToFloat64(globalManager.modelsPublished), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
			})
		})

		Convey("When gathering the custom registry", func() {
			RecordRebuild("failed", 1)
			families, err := GetRegistry().Gather()

			Convey("Then stride metrics should be present", func() {
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if strings.HasPrefix(f.GetName(), "stride_feedback_rebuild_attempts_total") {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}
