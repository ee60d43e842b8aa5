package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithLatencyBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created and registered", func() {
				So(manager, ShouldNotBeNil)
				manager.analysesCompleted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_completed_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording pipeline metrics", func() {
			before := testutil.ToFloat64(globalManager.scoringFallbacks.WithLabelValues("pace"))
			RecordScoringFallback("pace")
			RecordScoringFallback("pace")

			Convey("Then fallbacks are counted per dimension", func() {
				So(testutil.ToFloat64(globalManager.scoringFallbacks.WithLabelValues("pace")), ShouldEqual, before+2)
			})
		})

		Convey("When recording everything else", func() {
			Convey("Then nothing should panic", func() {
				So(func() {
					RecordAnalysisCompleted()
					RecordAnalysisFailed("annotate")
					RecordAnalysisDuplicate()
					RecordScoringLatency(0.4)
					ObserveDimensionScore("eyeContact", 90)
					RecordProviderLatency("http", 1200)
					RecordProviderError("assemblyai")
					RecordMediaCleanupFailure()
					UpdateStoredRecords(3)
					RecordCoachRequest("chat", "ok")
					UpdateQueueSize(2)
					UpdateQueueCapacity(10)
					RecordQueueRejected("full")
					UpdateWorkerCount(4)
					AddWorkerBusy(1)
					AddWorkerBusy(-1)
					RecordWorkerJobLatency(2500)
					RecordError("repository", "not_found")
					RecordHTTPRequest("history", "GET", "200")
					RecordHTTPRequestDuration("history", "GET", "200", 3)
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
				}, ShouldNotPanic)
			})
		})

		Convey("When gathering the custom registry", func() {
			UpdateQueueCapacity(42)
			out, err := testutil.GatherAndCount(GetRegistry(), "commskill_analysis_queue_capacity")

			Convey("Then the commskill namespace is used", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, 1)
			})
		})
	})
}
