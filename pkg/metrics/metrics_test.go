package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

// readValue returns the current value of a counter or gauge.
func readValue(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return -1
	}
	if c := out.GetCounter(); c != nil {
		return c.GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it uses the hiscores namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "hiscores")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})

			Convey("Then its metrics are gathered from that registry", func() {
				manager.populationSize.Set(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "hiscores_service_population_size")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("sub"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "sub")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.RefreshInterval(), ShouldEqual, time.Second)
				So(manager.customLabels["env"], ShouldEqual, "test")
			})
		})

		Convey("When options get empty values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(-1),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "hiscores")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When the context cache is consulted", func() {
			hits := readValue(globalManager.contextCacheHits)
			misses := readValue(globalManager.contextCacheMisses)
			RecordContextCache(true)
			RecordContextCache(false)
			RecordContextCache(false)

			Convey("Then hits and misses are counted separately", func() {
				So(readValue(globalManager.contextCacheHits)-hits, ShouldEqual, 1.0)
				So(readValue(globalManager.contextCacheMisses)-misses, ShouldEqual, 2.0)
			})
		})

		Convey("When unlocks and prunes are recorded", func() {
			before := readValue(globalManager.achievementUnlocks)
			RecordAchievementUnlocks(4)
			RecordAchievementUnlocks(0)
			RecordAchievementPrunes(2)

			Convey("Then only positive amounts count", func() {
				So(readValue(globalManager.achievementUnlocks)-before, ShouldEqual, 4.0)
			})
		})

		Convey("When a job run is recorded", func() {
			before := readValue(globalManager.jobRuns.WithLabelValues("success"))
			RecordJobRun("success", 120)
			RecordJobBatch()
			RecordJobPlayerFailure()

			Convey("Then the outcome counter moves", func() {
				So(readValue(globalManager.jobRuns.WithLabelValues("success"))-before, ShouldEqual, 1.0)
				So(readValue(globalManager.jobLastRunUnix), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When store operations are recorded", func() {
			before := readValue(globalManager.storeErrors.WithLabelValues("memory", "get"))
			RecordStoreOperation("memory", "get", 0.2, false)
			RecordStoreOperation("memory", "get", 0.4, true)

			Convey("Then only failures are counted as errors", func() {
				So(readValue(globalManager.storeErrors.WithLabelValues("memory", "get"))-before, ShouldEqual, 1.0)
			})
		})

		Convey("When gauges are updated", func() {
			UpdatePopulationSize(42)
			UpdateQueueSize(5)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.5)
			UpdateWorkerActiveCount(3)
			UpdateSystemGoroutineCount(12)
			UpdateSystemMemoryUsage(1024)

			Convey("Then they hold the last value", func() {
				So(readValue(globalManager.populationSize), ShouldEqual, 42.0)
				So(readValue(globalManager.queueUtilization), ShouldEqual, 0.5)
				So(readValue(globalManager.workerActiveCount), ShouldEqual, 3.0)
			})
		})

		Convey("When the remaining recorders are called", func() {
			So(func() {
				RecordContextBuild(12.5)
				RecordSnapshot(2)
				RecordHTTPRequest("/api/leaderboard", "GET", "200")
				RecordHTTPRequestDuration("/api/leaderboard", "GET", "200", 0.01)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordWorkerProcessingLatency(3)
				RecordWorkerError()
				RecordErrorByComponent("repository", "not_found")
				RecordErrorByType("timeout", "error")
				RecordErrorByEndpoint("/api/users", "GET", "not_found")
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}
