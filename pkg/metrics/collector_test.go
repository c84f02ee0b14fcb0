package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/kioko/matchpulse/pkg/metrics"
)

func TestCollectorLatency(t *testing.T) {
	Convey("Given a metrics collector", t, func() {
		c := metrics.NewCollector()

		Convey("When recording latency samples", func() {
			for i := 1; i <= 100; i++ {
				c.RecordLatency(metrics.StageIngestion, time.Duration(i)*time.Millisecond)
			}

			s := c.StageSummary(metrics.StageIngestion)

			Convey("Then the summary derives all fields", func() {
				So(s.Count, ShouldEqual, 100)
				So(s.Min, ShouldEqual, 1.0)
				So(s.Max, ShouldEqual, 100.0)
				So(s.Mean, ShouldAlmostEqual, 50.5, 1e-9)
				So(s.Median, ShouldAlmostEqual, 50.5, 1e-9)
				So(s.Stddev, ShouldBeGreaterThan, 0)
			})

			Convey("Then the percentiles are ordered", func() {
				So(s.P50, ShouldBeLessThanOrEqualTo, s.P95)
				So(s.P95, ShouldBeLessThanOrEqualTo, s.P99)
				So(s.P99, ShouldBeLessThanOrEqualTo, s.Max)
			})
		})

		Convey("When no samples exist for a stage", func() {
			s := c.StageSummary(metrics.StageDelivery)
			So(s.Count, ShouldEqual, 0)
			So(s.Mean, ShouldEqual, 0)
		})

		Convey("When taking a full snapshot", func() {
			c.RecordLatency(metrics.StageProcessing, 5*time.Millisecond)
			c.AddEvents(10)
			c.IncrCounter("events_ingested", 10)

			snap := c.Snapshot()

			Convey("Then every stage is present", func() {
				for _, stage := range metrics.Stages {
					_, ok := snap.Latency[stage]
					So(ok, ShouldBeTrue)
				}
				So(snap.Latency[metrics.StageProcessing].Count, ShouldEqual, 1)
			})

			Convey("Then throughput reflects the recorded events", func() {
				So(snap.Throughput.EventsProcessed, ShouldEqual, 10)
				So(snap.Throughput.EventsPerSecond, ShouldBeGreaterThan, 0)
				So(snap.Counters["events_ingested"], ShouldEqual, 10)
			})
		})

		Convey("When resetting", func() {
			c.RecordLatency(metrics.StageIngestion, time.Millisecond)
			c.AddEvents(5)
			c.AddStreamPuts(5)
			c.Reset()

			snap := c.Snapshot()
			So(snap.Latency[metrics.StageIngestion].Count, ShouldEqual, 0)
			So(snap.Throughput.EventsProcessed, ShouldEqual, 0)
			So(snap.Cost.StreamPuts, ShouldEqual, 0)
		})
	})
}

func TestCollectorCost(t *testing.T) {
	Convey("Given the cost model", t, func() {
		c := metrics.NewCollector()

		Convey("When recording billable units", func() {
			c.AddStreamPuts(1_000_000)
			c.AddShardHours(2)
			c.AddInvocation(0.5)
			c.AddStoreWrites(1_000_000)
			c.AddStoreReads(2_000_000)
			c.AddObjectPuts(1000)
			c.AddObjectGets(1000)
			c.AddGatewayMessages(1_000_000)

			cost := c.Snapshot().Cost

			Convey("Then each component is priced at its list rate", func() {
				So(cost.StreamUSD, ShouldAlmostEqual, 14.0+2*0.015, 1e-9)
				So(cost.StoreUSD, ShouldAlmostEqual, 1.25+2*0.25, 1e-9)
				So(cost.ObjectUSD, ShouldAlmostEqual, 0.005+0.0004, 1e-9)
				So(cost.GatewayUSD, ShouldAlmostEqual, 1.0, 1e-9)
				So(cost.ComputeUSD, ShouldBeGreaterThan, 0)
			})

			Convey("Then the total is the sum of the components", func() {
				sum := cost.StreamUSD + cost.ComputeUSD + cost.StoreUSD + cost.ObjectUSD + cost.GatewayUSD
				So(cost.TotalUSD, ShouldAlmostEqual, sum, 1e-9)
			})

			Convey("Then the per-event cost follows the stream puts", func() {
				So(cost.CostPerEventUSD, ShouldAlmostEqual, cost.TotalUSD/1e6, 1e-12)
			})
		})

		Convey("When no events flowed", func() {
			cost := c.Snapshot().Cost
			So(cost.TotalUSD, ShouldEqual, 0)
			So(cost.CostPerEventUSD, ShouldEqual, 0)
		})

		Convey("When prices are overridden", func() {
			p := metrics.DefaultPrices()
			p.StreamPutPerMillion = 28.0
			custom := metrics.NewCollector(metrics.WithPrices(p))
			custom.AddStreamPuts(1_000_000)

			So(custom.Snapshot().Cost.StreamUSD, ShouldAlmostEqual, 28.0, 1e-9)
		})
	})
}

func TestManagerMirroring(t *testing.T) {
	Convey("Given a collector mirrored into a Prometheus manager", t, func() {
		m := metrics.NewManager()
		c := metrics.NewCollector(metrics.WithManager(m))

		Convey("When recording latency", func() {
			c.RecordLatency(metrics.StageIngestion, 3*time.Millisecond)

			families, err := m.Registry().Gather()
			So(err, ShouldBeNil)

			names := make(map[string]bool, len(families))
			for _, f := range families {
				names[f.GetName()] = true
			}

			Convey("Then the stage histogram is registered and populated", func() {
				So(names["matchpulse_pipeline_stage_latency_milliseconds"], ShouldBeTrue)
			})
		})

		Convey("When constructing a manager with a shared registry", func() {
			reg := prometheus.NewRegistry()
			shared := metrics.NewManager(metrics.WithRegistry(reg), metrics.WithNamespace("custom"))
			shared.RecordEventsIngested(3)

			families, err := reg.Gather()
			So(err, ShouldBeNil)

			found := false
			for _, f := range families {
				if f.GetName() == "custom_pipeline_events_ingested_total" {
					found = true
					So(f.GetMetric()[0].GetCounter().GetValue(), ShouldEqual, 3.0)
				}
			}
			So(found, ShouldBeTrue)
		})
	})
}
