// Package metrics tracks pipeline latency, throughput and estimated
// operating cost for the matchpulse service.
//
// Two layers live here. Collector keeps raw in-process samples and derives
// percentile summaries and cost totals on demand; it is constructed per
// process and passed explicitly to components. Manager mirrors the hot
// counters into Prometheus for scrape-based monitoring.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Stage names a pipeline segment whose latency is tracked.
type Stage string

// Tracked stages.
const (
	StageIngestion  Stage = "ingestion"
	StageProcessing Stage = "processing"
	StageDelivery   Stage = "delivery"
	StageEndToEnd   Stage = "end_to_end"
)

// Stages lists every tracked stage in snapshot order.
var Stages = []Stage{StageIngestion, StageProcessing, StageDelivery, StageEndToEnd}

// Summary is the derived view over one stage's latency samples, in
// milliseconds.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Stddev float64 `json:"stddev"`
}

// ThroughputSnapshot reports event volume over the collector's lifetime.
type ThroughputSnapshot struct {
	EventsProcessed int64   `json:"events_processed"`
	DurationSeconds float64 `json:"duration_seconds"`
	EventsPerSecond float64 `json:"events_per_second"`
}

// Snapshot is the on-demand metrics export.
type Snapshot struct {
	Timestamp  time.Time          `json:"timestamp"`
	Latency    map[Stage]Summary  `json:"latency"`
	Throughput ThroughputSnapshot `json:"throughput"`
	Cost       CostSnapshot       `json:"cost"`
	Counters   map[string]int64   `json:"counters"`
}

// Collector accumulates latency samples, named counters and unit-priced
// cost counts for one process. Accumulation is additive; Reset is the only
// way to clear it.
type Collector struct {
	mu       sync.Mutex
	samples  map[Stage][]float64
	counters map[string]int64
	cost     costCounts
	prices   Prices

	events    int64
	startTime time.Time

	manager *Manager
}

// CollectorOption applies a configuration option to the Collector.
type CollectorOption func(*Collector)

// WithPrices overrides the default unit prices of the cost model.
func WithPrices(p Prices) CollectorOption {
	return func(c *Collector) { c.prices = p }
}

// WithManager mirrors recorded samples and counters into a Prometheus
// manager.
func WithManager(m *Manager) CollectorOption {
	return func(c *Collector) { c.manager = m }
}

// NewCollector constructs a Collector with default unit prices.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		samples:   make(map[Stage][]float64),
		counters:  make(map[string]int64),
		prices:    DefaultPrices(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordLatency adds one latency observation for a stage.
func (c *Collector) RecordLatency(stage Stage, d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)

	c.mu.Lock()
	c.samples[stage] = append(c.samples[stage], ms)
	c.mu.Unlock()

	if c.manager != nil {
		c.manager.ObserveStageLatency(string(stage), ms)
	}
}

// IncrCounter adds delta to a named monotonic counter.
func (c *Collector) IncrCounter(name string, delta int64) {
	c.mu.Lock()
	c.counters[name] += delta
	c.mu.Unlock()
}

// Counter returns the current value of a named counter.
func (c *Collector) Counter(name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

// AddEvents records n processed events for throughput accounting.
func (c *Collector) AddEvents(n int) {
	c.mu.Lock()
	c.events += int64(n)
	c.mu.Unlock()
}

// Snapshot derives the full metrics export from the accumulated samples.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	lat := make(map[Stage]Summary, len(Stages))
	for _, stage := range Stages {
		lat[stage] = summarize(c.samples[stage])
	}

	counters := make(map[string]int64, len(c.counters))
	for k, v := range c.counters {
		counters[k] = v
	}

	elapsed := time.Since(c.startTime).Seconds()
	tp := ThroughputSnapshot{
		EventsProcessed: c.events,
		DurationSeconds: elapsed,
	}
	if elapsed > 0 {
		tp.EventsPerSecond = float64(c.events) / elapsed
	}

	return Snapshot{
		Timestamp:  time.Now().UTC(),
		Latency:    lat,
		Throughput: tp,
		Cost:       c.cost.snapshot(c.prices),
		Counters:   counters,
	}
}

// StageSummary derives the summary for a single stage.
func (c *Collector) StageSummary(stage Stage) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return summarize(c.samples[stage])
}

// Reset clears all accumulated state. Only an explicit operator action
// calls this; nothing resets implicitly.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = make(map[Stage][]float64)
	c.counters = make(map[string]int64)
	c.cost = costCounts{}
	c.events = 0
	c.startTime = time.Now()
}

// summarize derives the percentile view over one stage's samples.
func summarize(samples []float64) Summary {
	n := len(samples)
	if n == 0 {
		return Summary{}
	}

	sorted := make([]float64, n)
	copy(sorted, samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range sorted {
		sq += (v - mean) * (v - mean)
	}
	stddev := 0.0
	if n > 1 {
		stddev = math.Sqrt(sq / float64(n-1))
	}

	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return Summary{
		Count:  n,
		Mean:   mean,
		Median: median,
		P50:    median,
		P95:    percentile(sorted, 0.95),
		P99:    percentile(sorted, 0.99),
		Min:    sorted[0],
		Max:    sorted[n-1],
		Stddev: stddev,
	}
}

// percentile indexes into the sorted samples; q in (0,1).
func percentile(sorted []float64, q float64) float64 {
	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
