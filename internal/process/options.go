package process

import (
	"time"

	"github.com/kioko/matchpulse/pkg/metrics"
)

// ProcessorOption applies a configuration option to the Processor.
type ProcessorOption func(*Processor)

// WithCollector records latency and throughput samples into the collector.
func WithCollector(c *metrics.Collector) ProcessorOption {
	return func(p *Processor) {
		p.collector = c
	}
}

// WithManager mirrors processing counters into the metrics manager.
func WithManager(m *metrics.Manager) ProcessorOption {
	return func(p *Processor) {
		p.manager = m
	}
}

// PumpOption applies a configuration option to the Pump.
type PumpOption func(*Pump)

// WithBatchSize caps how many records one processed batch carries.
func WithBatchSize(n int) PumpOption {
	return func(p *Pump) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithLinger bounds how long a partial batch waits before flushing.
func WithLinger(d time.Duration) PumpOption {
	return func(p *Pump) {
		if d > 0 {
			p.linger = d
		}
	}
}
