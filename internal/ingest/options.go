package ingest

import (
	"github.com/kioko/matchpulse/internal/domain/dedupe"
	"github.com/kioko/matchpulse/pkg/metrics"
	"github.com/kioko/matchpulse/pkg/retry"
)

// Option applies a configuration option to the Producer.
type Option func(*Producer)

// WithDeduper installs the idempotency guard.
func WithDeduper(d dedupe.Deduper) Option {
	return func(p *Producer) {
		p.deduper = d
	}
}

// WithRetryPolicy overrides the append retry schedule.
func WithRetryPolicy(policy *retry.Policy) Option {
	return func(p *Producer) {
		if policy != nil {
			p.policy = policy
		}
	}
}

// WithChunkSize caps how many events one stream call carries.
func WithChunkSize(n int) Option {
	return func(p *Producer) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// WithCollector records latency and cost samples into the collector.
func WithCollector(c *metrics.Collector) Option {
	return func(p *Producer) {
		p.collector = c
	}
}

// WithManager mirrors ingestion counters into the metrics manager.
func WithManager(m *metrics.Manager) Option {
	return func(p *Producer) {
		p.manager = m
	}
}
