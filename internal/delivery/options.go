package delivery

import (
	"time"

	"github.com/kioko/matchpulse/pkg/metrics"
)

// RegistryOption applies a configuration option to the Registry.
type RegistryOption func(*Registry)

// WithConnectionTTL sets how long an idle registration survives.
func WithConnectionTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithCollector records delivered message units into the collector.
func WithCollector(c *metrics.Collector) RegistryOption {
	return func(r *Registry) {
		r.collector = c
	}
}

// WithManager mirrors delivery counters into the metrics manager.
func WithManager(m *metrics.Manager) RegistryOption {
	return func(r *Registry) {
		r.manager = m
	}
}
