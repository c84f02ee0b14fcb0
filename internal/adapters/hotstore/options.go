package hotstore

import (
	"time"

	"github.com/kioko/matchpulse/pkg/metrics"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithPath sets the on-disk location. An empty path keeps the store in
// memory.
func WithPath(path string) Option {
	return func(s *Store) {
		s.path = path
	}
}

// WithTTL overrides the retention for one record kind.
func WithTTL(kind Kind, ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttls[kind] = ttl
		}
	}
}

// WithChunkSize caps how many records one write batch carries.
func WithChunkSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithCollector records read and write units into the collector.
func WithCollector(c *metrics.Collector) Option {
	return func(s *Store) {
		s.collector = c
	}
}

// WithManager mirrors store counters into the metrics manager.
func WithManager(m *metrics.Manager) Option {
	return func(s *Store) {
		s.manager = m
	}
}
