package service

import (
	"time"

	"github.com/kioko/matchpulse/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets the logger used by the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStreamPartitions sets the partition count of the event stream.
func WithStreamPartitions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.streamPartitions = n
		}
	}
}

// WithStreamBufferSize bounds the per-partition record buffer.
func WithStreamBufferSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.streamBufferSize = n
		}
	}
}

// WithIngestChunkSize caps how many events one stream call carries.
func WithIngestChunkSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.ingestChunkSize = n
		}
	}
}

// WithDedupeSize sets the size of the ingestion idempotency cache.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithRetrySchedule shapes the bounded retry applied at the stream boundary.
func WithRetrySchedule(attempts int, initial time.Duration, multiplier float64) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.retryAttempts = attempts
		}
		if initial > 0 {
			s.retryBackoff = initial
		}
		if multiplier >= 1 {
			s.retryMultiplier = multiplier
		}
	}
}

// WithPumpBatchSize caps how many records one processed batch carries.
func WithPumpBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pumpBatchSize = n
		}
	}
}

// WithPumpLinger bounds how long a partial batch waits before flushing.
func WithPumpLinger(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pumpLinger = d
		}
	}
}

// WithHotStorePath locates the hot tier on disk; empty keeps it in memory.
func WithHotStorePath(path string) Option {
	return func(s *Service) {
		s.hotStorePath = path
	}
}

// WithStoreChunkSize caps how many records one hot store write batch carries.
func WithStoreChunkSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.storeChunkSize = n
		}
	}
}

// WithRetention sets the hot tier TTL per record kind.
func WithRetention(eventTTL, metricTTL, statTTL time.Duration) Option {
	return func(s *Service) {
		if eventTTL > 0 {
			s.eventTTL = eventTTL
		}
		if metricTTL > 0 {
			s.metricTTL = metricTTL
		}
		if statTTL > 0 {
			s.statTTL = statTTL
		}
	}
}

// WithArchiveRoot sets the directory the cold tier writes under.
func WithArchiveRoot(root string) Option {
	return func(s *Service) {
		if root != "" {
			s.archiveRoot = root
		}
	}
}

// WithConnectionTTL bounds how long an idle websocket registration survives.
func WithConnectionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.connectionTTL = d
		}
	}
}

// WithSweepInterval sets how often expired connections are pruned.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}
