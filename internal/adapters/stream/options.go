package stream

import "github.com/kioko/matchpulse/pkg/metrics"

// Option applies a configuration option to the Stream.
type Option func(*Stream)

// WithPartitions sets the partition count.
func WithPartitions(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.partitions = n
		}
	}
}

// WithBufferSize sets the per-partition output buffer.
func WithBufferSize(size int) Option {
	return func(s *Stream) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}

// WithTopicBase sets the topic name prefix for the partitions.
func WithTopicBase(base string) Option {
	return func(s *Stream) {
		if base != "" {
			s.topicBase = base
		}
	}
}

// WithManager records published counts into the metrics manager.
func WithManager(m *metrics.Manager) Option {
	return func(s *Stream) {
		s.manager = m
	}
}
