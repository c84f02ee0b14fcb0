package archive

import (
	"github.com/kioko/matchpulse/pkg/metrics"
)

// Option applies a configuration option to the Archive.
type Option func(*Archive)

// WithRoot sets the directory the object tree lives under.
func WithRoot(root string) Option {
	return func(a *Archive) {
		if root != "" {
			a.root = root
		}
	}
}

// WithCompressionLevel sets the gzip level for new objects.
func WithCompressionLevel(level int) Option {
	return func(a *Archive) {
		a.level = level
	}
}

// WithCollector records object put and get units into the collector.
func WithCollector(c *metrics.Collector) Option {
	return func(a *Archive) {
		a.collector = c
	}
}

// WithManager mirrors archive counters into the metrics manager.
func WithManager(m *metrics.Manager) Option {
	return func(a *Archive) {
		a.manager = m
	}
}
