// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
)

// Config contains process configuration for the pipeline service.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StreamPartitions sets the partition count of the event stream.
	StreamPartitions int `koanf:"stream_partitions"`

	// StreamBufferSize bounds the per-partition record buffer.
	StreamBufferSize int `koanf:"stream_buffer_size"`

	// IngestChunkSize caps how many events one stream call carries.
	IngestChunkSize int `koanf:"ingest_chunk_size"`

	// DedupeSize sets the size of the ingestion idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// RetryMaxAttempts, RetryInitialBackoffMS and RetryMultiplier shape the
	// bounded retry schedule at the ingestion and storage boundaries.
	RetryMaxAttempts      int     `koanf:"retry_max_attempts"`
	RetryInitialBackoffMS int     `koanf:"retry_initial_backoff_ms"`
	RetryMultiplier       float64 `koanf:"retry_multiplier"`

	// PumpBatchSize and PumpLingerMS bound how records are batched between
	// the stream and the processor.
	PumpBatchSize int `koanf:"pump_batch_size"`
	PumpLingerMS  int `koanf:"pump_linger_ms"`

	// HotStorePath locates the hot tier on disk; empty keeps it in memory.
	HotStorePath string `koanf:"hot_store_path"`

	// StoreChunkSize caps how many records one hot store write batch carries.
	StoreChunkSize int `koanf:"store_chunk_size"`

	// Retention per record kind, in days.
	EventTTLDays  int `koanf:"event_ttl_days"`
	MetricTTLDays int `koanf:"metric_ttl_days"`
	StatTTLDays   int `koanf:"stat_ttl_days"`

	// ArchiveRoot is the directory the cold tier writes under.
	ArchiveRoot string `koanf:"archive_root"`

	// ConnectionTTLMinutes bounds how long an idle websocket registration
	// survives.
	ConnectionTTLMinutes int `koanf:"connection_ttl_minutes"`

	// SweepIntervalSeconds sets how often expired connections are pruned.
	SweepIntervalSeconds int `koanf:"sweep_interval_seconds"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":8080",
		StreamPartitions:      4,
		StreamBufferSize:      10_000,
		IngestChunkSize:       500,
		DedupeSize:            50_000,
		RetryMaxAttempts:      3,
		RetryInitialBackoffMS: 100,
		RetryMultiplier:       2.0,
		PumpBatchSize:         100,
		PumpLingerMS:          200,
		HotStorePath:          "",
		StoreChunkSize:        25,
		EventTTLDays:          30,
		MetricTTLDays:         90,
		StatTTLDays:           365,
		ArchiveRoot:           "data/archive",
		ConnectionTTLMinutes:  60,
		SweepIntervalSeconds:  60,
	}
}
