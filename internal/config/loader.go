package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if MATCHPULSE_CONFIG is set
//  3. env (prefix MATCHPULSE_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("MATCHPULSE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: MATCHPULSE_ADDR, MATCHPULSE_STREAM_PARTITIONS, ...
	// Keys map to the flat koanf tags with underscores preserved.
	envProvider := env.Provider("MATCHPULSE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "matchpulse_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the service cannot start with.
func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.StreamPartitions <= 0 {
		return fmt.Errorf("%w: stream_partitions must be positive", ErrInvalidConfig)
	}
	if c.IngestChunkSize <= 0 {
		return fmt.Errorf("%w: ingest_chunk_size must be positive", ErrInvalidConfig)
	}
	if c.RetryMaxAttempts <= 0 {
		return fmt.Errorf("%w: retry_max_attempts must be positive", ErrInvalidConfig)
	}
	if c.RetryMultiplier < 1 {
		return fmt.Errorf("%w: retry_multiplier must be at least 1", ErrInvalidConfig)
	}
	if c.PumpBatchSize <= 0 {
		return fmt.Errorf("%w: pump_batch_size must be positive", ErrInvalidConfig)
	}
	if c.StoreChunkSize <= 0 {
		return fmt.Errorf("%w: store_chunk_size must be positive", ErrInvalidConfig)
	}
	if c.EventTTLDays <= 0 || c.MetricTTLDays <= 0 || c.StatTTLDays <= 0 {
		return fmt.Errorf("%w: retention days must be positive", ErrInvalidConfig)
	}
	if c.ConnectionTTLMinutes <= 0 {
		return fmt.Errorf("%w: connection_ttl_minutes must be positive", ErrInvalidConfig)
	}
	return nil
}
