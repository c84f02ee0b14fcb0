// Package retry provides the bounded retry policy applied at the
// ingestion, storage and delivery boundaries. No operation retries
// indefinitely: a policy runs its fixed attempt budget and surfaces the
// last error.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default policy: 3 attempts at 100ms, 200ms, 400ms.
const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMultiplier     = 2.0
)

// Policy is a reusable bounded-backoff schedule. The zero value is not
// usable; construct with New.
type Policy struct {
	maxAttempts int
	initial     time.Duration
	multiplier  float64
}

// Option applies a configuration option to the Policy.
type Option func(*Policy)

// WithMaxAttempts sets the total attempt budget (first try included).
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithInitialBackoff sets the delay before the first retry.
func WithInitialBackoff(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.initial = d
		}
	}
}

// WithMultiplier sets the backoff growth factor between retries.
func WithMultiplier(m float64) Option {
	return func(p *Policy) {
		if m >= 1 {
			p.multiplier = m
		}
	}
}

// New constructs a Policy with the default 3-attempt exponential schedule.
func New(opts ...Option) *Policy {
	p := &Policy{
		maxAttempts: defaultMaxAttempts,
		initial:     defaultInitialBackoff,
		multiplier:  defaultMultiplier,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxAttempts returns the configured attempt budget.
func (p *Policy) MaxAttempts() int { return p.maxAttempts }

// Do runs op until it succeeds, the attempt budget is exhausted, or ctx is
// canceled. The schedule is deterministic (no jitter) so the documented
// 100/200/400ms cadence holds.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initial
	b.Multiplier = p.multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.MaxInterval = time.Minute

	budget := backoff.WithMaxRetries(b, uint64(p.maxAttempts-1))
	return backoff.Retry(func() error {
		return op(ctx)
	}, backoff.WithContext(budget, ctx))
}

// Permanent marks err as non-retryable; Do returns it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
