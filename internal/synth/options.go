package synth

import (
	"time"
)

// Option applies a configuration option to the Generator.
type Option func(*Generator, *int64)

// WithSeed sets the random seed; equal seeds yield equal output.
func WithSeed(seed int64) Option {
	return func(_ *Generator, s *int64) {
		*s = seed
	}
}

// WithTeams replaces the built-in roster.
func WithTeams(teams []Team) Option {
	return func(g *Generator, _ *int64) {
		if len(teams) >= 2 {
			g.teams = teams
		}
	}
}

// WithEventsPerMinute sets how many on-ball events one minute yields.
func WithEventsPerMinute(n int) Option {
	return func(g *Generator, _ *int64) {
		if n > 0 {
			g.eventsPerMinute = n
		}
	}
}

// WithBaseTime anchors event timestamps; they advance one second per event.
func WithBaseTime(t time.Time) Option {
	return func(g *Generator, _ *int64) {
		if !t.IsZero() {
			g.base = t
		}
	}
}
