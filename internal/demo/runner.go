// Package demo drives a simulated NPFL match through a running pipeline
// over its HTTP surface and reports what came out the other end.
package demo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"github.com/kioko/matchpulse/internal/domain/analytics"
	"github.com/kioko/matchpulse/internal/synth"
	"github.com/kioko/matchpulse/pkg/logger"
	"github.com/kioko/matchpulse/pkg/metrics"
)

// How long to let the pipeline drain before reading results back.
const processingDelay = 2 * time.Second

// Run simulates one match end to end: generate, submit, then read back the
// computed statistics and the metrics snapshot.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting demo match run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("minutes", config.Minutes),
		logger.Int("eventsPerMinute", config.EventsPerMinute),
		logger.Int64("seed", config.Seed),
		logger.Int("workers", config.Workers))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Generate the match.
	gen := synth.New(
		synth.WithSeed(config.Seed),
		synth.WithEventsPerMinute(config.EventsPerMinute),
	)
	home, away := gen.Pair()
	matchID := fmt.Sprintf("npfl_demo_%d", time.Now().Unix())

	events := gen.Match(matchID, home, away, config.Minutes)
	for frame := 1; frame <= config.TrackingFrames; frame++ {
		events = append(events, gen.TrackingFrame(matchID, home, away, frame)...)
	}
	stats.EventsGenerated = len(events)

	logger.Get().Info(ctx, "generated match",
		logger.String("matchID", matchID),
		logger.String("home", home.Name),
		logger.String("away", away.Name),
		logger.Int("events", len(events)))

	if err := submitEvents(ctx, config, events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	logger.Get().Info(ctx, "waiting for events to be processed")
	time.Sleep(processingDelay)

	if err := reportMatchStats(ctx, config, matchID, home.ID, away.ID); err != nil {
		logger.Get().Warn(ctx, "match stats retrieval failed", logger.Error(err))
	}
	if err := reportMetricsSnapshot(ctx, config); err != nil {
		logger.Get().Warn(ctx, "metrics snapshot retrieval failed", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "demo match completed")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// reportMatchStats fetches and logs the computed match statistics.
func reportMatchStats(ctx context.Context, config *Config, matchID, homeID, awayID string) error {
	client := newHTTPClient(config.Timeout)
	u := fmt.Sprintf("%s/matches/%s/stats?home=%s&away=%s",
		config.BaseURL, url.PathEscape(matchID), url.QueryEscape(homeID), url.QueryEscape(awayID))

	resp, err := client.Get(ctx, u)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("stats request failed with status: %d", resp.StatusCode)
	}

	var s analytics.MatchStatistics
	if err := json.Unmarshal(body, &s); err != nil {
		return err
	}

	logger.Get().Info(ctx, "final match statistics",
		logger.String("matchID", s.MatchID),
		logger.Int("homeScore", s.HomeScore),
		logger.Int("awayScore", s.AwayScore),
		logger.Int("homeShots", s.HomeShots),
		logger.Int("awayShots", s.AwayShots),
		logger.Float64("homeXG", s.HomeXG),
		logger.Float64("awayXG", s.AwayXG),
		logger.Float64("homePossession", s.HomePossession))
	return nil
}

// reportMetricsSnapshot fetches and logs the pipeline metrics snapshot.
func reportMetricsSnapshot(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)

	resp, err := client.Get(ctx, config.BaseURL+"/metrics/snapshot")
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("snapshot request failed with status: %d", resp.StatusCode)
	}

	var snap metrics.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return err
	}

	ingest := snap.Latency[metrics.StageIngestion]
	e2e := snap.Latency[metrics.StageEndToEnd]
	logger.Get().Info(ctx, "pipeline metrics snapshot",
		logger.Int("eventsIngested", ingest.Count),
		logger.Float64("ingestP95Ms", ingest.P95),
		logger.Float64("endToEndP95Ms", e2e.P95),
		logger.Float64("eventsPerSecond", snap.Throughput.EventsPerSecond),
		logger.Float64("totalUSD", snap.Cost.TotalUSD),
		logger.Float64("costPerEventUSD", snap.Cost.CostPerEventUSD))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, eventsPerSecond float64
	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsSuccessful) / float64(stats.EventsSubmitted) * 100
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
