// Package service wires the pipeline together: stream, producer, processor,
// pump, hot store, archive and delivery registry, with one metrics collector
// shared across all of them.
package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/kioko/matchpulse/internal/adapters/archive"
	"github.com/kioko/matchpulse/internal/adapters/hotstore"
	"github.com/kioko/matchpulse/internal/adapters/stream"
	"github.com/kioko/matchpulse/internal/delivery"
	"github.com/kioko/matchpulse/internal/domain/analytics"
	"github.com/kioko/matchpulse/internal/domain/dedupe"
	"github.com/kioko/matchpulse/internal/domain/event"
	"github.com/kioko/matchpulse/internal/domain/threat"
	"github.com/kioko/matchpulse/internal/ingest"
	"github.com/kioko/matchpulse/internal/process"
	"github.com/kioko/matchpulse/pkg/logger"
	"github.com/kioko/matchpulse/pkg/metrics"
	"github.com/kioko/matchpulse/pkg/retry"
)

// Service owns the pipeline components and their lifecycle.
type Service struct {
	mu sync.RWMutex

	// Core components
	collector *metrics.Collector
	manager   *metrics.Manager
	stream    *stream.Stream
	producer  *ingest.Producer
	processor *process.Processor
	pump      *process.Pump
	store     *hotstore.Store
	archive   *archive.Archive
	registry  *delivery.Registry
	deduper   dedupe.Deduper

	// Configuration
	streamPartitions int
	streamBufferSize int
	ingestChunkSize  int
	dedupeSize       int
	retryAttempts    int
	retryBackoff     time.Duration
	retryMultiplier  float64
	pumpBatchSize    int
	pumpLinger       time.Duration
	hotStorePath     string
	storeChunkSize   int
	eventTTL         time.Duration
	metricTTL        time.Duration
	statTTL          time.Duration
	archiveRoot      string
	connectionTTL    time.Duration
	sweepInterval    time.Duration

	// State
	started bool
	stopCh  chan struct{}

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		streamPartitions: 4,
		streamBufferSize: 10_000,
		ingestChunkSize:  500,
		dedupeSize:       50_000,
		retryAttempts:    3,
		retryBackoff:     100 * time.Millisecond,
		retryMultiplier:  2.0,
		pumpBatchSize:    100,
		pumpLinger:       200 * time.Millisecond,
		storeChunkSize:   25,
		eventTTL:         30 * 24 * time.Hour,
		metricTTL:        90 * 24 * time.Hour,
		statTTL:          365 * 24 * time.Hour,
		archiveRoot:      "data/archive",
		connectionTTL:    time.Hour,
		sweepInterval:    time.Minute,
		stopCh:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds and starts the pipeline components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting pipeline service...")

	s.manager = metrics.NewManager()
	s.collector = metrics.NewCollector(metrics.WithManager(s.manager))

	s.stream = stream.New(
		stream.WithPartitions(s.streamPartitions),
		stream.WithBufferSize(s.streamBufferSize),
		stream.WithManager(s.manager),
	)

	store, err := hotstore.New(
		hotstore.WithPath(s.hotStorePath),
		hotstore.WithChunkSize(s.storeChunkSize),
		hotstore.WithTTL(hotstore.KindEvent, s.eventTTL),
		hotstore.WithTTL(hotstore.KindMetric, s.metricTTL),
		hotstore.WithTTL(hotstore.KindStat, s.statTTL),
		hotstore.WithCollector(s.collector),
		hotstore.WithManager(s.manager),
	)
	if err != nil {
		return err
	}
	s.store = store

	arch, err := archive.New(
		archive.WithRoot(s.archiveRoot),
		archive.WithCollector(s.collector),
		archive.WithManager(s.manager),
	)
	if err != nil {
		_ = s.store.Close()
		return err
	}
	s.archive = arch

	s.registry = delivery.NewRegistry(
		delivery.WithConnectionTTL(s.connectionTTL),
		delivery.WithCollector(s.collector),
		delivery.WithManager(s.manager),
	)

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)

	s.producer = ingest.New(s.stream,
		ingest.WithDeduper(s.deduper),
		ingest.WithChunkSize(s.ingestChunkSize),
		ingest.WithRetryPolicy(retry.New(
			retry.WithMaxAttempts(s.retryAttempts),
			retry.WithInitialBackoff(s.retryBackoff),
			retry.WithMultiplier(s.retryMultiplier),
		)),
		ingest.WithCollector(s.collector),
		ingest.WithManager(s.manager),
	)

	s.processor = process.NewProcessor(s.store, s.registry,
		process.WithCollector(s.collector),
		process.WithManager(s.manager),
	)

	s.pump = process.NewPump(s.stream, s.processor,
		process.WithBatchSize(s.pumpBatchSize),
		process.WithLinger(s.pumpLinger),
	)
	if err := s.pump.Start(ctx); err != nil {
		_ = s.store.Close()
		_ = s.stream.Close()
		return err
	}

	go s.sweepLoop()

	s.started = true
	s.logger.Info(ctx, "pipeline service started",
		logger.Int("partitions", s.streamPartitions),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("archiveRoot", s.archiveRoot),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping pipeline service...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	if s.stream != nil {
		_ = s.stream.Close()
	}
	if s.pump != nil {
		s.pump.Stop()
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "pipeline service stopped")
}

// sweepLoop prunes expired websocket registrations until Stop.
func (s *Service) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.registry.SweepExpired(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Submit validates and appends a single event to the stream.
func (s *Service) Submit(ctx context.Context, ev event.Event) error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	return s.producer.Submit(ctx, ev)
}

// SubmitBatch appends a batch of events, reporting per-event outcomes.
func (s *Service) SubmitBatch(ctx context.Context, batch *event.Batch) (ingest.BatchResult, error) {
	if !s.isStarted() {
		return ingest.BatchResult{}, ErrNotStarted
	}
	return s.producer.SubmitBatch(ctx, batch), nil
}

// MatchEvents returns every stored event of a match, decoded.
func (s *Service) MatchEvents(ctx context.Context, matchID string) ([]event.Event, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}

	raw, err := s.store.QueryMatch(ctx, hotstore.KindEvent, matchID)
	if err != nil {
		return nil, err
	}

	events := make([]event.Event, 0, len(raw))
	for _, data := range raw {
		ev, err := event.Decode(data)
		if err != nil {
			s.logger.Warn(ctx, "stored event failed to decode", logger.Error(err))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// PlayerMetrics computes a player's performance from the stored match
// events and persists the result in the metric tier.
func (s *Service) PlayerMetrics(ctx context.Context, matchID, playerID, teamID string, role analytics.Role) (analytics.PlayerPerformanceMetrics, error) {
	events, err := s.MatchEvents(ctx, matchID)
	if err != nil {
		return analytics.PlayerPerformanceMetrics{}, err
	}

	var own []*event.MatchEvent
	for _, ev := range events {
		if me, ok := ev.(*event.MatchEvent); ok && me.PlayerID == playerID {
			own = append(own, me)
		}
	}

	m := analytics.PlayerPerformance(playerID, teamID, matchID, role, own)
	s.persist(ctx, hotstore.KindMetric, matchID, playerID, m)
	return m, nil
}

// MatchStatistics aggregates the stored match events into team statistics
// and persists the result in the stat tier.
func (s *Service) MatchStatistics(ctx context.Context, matchID, homeTeamID, awayTeamID string) (analytics.MatchStatistics, error) {
	events, err := s.MatchEvents(ctx, matchID)
	if err != nil {
		return analytics.MatchStatistics{}, err
	}

	var match []*event.MatchEvent
	for _, ev := range events {
		if me, ok := ev.(*event.MatchEvent); ok {
			match = append(match, me)
		}
	}

	stats := analytics.MatchStats(matchID, homeTeamID, awayTeamID, match)
	s.persist(ctx, hotstore.KindStat, matchID, matchID, stats)
	return stats, nil
}

// TeamFormation derives a team's tactical shape from the stored tracking
// samples of a match and persists the result in the metric tier.
func (s *Service) TeamFormation(ctx context.Context, matchID, teamID string) (analytics.TeamFormation, error) {
	events, err := s.MatchEvents(ctx, matchID)
	if err != nil {
		return analytics.TeamFormation{}, err
	}

	var samples []*event.TrackingEvent
	for _, ev := range events {
		if te, ok := ev.(*event.TrackingEvent); ok && te.TeamID == teamID {
			samples = append(samples, te)
		}
	}
	if len(samples) == 0 {
		return analytics.TeamFormation{}, ErrNoTrackingData
	}

	f := analytics.Formation(matchID, teamID, samples)
	s.persist(ctx, hotstore.KindMetric, matchID, "formation_"+teamID, f)
	return f, nil
}

// AssessThreat evaluates the current attacking danger from the latest
// stored tracking samples and ball position of a match.
func (s *Service) AssessThreat(ctx context.Context, matchID, attackingTeamID, defendingTeamID string) (threat.Assessment, error) {
	events, err := s.MatchEvents(ctx, matchID)
	if err != nil {
		return threat.Assessment{}, err
	}

	latest := make(map[string]*event.TrackingEvent)
	var ball *event.Position
	var ballAt time.Time

	for _, ev := range events {
		switch v := ev.(type) {
		case *event.TrackingEvent:
			if cur, ok := latest[v.PlayerID]; !ok || v.Timestamp.After(cur.Timestamp) {
				latest[v.PlayerID] = v
			}
		case *event.GenericEvent:
			if v.Type != event.TypeBallPosition || !v.Timestamp.After(ballAt) {
				continue
			}
			if pos, ok := ballPosition(v.Fields); ok {
				ball = &pos
				ballAt = v.Timestamp
			}
		}
	}

	if ball == nil {
		return threat.Assessment{}, ErrNoBallPosition
	}

	var attackers, defenders []*event.TrackingEvent
	for _, te := range latest {
		switch te.TeamID {
		case attackingTeamID:
			attackers = append(attackers, te)
		case defendingTeamID:
			defenders = append(defenders, te)
		}
	}

	return threat.Assess(matchID, attackingTeamID, defendingTeamID, *ball, attackers, defenders), nil
}

// ValueDefensiveAction computes the DAxT value of a defensive intervention.
func (s *Service) ValueDefensiveAction(in threat.ActionInput) threat.DefensiveAction {
	return threat.DefensiveActionValue(in)
}

// ArchiveMatch snapshots every stored event of a match into the cold tier
// and returns the object key.
func (s *Service) ArchiveMatch(ctx context.Context, matchID string) (string, error) {
	if !s.isStarted() {
		return "", ErrNotStarted
	}

	raw, err := s.store.QueryMatch(ctx, hotstore.KindEvent, matchID)
	if err != nil {
		return "", err
	}

	events := make([]json.RawMessage, len(raw))
	for i, data := range raw {
		events[i] = json.RawMessage(data)
	}
	return s.archive.ArchiveEvents(ctx, matchID, time.Now(), events)
}

// ArchivedMatches lists the archived object keys for a match.
func (s *Service) ArchivedMatches(ctx context.Context, matchID string) ([]string, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return s.archive.List(ctx, matchID)
}

// ReadArchivedMatch reads one archived snapshot back.
func (s *Service) ReadArchivedMatch(ctx context.Context, objectKey string) (*archive.Object, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return s.archive.ReadObject(ctx, objectKey)
}

// MetricsSnapshot returns the collector's derived metrics export.
func (s *Service) MetricsSnapshot() (metrics.Snapshot, error) {
	if !s.isStarted() {
		return metrics.Snapshot{}, ErrNotStarted
	}
	return s.collector.Snapshot(), nil
}

// ResetMetrics clears the collector. Explicit operator action only.
func (s *Service) ResetMetrics() error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	s.collector.Reset()
	return nil
}

// WSHandler returns the websocket attach point for live subscriptions.
func (s *Service) WSHandler() (http.Handler, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return delivery.NewHandler(s.registry), nil
}

// Manager exposes the Prometheus manager for the scrape endpoint.
func (s *Service) Manager() (*metrics.Manager, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return s.manager, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"partitions": s.streamPartitions,
	}
	if s.started {
		stats["connections"] = s.registry.Size()
		stats["dedupeEntries"] = s.deduper.Size()
	}
	return stats
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// persist stores a derived analytics value, logging rather than failing the
// read path when the write misbehaves.
func (s *Service) persist(ctx context.Context, kind hotstore.Kind, matchID, id string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn(ctx, "derived value encode failed", logger.Error(err))
		return
	}
	if err := s.store.Put(ctx, hotstore.Record{Kind: kind, MatchID: matchID, ID: id, Data: data}); err != nil {
		s.logger.Warn(ctx, "derived value write failed", logger.Error(err))
	}
}

// ballPosition extracts pitch coordinates from a ball sample's passthrough
// fields.
func ballPosition(fields map[string]any) (event.Position, bool) {
	x, okX := asFloat(fields["x"])
	y, okY := asFloat(fields["y"])
	if !okX || !okY {
		return event.Position{}, false
	}
	return event.Position{X: x, Y: y}, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
