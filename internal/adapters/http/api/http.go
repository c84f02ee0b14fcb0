// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kioko/matchpulse/internal/adapters/archive"
	"github.com/kioko/matchpulse/internal/domain/analytics"
	"github.com/kioko/matchpulse/internal/domain/event"
	"github.com/kioko/matchpulse/internal/domain/threat"
	"github.com/kioko/matchpulse/internal/ingest"
	"github.com/kioko/matchpulse/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Submit(ctx context.Context, ev event.Event) error
	SubmitBatch(ctx context.Context, batch *event.Batch) (ingest.BatchResult, error)

	MatchEvents(ctx context.Context, matchID string) ([]event.Event, error)
	PlayerMetrics(ctx context.Context, matchID, playerID, teamID string, role analytics.Role) (analytics.PlayerPerformanceMetrics, error)
	MatchStatistics(ctx context.Context, matchID, homeTeamID, awayTeamID string) (analytics.MatchStatistics, error)
	TeamFormation(ctx context.Context, matchID, teamID string) (analytics.TeamFormation, error)
	AssessThreat(ctx context.Context, matchID, attackingTeamID, defendingTeamID string) (threat.Assessment, error)
	ValueDefensiveAction(in threat.ActionInput) threat.DefensiveAction

	ArchiveMatch(ctx context.Context, matchID string) (string, error)
	ArchivedMatches(ctx context.Context, matchID string) ([]string, error)
	ReadArchivedMatch(ctx context.Context, objectKey string) (*archive.Object, error)

	MetricsSnapshot() (metrics.Snapshot, error)
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	manager *metrics.Manager
	ws      http.Handler

	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	eventsHandler    *EventsHandler
	matchesHandler   *MatchesHandler
	threatHandler    *ThreatHandler
	analyticsHandler *AnalyticsHandler
	metricsHandler   *MetricsHandler
}

// NewServer creates a new API server with all handlers. The websocket
// handler is optional; nil leaves /ws unregistered.
func NewServer(deps Dependencies, manager *metrics.Manager, ws http.Handler) *Server {
	return &Server{
		manager:          manager,
		ws:               ws,
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		eventsHandler:    NewEventsHandler(deps),
		matchesHandler:   NewMatchesHandler(deps),
		threatHandler:    NewThreatHandler(deps),
		analyticsHandler: NewAnalyticsHandler(deps),
		metricsHandler:   NewMetricsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", s.instrument(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", s.instrument(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events/batch", s.instrument(s.eventsHandler.HandlePostBatch, "events_batch"))
	mux.HandleFunc("/events", s.instrument(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/matches/", s.instrument(s.matchesHandler.HandleMatches, "matches"))
	mux.HandleFunc("/threat/actions", s.instrument(s.threatHandler.HandlePostAction, "threat_actions"))
	mux.HandleFunc("/analytics/formation/", s.instrument(s.analyticsHandler.HandleFormation, "analytics_formation"))
	mux.HandleFunc("/metrics/snapshot", s.instrument(s.metricsHandler.HandleSnapshot, "metrics_snapshot"))

	if s.manager != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.manager.Registry(), promhttp.HandlerOpts{}))
	}
	if s.ws != nil {
		mux.Handle("/ws", s.ws)
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
