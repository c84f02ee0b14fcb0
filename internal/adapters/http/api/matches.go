package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kioko/matchpulse/internal/adapters/archive"
	"github.com/kioko/matchpulse/internal/adapters/hotstore"
	service "github.com/kioko/matchpulse/internal/app"
	"github.com/kioko/matchpulse/internal/domain/analytics"
)

// MatchesHandler serves the per-match read surface.
type MatchesHandler struct {
	deps Dependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps Dependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// HandleMatches routes requests under /matches/{match_id}/...:
//
//	GET  /matches/{id}/events                         stored events
//	GET  /matches/{id}/stats?home=&away=              match statistics
//	GET  /matches/{id}/players/{player}/metrics       player performance
//	GET  /matches/{id}/threat?attacking=&defending=   threat assessment
//	POST /matches/{id}/archive                        snapshot to cold tier
//	GET  /matches/{id}/archive[?key=]                 list or read snapshots
func (h *MatchesHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.matches"

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/matches/"), "/"), "/")
	if len(parts) < 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	matchID := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "events" && r.Method == http.MethodGet:
		h.handleEvents(w, r, matchID)
	case len(parts) == 2 && parts[1] == "stats" && r.Method == http.MethodGet:
		h.handleStats(w, r, matchID)
	case len(parts) == 4 && parts[1] == "players" && parts[3] == "metrics" && r.Method == http.MethodGet:
		h.handlePlayerMetrics(w, r, matchID, parts[2])
	case len(parts) == 2 && parts[1] == "threat" && r.Method == http.MethodGet:
		h.handleThreat(w, r, matchID)
	case len(parts) == 2 && parts[1] == "archive" && r.Method == http.MethodPost:
		h.handleArchive(w, r, matchID)
	case len(parts) == 2 && parts[1] == "archive" && r.Method == http.MethodGet:
		h.handleArchiveRead(w, r, matchID)
	default:
		http.NotFound(w, r)
	}
}

func (h *MatchesHandler) handleEvents(w http.ResponseWriter, r *http.Request, matchID string) {
	events, err := h.deps.MatchEvents(r.Context(), matchID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"match_id": matchID,
		"count":    len(events),
		"events":   events,
	})
}

func (h *MatchesHandler) handleStats(w http.ResponseWriter, r *http.Request, matchID string) {
	const op = "api.match_stats"
	home := r.URL.Query().Get("home")
	away := r.URL.Query().Get("away")
	if home == "" || away == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	stats, err := h.deps.MatchStatistics(r.Context(), matchID, home, away)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *MatchesHandler) handlePlayerMetrics(w http.ResponseWriter, r *http.Request, matchID, playerID string) {
	const op = "api.player_metrics"
	teamID := r.URL.Query().Get("team")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	role := analytics.Role(r.URL.Query().Get("role"))
	if role == "" {
		role = analytics.RoleMidfielder
	}
	m, err := h.deps.PlayerMetrics(r.Context(), matchID, playerID, teamID, role)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MatchesHandler) handleThreat(w http.ResponseWriter, r *http.Request, matchID string) {
	const op = "api.match_threat"
	attacking := r.URL.Query().Get("attacking")
	defending := r.URL.Query().Get("defending")
	if attacking == "" || defending == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	a, err := h.deps.AssessThreat(r.Context(), matchID, attacking, defending)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *MatchesHandler) handleArchive(w http.ResponseWriter, r *http.Request, matchID string) {
	key, err := h.deps.ArchiveMatch(r.Context(), matchID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"match_id":   matchID,
		"object_key": key,
	})
}

func (h *MatchesHandler) handleArchiveRead(w http.ResponseWriter, r *http.Request, matchID string) {
	if key := r.URL.Query().Get("key"); key != "" {
		obj, err := h.deps.ReadArchivedMatch(r.Context(), key)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, obj)
		return
	}
	keys, err := h.deps.ArchivedMatches(r.Context(), matchID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"match_id": matchID,
		"keys":     keys,
	})
}

// writeUpstreamError translates upstream sentinels into HTTP statuses.
func writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hotstore.ErrNotFound),
		errors.Is(err, archive.ErrNotFound),
		errors.Is(err, service.ErrNoBallPosition),
		errors.Is(err, service.ErrNoTrackingData):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
