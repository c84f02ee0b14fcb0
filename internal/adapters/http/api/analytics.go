package api

import (
	"net/http"
	"strings"
)

// AnalyticsHandler serves derived tactical analytics.
type AnalyticsHandler struct {
	deps Dependencies
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps Dependencies) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps}
}

// HandleFormation handles GET /analytics/formation/{match_id}/{team_id}
// requests: the team's tactical shape recomputed from stored tracking
// samples.
func (h *AnalyticsHandler) HandleFormation(w http.ResponseWriter, r *http.Request) {
	const op = "api.formation"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/analytics/formation/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	f, err := h.deps.TeamFormation(r.Context(), parts[0], parts[1])
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}
