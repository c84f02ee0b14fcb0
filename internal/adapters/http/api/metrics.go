package api

import (
	"net/http"
)

// MetricsHandler serves the derived metrics snapshot.
type MetricsHandler struct {
	deps Dependencies
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(deps Dependencies) *MetricsHandler {
	return &MetricsHandler{deps: deps}
}

// HandleSnapshot handles GET /metrics/snapshot requests: latency summaries
// per stage, throughput and the cost projection in one document.
func (h *MetricsHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snap, err := h.deps.MetricsSnapshot()
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
