package api

import (
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/kioko/matchpulse/internal/domain/event"
	"github.com/kioko/matchpulse/internal/domain/threat"
)

// ThreatHandler values defensive actions on demand.
type ThreatHandler struct {
	deps Dependencies
}

// NewThreatHandler creates a new threat handler.
func NewThreatHandler(deps Dependencies) *ThreatHandler {
	return &ThreatHandler{deps: deps}
}

// actionRequest mirrors the request schema for POST /threat/actions.
type actionRequest struct {
	MatchID  string  `json:"match_id"`
	PlayerID string  `json:"player_id"`
	TeamID   string  `json:"team_id"`
	Type     string  `json:"action_type"`
	X        float64 `json:"position_x"`
	Y        float64 `json:"position_y"`

	ThreatBefore       float64 `json:"threat_before"`
	Successful         bool    `json:"successful"`
	PossessionRegained bool    `json:"possession_regained"`
}

func (a actionRequest) validate() error {
	switch {
	case a.MatchID == "":
		return NewKind("threat_action.match_id", ErrBadRequest)
	case a.PlayerID == "":
		return NewKind("threat_action.player_id", ErrBadRequest)
	case a.TeamID == "":
		return NewKind("threat_action.team_id", ErrBadRequest)
	case a.Type == "":
		return NewKind("threat_action.action_type", ErrBadRequest)
	case a.ThreatBefore < 0 || a.ThreatBefore > 1:
		return NewKind("threat_action.threat_before", ErrBadRequest)
	}
	return nil
}

// HandlePostAction handles POST /threat/actions requests.
func (h *ThreatHandler) HandlePostAction(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_threat_action"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req actionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	act := h.deps.ValueDefensiveAction(threat.ActionInput{
		MatchID:            req.MatchID,
		PlayerID:           req.PlayerID,
		TeamID:             req.TeamID,
		Type:               threat.ActionType(req.Type),
		Position:           event.Position{X: req.X, Y: req.Y},
		ThreatBefore:       req.ThreatBefore,
		Successful:         req.Successful,
		PossessionRegained: req.PossessionRegained,
	})
	writeJSON(w, http.StatusOK, act)
}
