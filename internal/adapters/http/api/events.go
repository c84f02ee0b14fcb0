package api

import (
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/kioko/matchpulse/internal/domain/event"
	"github.com/kioko/matchpulse/internal/ingest"
)

// Request bodies larger than this are rejected outright.
const maxBodyBytes = 4 << 20

// EventsHandler handles event submission requests.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandlePostEvent handles POST /events requests. The body is one typed
// event; the variant is dispatched from its event_type tag.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	ev, err := event.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	if err := h.deps.Submit(r.Context(), ev); err != nil {
		switch {
		case errors.Is(err, ingest.ErrDuplicate):
			writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", EventID: ev.Head().EventID, Duplicate: true})
		case isValidation(err):
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: ev.Head().EventID})
}

// HandlePostBatch handles POST /events/batch requests. The body is a batch
// document; per-event outcomes come back in the response.
func (h *EventsHandler) HandlePostBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var batch event.Batch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&batch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if batch.MatchID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	res, err := h.deps.SubmitBatch(r.Context(), &batch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// isValidation reports whether err stems from event field validation.
func isValidation(err error) bool {
	var verr *event.ValidationError
	return errors.As(err, &verr)
}
