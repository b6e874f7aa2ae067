// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/kegel/internal/domain/model"
	"github.com/okian/kegel/internal/domain/types"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
)

// EventsDependencies defines the interface for reading the event log.
type EventsDependencies interface {
	Events(after uint64, limit int) []model.Event
}

// EventsHandler pages through the ledger event log.
type EventsHandler struct {
	deps     EventsDependencies
	maxLimit int
}

type eventsResponse struct {
	Events []types.Event `json:"events"`
	Next   uint64        `json:"next"`
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventsDependencies, maxLimit int) *EventsHandler {
	return &EventsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleListEvents handles GET /events?after=N&limit=M. Next is the cursor
// for the following page.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	after, err := queryUint(r, "after", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	limit, err := queryUint(r, "limit", defaultEventsLimit)
	if err != nil || limit == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if limit > uint64(h.maxLimit) { //nolint:gosec // maxLimit is a small positive constant
		limit = uint64(h.maxLimit) //nolint:gosec // as above
	}

	events := h.deps.Events(after, int(limit)) //nolint:gosec // bounded by maxLimit
	next := after
	if n := len(events); n > 0 {
		next = events[n-1].Seq
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: types.FromEvents(events), Next: next})
}
