// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"

	"github.com/okian/kegel/internal/domain/model"
	"github.com/okian/kegel/internal/domain/types"
)

const maxLeaderboardLimit = 50

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	CheckinLeaderboard() []model.ScalarEntry
	DonationLeaderboard() []model.ScalarEntry
	ComboLeaderboard() []model.ComboEntry
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboards/{board}?limit=N where board
// is checkin, donation or combo. Without a limit the whole board is returned.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	n := h.maxLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if v > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}

	switch r.PathValue("board") {
	case "checkin":
		writeJSON(w, http.StatusOK, types.FromScalars(head(h.deps.CheckinLeaderboard(), n)))
	case "donation":
		writeJSON(w, http.StatusOK, types.FromScalars(head(h.deps.DonationLeaderboard(), n)))
	case "combo":
		writeJSON(w, http.StatusOK, types.FromCombos(head(h.deps.ComboLeaderboard(), n)))
	default:
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrUnknownBoard))
	}
}

func head[E any](rows []E, n int) []E {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
