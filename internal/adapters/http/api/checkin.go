package api

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/okian/kegel/internal/domain/ledger"
	"github.com/okian/kegel/internal/domain/model"
	"github.com/okian/kegel/internal/domain/types"
)

// CheckInDependencies defines what the check-in handler needs.
type CheckInDependencies interface {
	CheckIn(ctx context.Context, caller common.Address, donation *uint256.Int) ([]model.Event, error)
	Status(ctx context.Context, addr common.Address) (ledger.Status, error)
	Now() uint64
}

type checkInRequest struct {
	Donation string `json:"donation"`
}

type mutationResponse struct {
	Height uint64        `json:"height"`
	Events []types.Event `json:"events"`
}

func newMutationResponse(events []model.Event) mutationResponse {
	resp := mutationResponse{Events: types.FromEvents(events)}
	if n := len(events); n > 0 {
		resp.Height = events[n-1].Height
	}
	return resp
}

// CheckInHandler handles check-in requests.
type CheckInHandler struct {
	deps CheckInDependencies
}

// NewCheckInHandler creates a new check-in handler.
func NewCheckInHandler(deps CheckInDependencies) *CheckInHandler {
	return &CheckInHandler{deps: deps}
}

// HandleCheckIn handles POST /checkin.
func (h *CheckInHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	const op = "api.checkin"
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", Wrap(op, err))
		return
	}
	var req checkInRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	donation, err := parseAmount(req.Donation)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	events, err := h.deps.CheckIn(r.Context(), caller, donation)
	if err != nil {
		var wait uint64
		if ledger.Retryable(err) {
			st, serr := h.deps.Status(r.Context(), caller)
			if now := h.deps.Now(); serr == nil && st.NextCheckinTime > now {
				wait = st.NextCheckinTime - now
			}
		}
		writeLedgerError(w, r, op, err, wait)
		return
	}
	writeJSON(w, http.StatusOK, newMutationResponse(events))
}
