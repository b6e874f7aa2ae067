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

// ReadDependencies defines the point reads served from the ledger.
type ReadDependencies interface {
	Config() ledger.ConfigView
	Pool() (total *uint256.Int, height uint64, claims int64)
	UserData(ctx context.Context, addr common.Address) (model.UserRecord, error)
	Status(ctx context.Context, addr common.Address) (ledger.Status, error)
	Now() uint64
}

// ReadHandler serves configuration, pool and per-user reads.
type ReadHandler struct {
	deps ReadDependencies
}

// NewReadHandler creates a new read handler.
func NewReadHandler(deps ReadDependencies) *ReadHandler {
	return &ReadHandler{deps: deps}
}

// HandleConfig handles GET /config.
func (h *ReadHandler) HandleConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := h.deps.Config()
	out := types.Config{
		Admin:       cfg.Admin.Hex(),
		Pool:        cfg.Pool.Hex(),
		Decimals:    cfg.Decimals,
		MinDonation: cfg.MinDonation.Dec(),
		StartTime:   cfg.StartTime,
		EndTime:     cfg.EndTime,
		Cooldown:    cfg.Cooldown,
	}
	if cfg.RootSet {
		out.MerkleRoot = cfg.MerkleRoot.Hex()
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePool handles GET /pool.
func (h *ReadHandler) HandlePool(w http.ResponseWriter, _ *http.Request) {
	total, height, claims := h.deps.Pool()
	writeJSON(w, http.StatusOK, types.Pool{Total: total.Dec(), Height: height, Claims: claims})
}

// HandleUser handles GET /users/{address}. Unknown addresses read as zero.
func (h *ReadHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user"
	addr, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadAddress, err))
		return
	}
	rec, err := h.deps.UserData(r.Context(), addr)
	if err != nil {
		writeLedgerError(w, r, op, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, types.User{
		Address:          addr.Hex(),
		CheckinCount:     rec.CheckinCount,
		DonationTotal:    rec.DonationTotal.Dec(),
		LastCheckinTime:  rec.LastCheckinTime,
		CurrentCombo:     rec.CurrentCombo,
		ComboStartMarker: rec.ComboStartMarker,
	})
}

// HandleStatus handles GET /users/{address}/status.
func (h *ReadHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_status"
	addr, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadAddress, err))
		return
	}
	st, err := h.deps.Status(r.Context(), addr)
	if err != nil {
		writeLedgerError(w, r, op, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, types.Status{
		Address:         addr.Hex(),
		CanCheckIn:      st.CanCheckIn,
		NextCheckinTime: st.NextCheckinTime,
		ComboDeadline:   st.ComboDeadline,
		Claimed:         st.Claimed,
		Now:             h.deps.Now(),
	})
}
