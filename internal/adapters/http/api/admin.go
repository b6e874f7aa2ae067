package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/okian/kegel/internal/domain/model"
)

// AdminDependencies defines the admin-only mutations.
type AdminDependencies interface {
	AdminDeposit(ctx context.Context, caller common.Address, amount *uint256.Int) ([]model.Event, error)
	SetCooldown(ctx context.Context, caller common.Address, seconds uint64) ([]model.Event, error)
	SetStartTime(ctx context.Context, caller common.Address, t uint64) ([]model.Event, error)
	SetEndTime(ctx context.Context, caller common.Address, t uint64) ([]model.Event, error)
	SetMerkleRoot(ctx context.Context, caller common.Address, root common.Hash) ([]model.Event, error)
}

// AdminHandler handles the admin routes. Authorization is the ledger's job;
// the handler only identifies the caller.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

type depositRequest struct {
	Amount string `json:"amount"`
}

type cooldownRequest struct {
	Cooldown uint64 `json:"cooldown"`
}

type timeRequest struct {
	Time uint64 `json:"time"`
}

type rootRequest struct {
	Root string `json:"root"`
}

// admin runs the shared caller and body handling, then apply.
func admin[T any](w http.ResponseWriter, r *http.Request, op string, apply func(ctx context.Context, caller common.Address, req T) ([]model.Event, error)) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", Wrap(op, err))
		return
	}
	var req T
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	events, err := apply(r.Context(), caller, req)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			writeError(w, http.StatusBadRequest, "bad_request", apiErr)
			return
		}
		writeLedgerError(w, r, op, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, newMutationResponse(events))
}

// HandleDeposit handles POST /admin/deposit.
func (h *AdminHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_deposit"
	admin(w, r, op, func(ctx context.Context, caller common.Address, req depositRequest) ([]model.Event, error) {
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, WrapKind(op, ErrBadRequest, err)
		}
		return h.deps.AdminDeposit(ctx, caller, amount)
	})
}

// HandleCooldown handles PUT /admin/cooldown.
func (h *AdminHandler) HandleCooldown(w http.ResponseWriter, r *http.Request) {
	admin(w, r, "api.admin_cooldown", func(ctx context.Context, caller common.Address, req cooldownRequest) ([]model.Event, error) {
		return h.deps.SetCooldown(ctx, caller, req.Cooldown)
	})
}

// HandleStartTime handles PUT /admin/start-time.
func (h *AdminHandler) HandleStartTime(w http.ResponseWriter, r *http.Request) {
	admin(w, r, "api.admin_start_time", func(ctx context.Context, caller common.Address, req timeRequest) ([]model.Event, error) {
		return h.deps.SetStartTime(ctx, caller, req.Time)
	})
}

// HandleEndTime handles PUT /admin/end-time.
func (h *AdminHandler) HandleEndTime(w http.ResponseWriter, r *http.Request) {
	admin(w, r, "api.admin_end_time", func(ctx context.Context, caller common.Address, req timeRequest) ([]model.Event, error) {
		return h.deps.SetEndTime(ctx, caller, req.Time)
	})
}

// HandleMerkleRoot handles PUT /admin/merkle-root.
func (h *AdminHandler) HandleMerkleRoot(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_merkle_root"
	admin(w, r, op, func(ctx context.Context, caller common.Address, req rootRequest) ([]model.Event, error) {
		root, err := parseHash(req.Root)
		if err != nil {
			return nil, WrapKind(op, ErrBadRequest, err)
		}
		return h.deps.SetMerkleRoot(ctx, caller, root)
	})
}
