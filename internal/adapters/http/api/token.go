package api

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/okian/kegel/internal/domain/types"
)

// TokenDependencies exposes the token's wallet surface.
type TokenDependencies interface {
	Approve(ctx context.Context, owner, spender common.Address, amount *uint256.Int) error
	Balance(ctx context.Context, owner common.Address) (balance, allowance *uint256.Int)
	TokenInfo() (symbol string, decimals uint8)
}

// TokenHandler serves approvals and balances.
type TokenHandler struct {
	deps TokenDependencies
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(deps TokenDependencies) *TokenHandler {
	return &TokenHandler{deps: deps}
}

type approveRequest struct {
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// HandleApprove handles POST /token/approve.
func (h *TokenHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	const op = "api.token_approve"
	owner, err := callerFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", Wrap(op, err))
		return
	}
	var req approveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	spender, err := parseAddress(req.Spender)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.Approve(r.Context(), owner, spender, amount); err != nil {
		writeError(w, http.StatusBadRequest, "approve_failed", Wrap(op, err))
		return
	}
	h.writeBalance(w, r, owner)
}

// HandleBalance handles GET /token/{address}.
func (h *TokenHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	const op = "api.token_balance"
	addr, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadAddress, err))
		return
	}
	h.writeBalance(w, r, addr)
}

func (h *TokenHandler) writeBalance(w http.ResponseWriter, r *http.Request, addr common.Address) {
	balance, allowance := h.deps.Balance(r.Context(), addr)
	symbol, decimals := h.deps.TokenInfo()
	writeJSON(w, http.StatusOK, types.Balance{
		Address:   addr.Hex(),
		Symbol:    symbol,
		Decimals:  decimals,
		Balance:   balance.Dec(),
		Allowance: allowance.Dec(),
	})
}
