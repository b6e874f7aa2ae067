package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/okian/kegel/internal/domain/model"
)

// maxProofLength covers trees far larger than any realistic allocation list.
const maxProofLength = 64

// ClaimDependencies defines what the claim handler needs.
type ClaimDependencies interface {
	Claim(ctx context.Context, caller common.Address, amount *uint256.Int, proof []common.Hash) ([]model.Event, error)
}

type claimRequest struct {
	Amount string   `json:"amount"`
	Proof  []string `json:"proof"`
}

// ClaimHandler handles claim requests.
type ClaimHandler struct {
	deps ClaimDependencies
}

// NewClaimHandler creates a new claim handler.
func NewClaimHandler(deps ClaimDependencies) *ClaimHandler {
	return &ClaimHandler{deps: deps}
}

// HandleClaim handles POST /claim.
func (h *ClaimHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	const op = "api.claim"
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", Wrap(op, err))
		return
	}
	var req claimRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	proof, err := parseProof(req.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	events, err := h.deps.Claim(r.Context(), caller, amount, proof)
	if err != nil {
		writeLedgerError(w, r, op, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, newMutationResponse(events))
}

func parseProof(raw []string) ([]common.Hash, error) {
	if len(raw) > maxProofLength {
		return nil, fmt.Errorf("proof has %d nodes, at most %d allowed", len(raw), maxProofLength)
	}
	out := make([]common.Hash, len(raw))
	for i, s := range raw {
		h, err := parseHash(s)
		if err != nil {
			return nil, fmt.Errorf("proof[%d]: %w", i, err)
		}
		out[i] = h
	}
	return out, nil
}

// parseHash reads a 0x-prefixed 32-byte hex string.
func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("want %d bytes, got %d", common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}
