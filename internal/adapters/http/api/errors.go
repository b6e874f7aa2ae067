package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/kegel/internal/domain/ledger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrMissingCaller = errors.New("missing X-Wallet-Address header")
	ErrBadAddress    = errors.New("invalid address")
	ErrBadAmount     = errors.New("invalid amount")
	ErrUnknownBoard  = errors.New("unknown leaderboard")
)

// Error carries the handler operation and a sentinel kind alongside the cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Kind == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and a sentinel kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// ledgerStatus maps a rejected mutation to an HTTP status.
func ledgerStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotActive),
		errors.Is(err, ledger.ErrRootNotSet),
		errors.Is(err, ledger.ErrAlreadyClaimed):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrTooSoon):
		return http.StatusTooManyRequests
	case errors.Is(err, ledger.ErrDonationTooSmall),
		errors.Is(err, ledger.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrInvalidProof):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrTransferFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
