package ledger

import "errors"

// Sentinel kinds for ledger operations. Callers match them with errors.Is.
var (
	ErrNotActive        = errors.New("ledger not active")
	ErrTooSoon          = errors.New("cooldown not elapsed")
	ErrDonationTooSmall = errors.New("donation below one token")
	ErrUnauthorized     = errors.New("caller is not admin")
	ErrInvalidConfig    = errors.New("invalid config value")
	ErrRootNotSet       = errors.New("merkle root not set")
	ErrAlreadyClaimed   = errors.New("already claimed")
	ErrInvalidProof     = errors.New("invalid merkle proof")
	ErrTransferFailed   = errors.New("token transfer failed")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrNotActive, "not_active"},
	{ErrTooSoon, "too_soon"},
	{ErrDonationTooSmall, "donation_too_small"},
	{ErrUnauthorized, "unauthorized"},
	{ErrInvalidConfig, "invalid_config"},
	{ErrRootNotSet, "root_not_set"},
	{ErrAlreadyClaimed, "already_claimed"},
	{ErrInvalidProof, "invalid_proof"},
	{ErrTransferFailed, "transfer_failed"},
}

// Kind returns a stable snake_case name for err's ledger kind, or "internal".
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// Retryable reports whether the same call may succeed later without any
// change on the caller's side.
func Retryable(err error) bool {
	return errors.Is(err, ErrNotActive) || errors.Is(err, ErrTooSoon)
}
