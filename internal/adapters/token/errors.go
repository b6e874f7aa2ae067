package token

import "errors"

// Sentinel kinds for token errors.
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrZeroAddress           = errors.New("zero address")
	ErrSupplyOverflow        = errors.New("total supply overflow")
)
