package merkle

import "errors"

// Sentinel kinds for tree construction.
var (
	ErrNoLeaves     = errors.New("merkle: no leaves")
	ErrLeafNotFound = errors.New("merkle: leaf not in tree")
)
