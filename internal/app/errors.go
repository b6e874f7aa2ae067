package service

import "errors"

var (
	// ErrNotStarted is returned by mutations before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrStopped is returned when the mutator exits before answering.
	ErrStopped = errors.New("service stopped")
)
