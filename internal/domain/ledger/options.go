package ledger

import (
	"github.com/google/uuid"

	"github.com/okian/kegel/internal/adapters/repository"
	"github.com/okian/kegel/internal/domain/claims"
)

type options struct {
	capacity int
	users    repository.Store
	claimed  claims.Registry
	newID    func() uuid.UUID
}

// Option applies a configuration option to the Ledger.
type Option func(*options)

// WithBoardCapacity sets the size of every leaderboard.
func WithBoardCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithUserStore replaces the in-memory user store.
func WithUserStore(s repository.Store) Option {
	return func(o *options) {
		if s != nil {
			o.users = s
		}
	}
}

// WithClaimRegistry replaces the in-memory claimed set.
func WithClaimRegistry(r claims.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.claimed = r
		}
	}
}

// WithIDGenerator sets the event id source.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}
