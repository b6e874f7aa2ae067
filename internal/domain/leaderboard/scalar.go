package leaderboard

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/okian/kegel/internal/domain/model"
)

type scalarRow struct {
	entry model.ScalarEntry
	seq   uint64
}

// ScalarBoard ranks users by a single value, highest first. Equal values
// keep the order in which rows were last written.
type ScalarBoard struct {
	*Board[common.Address, scalarRow]
	seq uint64
}

// NewScalar creates an empty scalar board.
func NewScalar(opts ...Option) *ScalarBoard {
	cfg := newSettings(opts)
	less := func(a, b scalarRow) bool {
		if c := a.entry.Value.Cmp(&b.entry.Value); c != 0 {
			return c > 0
		}
		return a.seq < b.seq
	}
	keyOf := func(r scalarRow) common.Address { return r.entry.User }
	return &ScalarBoard{Board: newBoard(cfg.capacity, keyOf, less)}
}

// Upsert sets user's value. It reports whether the user made the board.
func (s *ScalarBoard) Upsert(user common.Address, value *uint256.Int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	row := scalarRow{entry: model.ScalarEntry{User: user, Value: *value}, seq: s.seq}
	return s.upsert(row)
}

// Top returns the board best first.
func (s *ScalarBoard) Top() []model.ScalarEntry {
	rows := s.Entries()
	out := make([]model.ScalarEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry
	}
	return out
}
