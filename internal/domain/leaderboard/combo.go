package leaderboard

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"

	"github.com/okian/kegel/internal/domain/model"
)

// ComboKey identifies one streak of one user.
type ComboKey struct {
	User   common.Address
	Marker uint64
}

// ComboBoard ranks streaks by length, longest first, then by the earliest
// start marker. A user may hold several rows, one per streak.
type ComboBoard struct {
	*Board[ComboKey, model.ComboEntry]
}

// NewCombo creates an empty combo board.
func NewCombo(opts ...Option) *ComboBoard {
	cfg := newSettings(opts)
	less := func(a, b model.ComboEntry) bool {
		if a.ComboCount != b.ComboCount {
			return a.ComboCount > b.ComboCount
		}
		if a.StartMarker != b.StartMarker {
			return a.StartMarker < b.StartMarker
		}
		return bytes.Compare(a.User[:], b.User[:]) < 0
	}
	keyOf := func(e model.ComboEntry) ComboKey {
		return ComboKey{User: e.User, Marker: e.StartMarker}
	}
	return &ComboBoard{Board: newBoard(cfg.capacity, keyOf, less)}
}

// Upsert records the current length of a streak. It reports whether the
// streak made the board.
func (c *ComboBoard) Upsert(e model.ComboEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upsert(e)
}

// Top returns the board best first.
func (c *ComboBoard) Top() []model.ComboEntry {
	return c.Entries()
}
