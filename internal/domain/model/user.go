package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// UserRecord is the per-address ledger state. It is created on first
// check-in and never deleted.
type UserRecord struct {
	CheckinCount     uint64
	DonationTotal    uint256.Int
	LastCheckinTime  uint64 // unix seconds; meaningful only once CheckinCount > 0
	CurrentCombo     uint64
	ComboStartMarker uint64 // ledger height at which the current streak began
}

// HasCheckedIn reports whether the user ever checked in.
func (u UserRecord) HasCheckedIn() bool { return u.CheckinCount > 0 }

// ScalarEntry is a leaderboard row keyed by user alone.
type ScalarEntry struct {
	User  common.Address
	Value uint256.Int
}

// ComboEntry is a combo leaderboard row. A user may appear once per streak.
type ComboEntry struct {
	User        common.Address
	StartMarker uint64
	ComboCount  uint64
}
