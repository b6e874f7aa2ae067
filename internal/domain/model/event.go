// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// EventKind names a ledger event.
type EventKind string

// Ledger event kinds.
const (
	KindCheckIn           EventKind = "CheckIn"
	KindComboEnded        EventKind = "ComboEnded"
	KindAdminDeposit      EventKind = "AdminDeposit"
	KindCooldownUpdated   EventKind = "CooldownUpdated"
	KindStartTimeUpdated  EventKind = "StartTimeUpdated"
	KindEndTimeUpdated    EventKind = "EndTimeUpdated"
	KindMerkleRootUpdated EventKind = "MerkleRootUpdated"
	KindClaimed           EventKind = "Claimed"
)

// Event is one entry of the append-only ledger log.
//
// Payload fields are shared between kinds:
//
//	CheckIn           User, Amount (donation), Count (checkins), Combo, Marker
//	ComboEnded        User, Marker (start), Count (combo length), Value (end time)
//	AdminDeposit      User (admin), Amount
//	CooldownUpdated   Value (seconds)
//	StartTimeUpdated  Value (unix)
//	EndTimeUpdated    Value (unix)
//	MerkleRootUpdated Root
//	Claimed           User, Amount
type Event struct {
	Seq    uint64    // position in the log, starting at 1
	ID     uuid.UUID // unique id for downstream idempotency
	Height uint64    // ledger height of the mutation that emitted it
	Time   uint64    // unix seconds when the mutation was applied
	Kind   EventKind

	User   common.Address
	Amount uint256.Int
	Count  uint64
	Combo  uint64
	Marker uint64
	Value  uint64
	Root   common.Hash
}

// Timestamp returns Time as a time.Time in UTC.
func (e Event) Timestamp() time.Time {
	return time.Unix(int64(e.Time), 0).UTC() //nolint:gosec // ledger times fit int64
}
