// Package types contains the JSON shapes served by the HTTP API.
//
// Amounts are base-unit decimal strings and addresses are checksummed hex,
// so no value loses precision in a JSON number.
package types

import (
	"time"

	"github.com/okian/kegel/internal/domain/model"
)

// Entry is a ranked row of the check-in or donation board.
type Entry struct {
	Rank    int    `json:"rank"`
	Address string `json:"address"`
	Value   string `json:"value"`
}

// ComboEntry is a ranked row of the combo board.
type ComboEntry struct {
	Rank        int    `json:"rank"`
	Address     string `json:"address"`
	StartMarker uint64 `json:"start_marker"`
	ComboCount  uint64 `json:"combo_count"`
}

// User is the public view of a user record.
type User struct {
	Address          string `json:"address"`
	CheckinCount     uint64 `json:"checkin_count"`
	DonationTotal    string `json:"donation_total"`
	LastCheckinTime  uint64 `json:"last_checkin_time"`
	CurrentCombo     uint64 `json:"current_combo"`
	ComboStartMarker uint64 `json:"combo_start_marker"`
}

// Status is the per-user action projection.
type Status struct {
	Address         string `json:"address"`
	CanCheckIn      bool   `json:"can_checkin"`
	NextCheckinTime uint64 `json:"next_checkin_time"`
	ComboDeadline   uint64 `json:"combo_deadline"`
	Claimed         bool   `json:"claimed"`
	Now             uint64 `json:"now"`
}

// Event is the public view of a ledger event. Kind-specific fields are
// omitted when unused.
type Event struct {
	Seq     uint64    `json:"seq"`
	ID      string    `json:"id"`
	Height  uint64    `json:"height"`
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	Address string    `json:"address,omitempty"`
	Amount  string    `json:"amount,omitempty"`
	Count   uint64    `json:"count,omitempty"`
	Combo   uint64    `json:"combo,omitempty"`
	Marker  uint64    `json:"marker,omitempty"`
	Value   uint64    `json:"value,omitempty"`
	Root    string    `json:"root,omitempty"`
}

// Config is the public ledger configuration.
type Config struct {
	Admin       string `json:"admin"`
	Pool        string `json:"pool"`
	Decimals    uint8  `json:"decimals"`
	MinDonation string `json:"min_donation"`
	StartTime   uint64 `json:"start_time"`
	EndTime     uint64 `json:"end_time"`
	Cooldown    uint64 `json:"cooldown"`
	MerkleRoot  string `json:"merkle_root,omitempty"`
}

// Pool is the reward pool summary.
type Pool struct {
	Total  string `json:"total"`
	Height uint64 `json:"height"`
	Claims int64  `json:"claims"`
}

// Balance is a wallet's token position.
type Balance struct {
	Address   string `json:"address"`
	Symbol    string `json:"symbol"`
	Decimals  uint8  `json:"decimals"`
	Balance   string `json:"balance"`
	Allowance string `json:"allowance"`
}

// FromScalars ranks board rows starting at 1.
func FromScalars(rows []model.ScalarEntry) []Entry {
	out := make([]Entry, len(rows))
	for i := range rows {
		out[i] = Entry{Rank: i + 1, Address: rows[i].User.Hex(), Value: rows[i].Value.Dec()}
	}
	return out
}

// FromCombos ranks combo rows starting at 1.
func FromCombos(rows []model.ComboEntry) []ComboEntry {
	out := make([]ComboEntry, len(rows))
	for i, r := range rows {
		out[i] = ComboEntry{Rank: i + 1, Address: r.User.Hex(), StartMarker: r.StartMarker, ComboCount: r.ComboCount}
	}
	return out
}

// FromEvent converts a ledger event.
func FromEvent(e model.Event) Event { //nolint:gocritic // hugeParam: read-only copy
	out := Event{
		Seq:    e.Seq,
		ID:     e.ID.String(),
		Height: e.Height,
		Time:   e.Timestamp(),
		Kind:   string(e.Kind),
		Count:  e.Count,
		Combo:  e.Combo,
		Marker: e.Marker,
		Value:  e.Value,
	}
	switch e.Kind {
	case model.KindCheckIn, model.KindAdminDeposit, model.KindClaimed:
		out.Address = e.User.Hex()
		out.Amount = e.Amount.Dec()
	case model.KindComboEnded:
		out.Address = e.User.Hex()
	case model.KindMerkleRootUpdated:
		out.Root = e.Root.Hex()
	}
	return out
}

// FromEvents converts a page of events.
func FromEvents(events []model.Event) []Event {
	out := make([]Event, len(events))
	for i := range events {
		out[i] = FromEvent(events[i])
	}
	return out
}
