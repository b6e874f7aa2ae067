package ledger

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/okian/kegel/internal/domain/model"
	"github.com/okian/kegel/internal/domain/streak"
)

// ConfigView is a read-only copy of the ledger configuration.
type ConfigView struct {
	Admin       common.Address
	Pool        common.Address
	Decimals    uint8
	MinDonation uint256.Int
	StartTime   uint64
	EndTime     uint64
	Cooldown    uint64
	MerkleRoot  common.Hash
	RootSet     bool
}

// Status is the per-user projection used by clients before acting.
type Status struct {
	CanCheckIn      bool
	NextCheckinTime uint64
	ComboDeadline   uint64
	Claimed         bool
}

// Snapshot is a consistent view of the ranked state at one height.
type Snapshot struct {
	Height    uint64
	TotalPool uint256.Int
	Users     int
	Claims    int64
	Events    uint64
	Checkins  []model.ScalarEntry
	Donations []model.ScalarEntry
	Combos    []model.ComboEntry
}

// Config returns the current configuration.
func (l *Ledger) Config() ConfigView {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ConfigView{
		Admin:       l.admin,
		Pool:        l.pool,
		Decimals:    l.decimals,
		MinDonation: l.unit,
		StartTime:   l.startTime,
		EndTime:     l.endTime,
		Cooldown:    l.cooldown,
		MerkleRoot:  l.root,
		RootSet:     l.rootSet,
	}
}

// IsAdmin reports whether addr is the ledger admin.
func (l *Ledger) IsAdmin(addr common.Address) bool {
	return addr == l.admin
}

// TotalPool returns the cumulative donations and deposits.
func (l *Ledger) TotalPool() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(uint256.Int).Set(&l.totalPool)
}

// Height returns the number of accepted mutations.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.height
}

// UserData returns addr's record; unknown addresses read as zero.
func (l *Ledger) UserData(ctx context.Context, addr common.Address) (model.UserRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.recordLocked(ctx, addr)
}

// CanCheckIn reports whether addr could check in at now, ignoring the donation.
func (l *Ledger) CanCheckIn(ctx context.Context, now uint64, addr common.Address) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, err := l.recordLocked(ctx, addr)
	if err != nil {
		return false, err
	}
	return l.activeLocked(now) && streak.Admissible(now, rec, l.cooldown), nil
}

// NextCheckinTime returns the earliest time addr may check in, never before
// the start time.
func (l *Ledger) NextCheckinTime(ctx context.Context, addr common.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, err := l.recordLocked(ctx, addr)
	if err != nil {
		return 0, err
	}
	return max(l.startTime, streak.NextAllowed(rec, l.cooldown)), nil
}

// ComboDeadline returns the last instant addr can extend the current streak,
// or 0 when there is no live streak at now.
func (l *Ledger) ComboDeadline(ctx context.Context, now uint64, addr common.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, err := l.recordLocked(ctx, addr)
	if err != nil {
		return 0, err
	}
	return l.deadlineLocked(now, rec), nil
}

// Status bundles the per-user projections at now.
func (l *Ledger) Status(ctx context.Context, now uint64, addr common.Address) (Status, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, err := l.recordLocked(ctx, addr)
	if err != nil {
		return Status{}, err
	}
	return Status{
		CanCheckIn:      l.activeLocked(now) && streak.Admissible(now, rec, l.cooldown),
		NextCheckinTime: max(l.startTime, streak.NextAllowed(rec, l.cooldown)),
		ComboDeadline:   l.deadlineLocked(now, rec),
		Claimed:         l.claimed.Claimed(ctx, addr),
	}, nil
}

// HasClaimed reports whether addr already received its payout.
func (l *Ledger) HasClaimed(ctx context.Context, addr common.Address) bool {
	return l.claimed.Claimed(ctx, addr)
}

// CheckinLeaderboard returns the top users by check-in count.
func (l *Ledger) CheckinLeaderboard() []model.ScalarEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.checkins.Top()
}

// DonationLeaderboard returns the top users by donation total.
func (l *Ledger) DonationLeaderboard() []model.ScalarEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.donations.Top()
}

// ComboLeaderboard returns the longest streaks.
func (l *Ledger) ComboLeaderboard() []model.ComboEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.combos.Top()
}

// Events returns up to limit events with Seq greater than after.
func (l *Ledger) Events(after uint64, limit int) []model.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	start := sort.Search(len(l.events), func(i int) bool { return l.events[i].Seq > after })
	end := len(l.events)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	out := make([]model.Event, end-start)
	copy(out, l.events[start:end])
	return out
}

// Snapshot captures the ranked state under a single read lock.
func (l *Ledger) Snapshot(ctx context.Context) Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Height:    l.height,
		TotalPool: l.totalPool,
		Users:     l.users.Count(ctx),
		Claims:    l.claimed.Size(),
		Events:    uint64(len(l.events)),
		Checkins:  l.checkins.Top(),
		Donations: l.donations.Top(),
		Combos:    l.combos.Top(),
	}
}

func (l *Ledger) deadlineLocked(now uint64, rec model.UserRecord) uint64 {
	if !rec.HasCheckedIn() {
		return 0
	}
	d := streak.Deadline(rec.LastCheckinTime, l.cooldown)
	if now > d {
		return 0
	}
	return d
}
