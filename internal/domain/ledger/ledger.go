// Package ledger is the check-in ledger aggregate.
//
// A Ledger owns all mutable state: configuration, user records, the three
// leaderboards, the reward pool, the claimed set and the event log. Every
// mutation validates first, then performs its single token transfer, then
// applies infallible state changes, so a rejected call leaves no trace.
// Mutations take the current time as an argument.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/okian/kegel/internal/adapters/repository"
	"github.com/okian/kegel/internal/domain/claims"
	"github.com/okian/kegel/internal/domain/leaderboard"
	"github.com/okian/kegel/internal/domain/merkle"
	"github.com/okian/kegel/internal/domain/model"
	"github.com/okian/kegel/internal/domain/streak"
)

// Token is the custody collaborator that moves funds.
type Token interface {
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
	TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) error
}

// MaxTime bounds every configured timestamp and the cooldown to the range of
// a signed unix time.
const MaxTime = uint64(math.MaxInt64)

// Settings is the construction-time configuration.
type Settings struct {
	Admin     common.Address
	Pool      common.Address // custody account and token spender
	Decimals  uint8
	StartTime uint64
	EndTime   uint64 // 0 means open ended
	Cooldown  uint64 // seconds
	// MerkleRoot seeds the claim root when non-nil.
	MerkleRoot *common.Hash
}

// Ledger is the single owned aggregate. It is safe for concurrent use, but
// callers are expected to funnel mutations through one goroutine.
type Ledger struct {
	mu sync.RWMutex

	admin     common.Address
	pool      common.Address
	decimals  uint8
	unit      uint256.Int
	startTime uint64
	endTime   uint64
	cooldown  uint64
	root      common.Hash
	rootSet   bool
	totalPool uint256.Int
	height    uint64

	users     repository.Store
	checkins  *leaderboard.ScalarBoard
	donations *leaderboard.ScalarBoard
	combos    *leaderboard.ComboBoard
	claimed   claims.Registry
	token     Token
	events    []model.Event
	newID     func() uuid.UUID
}

// New validates s and builds an empty ledger.
func New(s Settings, tok Token, opts ...Option) (*Ledger, error) {
	if s.Admin == (common.Address{}) || s.Pool == (common.Address{}) {
		return nil, fmt.Errorf("%w: admin and pool must be set", ErrInvalidConfig)
	}
	if s.Cooldown == 0 {
		return nil, fmt.Errorf("%w: cooldown must be positive", ErrInvalidConfig)
	}
	if s.StartTime > MaxTime || s.EndTime > MaxTime || s.Cooldown > MaxTime {
		return nil, fmt.Errorf("%w: times out of range", ErrInvalidConfig)
	}
	if s.EndTime != 0 && s.EndTime <= s.StartTime {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrInvalidConfig)
	}
	if s.Decimals > 77 {
		return nil, fmt.Errorf("%w: decimals out of range", ErrInvalidConfig)
	}
	if tok == nil {
		return nil, errors.New("ledger: token is required")
	}

	cfg := options{capacity: leaderboard.DefaultCapacity, newID: uuid.New}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.users == nil {
		cfg.users = repository.NewMemoryStore()
	}
	if cfg.claimed == nil {
		cfg.claimed = claims.NewInMemoryRegistry()
	}

	l := &Ledger{
		admin:     s.Admin,
		pool:      s.Pool,
		decimals:  s.Decimals,
		startTime: s.StartTime,
		endTime:   s.EndTime,
		cooldown:  s.Cooldown,
		users:     cfg.users,
		checkins:  leaderboard.NewScalar(leaderboard.WithCapacity(cfg.capacity)),
		donations: leaderboard.NewScalar(leaderboard.WithCapacity(cfg.capacity)),
		combos:    leaderboard.NewCombo(leaderboard.WithCapacity(cfg.capacity)),
		claimed:   cfg.claimed,
		token:     tok,
		newID:     cfg.newID,
	}
	l.unit.Exp(uint256.NewInt(10), uint256.NewInt(uint64(s.Decimals)))
	if s.MerkleRoot != nil {
		l.root, l.rootSet = *s.MerkleRoot, true
	}
	return l, nil
}

// CheckIn records a check-in by caller carrying donation base units.
func (l *Ledger) CheckIn(ctx context.Context, now uint64, caller common.Address, donation *uint256.Int) ([]model.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.activeLocked(now) {
		return nil, ErrNotActive
	}
	if donation.Lt(&l.unit) {
		return nil, ErrDonationTooSmall
	}
	rec, err := l.recordLocked(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !streak.Admissible(now, rec, l.cooldown) {
		return nil, ErrTooSoon
	}
	donated, overflow := new(uint256.Int).AddOverflow(&rec.DonationTotal, donation)
	if overflow {
		return nil, fmt.Errorf("%w: donation total overflows", ErrInvalidConfig)
	}
	pooled, overflow := new(uint256.Int).AddOverflow(&l.totalPool, donation)
	if overflow {
		return nil, fmt.Errorf("%w: pool total overflows", ErrInvalidConfig)
	}
	if err = l.token.TransferFrom(ctx, l.pool, caller, l.pool, donation); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	l.height++
	out := streak.Advance(now, rec, l.cooldown, l.height)
	var emitted []model.Event
	if out.Ended != nil {
		// The closed streak keeps its final length on the board.
		l.combos.Upsert(model.ComboEntry{User: caller, StartMarker: out.Ended.StartMarker, ComboCount: out.Ended.ComboCount})
		emitted = append(emitted, l.emitLocked(now, model.Event{
			Kind:   model.KindComboEnded,
			User:   caller,
			Marker: out.Ended.StartMarker,
			Count:  out.Ended.ComboCount,
			Value:  out.Ended.EndTime,
		}))
	}

	rec.CheckinCount++
	rec.DonationTotal = *donated
	rec.LastCheckinTime = now
	rec.CurrentCombo = out.Combo
	rec.ComboStartMarker = out.Marker
	l.users.Put(ctx, caller, rec)

	l.checkins.Upsert(caller, uint256.NewInt(rec.CheckinCount))
	l.donations.Upsert(caller, &rec.DonationTotal)
	l.combos.Upsert(model.ComboEntry{User: caller, StartMarker: rec.ComboStartMarker, ComboCount: rec.CurrentCombo})

	l.totalPool = *pooled

	ev := model.Event{
		Kind:   model.KindCheckIn,
		User:   caller,
		Count:  rec.CheckinCount,
		Combo:  rec.CurrentCombo,
		Marker: rec.ComboStartMarker,
	}
	ev.Amount.Set(donation)
	emitted = append(emitted, l.emitLocked(now, ev))
	return emitted, nil
}

// Claim pays amount to caller if proof links (caller, amount) to the root.
func (l *Ledger) Claim(ctx context.Context, now uint64, caller common.Address, amount *uint256.Int, proof []common.Hash) ([]model.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.rootSet {
		return nil, ErrRootNotSet
	}
	if l.claimed.Claimed(ctx, caller) {
		return nil, ErrAlreadyClaimed
	}
	if !merkle.Verify(proof, l.root, merkle.LeafHash(caller, amount)) {
		return nil, ErrInvalidProof
	}
	if err := l.token.Transfer(ctx, l.pool, caller, amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	l.height++
	l.claimed.SeenAndRecord(ctx, caller)
	ev := model.Event{Kind: model.KindClaimed, User: caller}
	ev.Amount.Set(amount)
	return []model.Event{l.emitLocked(now, ev)}, nil
}

// AdminDeposit moves amount from the admin into the pool.
func (l *Ledger) AdminDeposit(ctx context.Context, now uint64, caller common.Address, amount *uint256.Int) ([]model.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return nil, ErrUnauthorized
	}
	pooled, overflow := new(uint256.Int).AddOverflow(&l.totalPool, amount)
	if overflow {
		return nil, fmt.Errorf("%w: pool total overflows", ErrInvalidConfig)
	}
	if err := l.token.TransferFrom(ctx, l.pool, caller, l.pool, amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	l.height++
	l.totalPool = *pooled
	ev := model.Event{Kind: model.KindAdminDeposit, User: caller}
	ev.Amount.Set(amount)
	return []model.Event{l.emitLocked(now, ev)}, nil
}

// SetCooldown replaces the cooldown. Zero is rejected.
func (l *Ledger) SetCooldown(_ context.Context, now uint64, caller common.Address, seconds uint64) ([]model.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return nil, ErrUnauthorized
	}
	if seconds == 0 || seconds > MaxTime {
		return nil, fmt.Errorf("%w: cooldown must be positive and at most %d", ErrInvalidConfig, MaxTime)
	}
	l.height++
	l.cooldown = seconds
	return []model.Event{l.emitLocked(now, model.Event{Kind: model.KindCooldownUpdated, Value: seconds})}, nil
}

// SetStartTime moves the opening time. It must lie in the future and before
// any configured end time.
func (l *Ledger) SetStartTime(_ context.Context, now uint64, caller common.Address, t uint64) ([]model.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return nil, ErrUnauthorized
	}
	if t <= now || t > MaxTime {
		return nil, fmt.Errorf("%w: start time must be in the future and at most %d", ErrInvalidConfig, MaxTime)
	}
	if l.endTime != 0 && t >= l.endTime {
		return nil, fmt.Errorf("%w: start time must precede end time", ErrInvalidConfig)
	}
	l.height++
	l.startTime = t
	return []model.Event{l.emitLocked(now, model.Event{Kind: model.KindStartTimeUpdated, Value: t})}, nil
}

// SetEndTime moves the closing time. It must lie in the future and after the
// start time.
func (l *Ledger) SetEndTime(_ context.Context, now uint64, caller common.Address, t uint64) ([]model.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return nil, ErrUnauthorized
	}
	if t <= now || t > MaxTime {
		return nil, fmt.Errorf("%w: end time must be in the future and at most %d", ErrInvalidConfig, MaxTime)
	}
	if t <= l.startTime {
		return nil, fmt.Errorf("%w: end time must follow start time", ErrInvalidConfig)
	}
	l.height++
	l.endTime = t
	return []model.Event{l.emitLocked(now, model.Event{Kind: model.KindEndTimeUpdated, Value: t})}, nil
}

// SetMerkleRoot replaces the claim root. Settled claims are unaffected.
func (l *Ledger) SetMerkleRoot(_ context.Context, now uint64, caller common.Address, root common.Hash) ([]model.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.admin {
		return nil, ErrUnauthorized
	}
	l.height++
	l.root, l.rootSet = root, true
	return []model.Event{l.emitLocked(now, model.Event{Kind: model.KindMerkleRootUpdated, Root: root})}, nil
}

func (l *Ledger) activeLocked(now uint64) bool {
	if now < l.startTime {
		return false
	}
	return l.endTime == 0 || now < l.endTime
}

// recordLocked loads addr's record. A missing record is the zero record;
// any other store failure is returned wrapped.
func (l *Ledger) recordLocked(ctx context.Context, addr common.Address) (model.UserRecord, error) {
	rec, err := l.users.Get(ctx, addr)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.UserRecord{}, nil
	case err != nil:
		return model.UserRecord{}, fmt.Errorf("load user %s: %w", addr.Hex(), err)
	}
	return rec, nil
}

func (l *Ledger) emitLocked(now uint64, ev model.Event) model.Event {
	ev.Seq = uint64(len(l.events)) + 1
	ev.ID = l.newID()
	ev.Height = l.height
	ev.Time = now
	l.events = append(l.events, ev)
	return ev
}
