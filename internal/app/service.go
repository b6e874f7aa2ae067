// Package service runs the ledger behind a single mutator goroutine and
// serves the HTTP API's reads from published snapshots.
package service

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"

	"github.com/okian/kegel/internal/adapters/journal"
	eventqueue "github.com/okian/kegel/internal/adapters/mq/queue"
	workerpool "github.com/okian/kegel/internal/adapters/mq/worker"
	"github.com/okian/kegel/internal/domain/ledger"
	"github.com/okian/kegel/internal/domain/model"
	"github.com/okian/kegel/pkg/logger"
	"github.com/okian/kegel/pkg/metrics"
)

// Wallet is the read and approval surface of the token, which lives outside
// the ledger's serialized state.
type Wallet interface {
	Symbol() string
	Decimals() uint8
	BalanceOf(ctx context.Context, owner common.Address) *uint256.Int
	Allowance(ctx context.Context, owner, spender common.Address) *uint256.Int
	Approve(ctx context.Context, owner, spender common.Address, amount *uint256.Int) error
}

// Snapshot is the ranked state as of the last accepted mutation.
type Snapshot struct {
	ledger.Snapshot
	PublishedAt time.Time
}

type result struct {
	events []model.Event
	err    error
}

type command struct {
	op    string
	apply func(ctx context.Context, now uint64) ([]model.Event, error)
	reply chan result
}

// Service owns the ledger. All mutations run on one goroutine in arrival
// order; reads never wait for it.
type Service struct {
	mu sync.RWMutex

	ledger  *ledger.Ledger
	wallet  Wallet
	clock   clockwork.Clock
	journal workerpool.Journal

	commandQueueSize int
	eventQueueSize   int
	workerCount      int

	commands   chan command
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	snapshot   atomic.Pointer[Snapshot]

	started bool
	stopCh  chan struct{}
	done    chan struct{}

	logger logger.Logger
}

// New wraps l. The wallet is the token l moves funds with.
func New(l *ledger.Ledger, w Wallet, opts ...Option) *Service {
	s := &Service{
		ledger:           l,
		wallet:           w,
		clock:            clockwork.NewRealClock(),
		commandQueueSize: 1024,
		eventQueueSize:   10000,
		workerCount:      1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.journal == nil {
		s.journal = journal.NewLogger()
	}
	s.publish(context.Background())
	return s
}

// Start launches the mutator and the journal workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.commands = make(chan command, s.commandQueueSize)
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.eventQueueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.journal)
	s.workerPool.Start(context.WithoutCancel(ctx))

	go s.run(context.WithoutCancel(ctx), s.commands, s.eventQueue, s.stopCh, s.done)

	s.started = true
	s.logger.Info(ctx, "ledger service started",
		logger.Int("commandQueue", s.commandQueueSize),
		logger.Int("eventQueue", s.eventQueueSize),
		logger.Int("journalWorkers", s.workerCount),
	)
	return nil
}

// Stop halts the mutator, then waits for the journal to drain.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping ledger service")

	close(s.stopCh)
	select {
	case <-s.done:
	case <-ctx.Done():
		s.logger.Warn(ctx, "mutator did not stop in time")
	}

	err := s.workerPool.Shutdown(ctx)
	if err != nil {
		s.logger.Warn(ctx, "journal did not drain", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "ledger service stopped",
		logger.Uint64("journaled", s.workerPool.Processed()),
		logger.Uint64("journalFailures", s.workerPool.Failed()),
	)
	return err
}

// Close releases the journal when it holds resources.
func (s *Service) Close() error {
	if c, ok := s.journal.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (s *Service) run(ctx context.Context, commands chan command, events eventqueue.Queue, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			// Pending commands are answered rather than applied.
			for {
				select {
				case cmd := <-commands:
					cmd.reply <- result{err: ErrStopped}
				default:
					return
				}
			}
		case cmd := <-commands:
			metrics.UpdateCommandQueueDepth(len(commands))
			cmd.reply <- s.execute(ctx, events, cmd)
		}
	}
}

func (s *Service) execute(ctx context.Context, q eventqueue.Queue, cmd command) result {
	start := time.Now()
	defer func() {
		metrics.RecordCommandLatency(cmd.op, float64(time.Since(start).Microseconds())/1000)
	}()

	now := s.now()
	events, err := cmd.apply(ctx, now)
	if err != nil {
		kind := ledger.Kind(err)
		metrics.RecordRejection(cmd.op, kind)
		s.logger.Debug(ctx, "command rejected",
			logger.String("op", cmd.op),
			logger.String("kind", kind),
			logger.Uint64("now", now),
			logger.Error(err),
		)
		return result{err: err}
	}

	for i := range events {
		s.observe(ctx, &events[i])
		if !q.Enqueue(ctx, events[i]) {
			s.logger.Warn(ctx, "journal queue full, event not archived", logger.Uint64("seq", events[i].Seq))
		}
	}
	s.publish(ctx)
	return result{events: events}
}

func (s *Service) observe(ctx context.Context, e *model.Event) {
	switch e.Kind {
	case model.KindCheckIn:
		metrics.RecordCheckIn()
		s.logger.Info(ctx, "check-in",
			logger.String("user", e.User.Hex()),
			logger.String("donation", e.Amount.Dec()),
			logger.Uint64("combo", e.Combo),
			logger.Uint64("count", e.Count),
		)
	case model.KindComboEnded:
		metrics.RecordComboEnded()
		s.logger.Info(ctx, "combo ended",
			logger.String("user", e.User.Hex()),
			logger.Uint64("marker", e.Marker),
			logger.Uint64("length", e.Count),
		)
	case model.KindClaimed:
		metrics.RecordClaim()
		s.logger.Info(ctx, "claim paid", logger.String("user", e.User.Hex()), logger.String("amount", e.Amount.Dec()))
	case model.KindAdminDeposit:
		metrics.RecordDeposit()
		s.logger.Info(ctx, "pool deposit", logger.String("amount", e.Amount.Dec()))
	default:
		metrics.RecordConfigUpdate(string(e.Kind))
		s.logger.Info(ctx, "config updated", logger.String("kind", string(e.Kind)))
	}
}

func (s *Service) publish(ctx context.Context) {
	snap := &Snapshot{Snapshot: s.ledger.Snapshot(ctx), PublishedAt: s.clock.Now()}
	s.snapshot.Store(snap)

	metrics.UpdatePoolSize(s.tokens(&snap.TotalPool))
	metrics.UpdateUsers(snap.Users)
	metrics.UpdateLeaderboardEntries("checkin", len(snap.Checkins))
	metrics.UpdateLeaderboardEntries("donation", len(snap.Donations))
	metrics.UpdateLeaderboardEntries("combo", len(snap.Combos))
	metrics.RecordSnapshotPublished(snap.PublishedAt.Unix())
}

func (s *Service) tokens(amount *uint256.Int) float64 {
	unit := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(s.ledger.Config().Decimals)), nil))
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(amount.ToBig()), unit).Float64()
	return f
}

func (s *Service) now() uint64 {
	return uint64(s.clock.Now().Unix()) //nolint:gosec // wall clock is after 1970
}

// submit hands a mutation to the mutator and waits for its outcome. If ctx
// ends after the command was queued it may still be applied.
func (s *Service) submit(ctx context.Context, op string, apply func(ctx context.Context, now uint64) ([]model.Event, error)) ([]model.Event, error) {
	s.mu.RLock()
	started, commands, stop, done := s.started, s.commands, s.stopCh, s.done
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	cmd := command{op: op, apply: apply, reply: make(chan result, 1)}
	select {
	case commands <- cmd:
		metrics.UpdateCommandQueueDepth(len(commands))
	case <-stop:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-cmd.reply:
		return r.events, r.err
	case <-done:
		select {
		case r := <-cmd.reply:
			return r.events, r.err
		default:
			return nil, ErrStopped
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CheckIn records a check-in for caller.
func (s *Service) CheckIn(ctx context.Context, caller common.Address, donation *uint256.Int) ([]model.Event, error) {
	return s.submit(ctx, "checkin", func(ctx context.Context, now uint64) ([]model.Event, error) {
		return s.ledger.CheckIn(ctx, now, caller, donation)
	})
}

// Claim pays caller's allocation.
func (s *Service) Claim(ctx context.Context, caller common.Address, amount *uint256.Int, proof []common.Hash) ([]model.Event, error) {
	return s.submit(ctx, "claim", func(ctx context.Context, now uint64) ([]model.Event, error) {
		return s.ledger.Claim(ctx, now, caller, amount, proof)
	})
}

// AdminDeposit tops up the pool from the admin.
func (s *Service) AdminDeposit(ctx context.Context, caller common.Address, amount *uint256.Int) ([]model.Event, error) {
	return s.submit(ctx, "deposit", func(ctx context.Context, now uint64) ([]model.Event, error) {
		return s.ledger.AdminDeposit(ctx, now, caller, amount)
	})
}

// SetCooldown replaces the cooldown in seconds.
func (s *Service) SetCooldown(ctx context.Context, caller common.Address, seconds uint64) ([]model.Event, error) {
	return s.submit(ctx, "set_cooldown", func(ctx context.Context, now uint64) ([]model.Event, error) {
		return s.ledger.SetCooldown(ctx, now, caller, seconds)
	})
}

// SetStartTime moves the opening time.
func (s *Service) SetStartTime(ctx context.Context, caller common.Address, t uint64) ([]model.Event, error) {
	return s.submit(ctx, "set_start_time", func(ctx context.Context, now uint64) ([]model.Event, error) {
		return s.ledger.SetStartTime(ctx, now, caller, t)
	})
}

// SetEndTime moves the closing time.
func (s *Service) SetEndTime(ctx context.Context, caller common.Address, t uint64) ([]model.Event, error) {
	return s.submit(ctx, "set_end_time", func(ctx context.Context, now uint64) ([]model.Event, error) {
		return s.ledger.SetEndTime(ctx, now, caller, t)
	})
}

// SetMerkleRoot replaces the claim root.
func (s *Service) SetMerkleRoot(ctx context.Context, caller common.Address, root common.Hash) ([]model.Event, error) {
	return s.submit(ctx, "set_merkle_root", func(ctx context.Context, now uint64) ([]model.Event, error) {
		return s.ledger.SetMerkleRoot(ctx, now, caller, root)
	})
}

// Approve lets spender pull amount from owner.
func (s *Service) Approve(ctx context.Context, owner, spender common.Address, amount *uint256.Int) error {
	return s.wallet.Approve(ctx, owner, spender, amount)
}

// Balance returns owner's token balance and allowance to the pool.
func (s *Service) Balance(ctx context.Context, owner common.Address) (balance, allowance *uint256.Int) {
	return s.wallet.BalanceOf(ctx, owner), s.wallet.Allowance(ctx, owner, s.ledger.Config().Pool)
}

// TokenInfo returns the token symbol and decimals.
func (s *Service) TokenInfo() (symbol string, decimals uint8) {
	return s.wallet.Symbol(), s.wallet.Decimals()
}

// Now returns the service clock in unix seconds.
func (s *Service) Now() uint64 { return s.now() }

// Config returns the current ledger configuration.
func (s *Service) Config() ledger.ConfigView { return s.ledger.Config() }

// UserData returns addr's record.
func (s *Service) UserData(ctx context.Context, addr common.Address) (model.UserRecord, error) {
	return s.ledger.UserData(ctx, addr)
}

// Status returns addr's projections at the current time.
func (s *Service) Status(ctx context.Context, addr common.Address) (ledger.Status, error) {
	return s.ledger.Status(ctx, s.now(), addr)
}

// Events pages through the event log.
func (s *Service) Events(after uint64, limit int) []model.Event {
	return s.ledger.Events(after, limit)
}

// Snapshot returns the last published snapshot.
func (s *Service) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// CheckinLeaderboard returns the published check-in board.
func (s *Service) CheckinLeaderboard() []model.ScalarEntry { return s.Snapshot().Checkins }

// DonationLeaderboard returns the published donation board.
func (s *Service) DonationLeaderboard() []model.ScalarEntry { return s.Snapshot().Donations }

// ComboLeaderboard returns the published combo board.
func (s *Service) ComboLeaderboard() []model.ComboEntry { return s.Snapshot().Combos }

// TotalPool returns the published pool total.
func (s *Service) TotalPool() *uint256.Int {
	snap := s.Snapshot()
	return new(uint256.Int).Set(&snap.TotalPool)
}

// Pool returns the published pool total, height and claim count.
func (s *Service) Pool() (total *uint256.Int, height uint64, claims int64) {
	snap := s.Snapshot()
	return new(uint256.Int).Set(&snap.TotalPool), snap.Height, snap.Claims
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.Snapshot()
	stats := map[string]any{
		"started":      s.started,
		"height":       snap.Height,
		"users":        snap.Users,
		"claims":       snap.Claims,
		"events":       snap.Events,
		"totalPool":    snap.TotalPool.Dec(),
		"snapshotTime": snap.PublishedAt.UTC().Format(time.RFC3339),
		"workerCount":  s.workerCount,
	}
	if s.started {
		stats["pendingCommands"] = len(s.commands)
		stats["journalQueue"] = s.eventQueue.Len(context.Background())
		stats["journaled"] = s.workerPool.Processed()
		stats["journalFailures"] = s.workerPool.Failed()
	}
	return stats
}
