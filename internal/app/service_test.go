package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/okian/kegel/internal/adapters/token"
	service "github.com/okian/kegel/internal/app"
	"github.com/okian/kegel/internal/domain/ledger"
	"github.com/okian/kegel/internal/domain/model"
	"github.com/okian/kegel/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const (
	t0  = int64(1_700_000_000)
	day = 24 * time.Hour
)

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	pool  = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func whole(n uint64) *uint256.Int {
	unit := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))
	return new(uint256.Int).Mul(uint256.NewInt(n), unit)
}

type recordingJournal struct {
	mu     sync.Mutex
	events []model.Event
}

func (j *recordingJournal) Append(_ context.Context, e model.Event) error { //nolint:gocritic // matches worker.Journal
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
	return nil
}

func (j *recordingJournal) kinds() []model.EventKind {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]model.EventKind, len(j.events))
	for i, e := range j.events {
		out[i] = e.Kind
	}
	return out
}

type harness struct {
	ctx     context.Context
	clock   *clockwork.FakeClock
	tok     *token.Memory
	journal *recordingJournal
	svc     *service.Service
}

func newHarness(funded ...common.Address) harness {
	ctx := context.Background()
	tok := token.NewMemory()
	for _, who := range append([]common.Address{admin, alice}, funded...) {
		So(tok.Mint(ctx, who, whole(1_000)), ShouldBeNil)
		So(tok.Approve(ctx, who, pool, whole(1_000)), ShouldBeNil)
	}
	l, err := ledger.New(ledger.Settings{
		Admin:     admin,
		Pool:      pool,
		Decimals:  18,
		StartTime: uint64(t0),
		Cooldown:  uint64(day.Seconds()),
	}, tok)
	So(err, ShouldBeNil)

	clock := clockwork.NewFakeClockAt(time.Unix(t0, 0))
	j := &recordingJournal{}
	svc := service.New(l, tok,
		service.WithClock(clock),
		service.WithJournal(j),
		service.WithCommandQueueSize(8),
	)
	return harness{ctx: ctx, clock: clock, tok: tok, journal: j, svc: svc}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		h := newHarness()

		Convey("Then an empty snapshot is already published", func() {
			snap := h.svc.Snapshot()
			So(snap, ShouldNotBeNil)
			So(snap.Height, ShouldEqual, uint64(0))
			So(snap.PublishedAt.Unix(), ShouldEqual, t0)
			So(h.svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Then mutations are refused before Start", func() {
			_, err := h.svc.CheckIn(h.ctx, alice, whole(1))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When started and stopped twice", func() {
			So(h.svc.Start(h.ctx), ShouldBeNil)
			So(h.svc.Start(h.ctx), ShouldBeNil)
			So(h.svc.GetStats()["started"], ShouldEqual, true)
			So(h.svc.Stop(h.ctx), ShouldBeNil)
			So(h.svc.Stop(h.ctx), ShouldBeNil)

			Convey("Then it refuses mutations until restarted", func() {
				_, err := h.svc.CheckIn(h.ctx, alice, whole(1))
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

				So(h.svc.Start(h.ctx), ShouldBeNil)
				defer func() { _ = h.svc.Stop(h.ctx) }()
				_, err = h.svc.CheckIn(h.ctx, alice, whole(1))
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestService_Mutations(t *testing.T) {
	Convey("Given a started service", t, func() {
		h := newHarness()
		So(h.svc.Start(h.ctx), ShouldBeNil)
		defer func() { _ = h.svc.Stop(h.ctx) }()

		Convey("When alice checks in", func() {
			evs, err := h.svc.CheckIn(h.ctx, alice, whole(5))
			So(err, ShouldBeNil)

			Convey("Then the event uses the service clock", func() {
				So(evs, ShouldHaveLength, 1)
				So(evs[0].Time, ShouldEqual, uint64(t0))
			})

			Convey("Then the published snapshot reflects it", func() {
				snap := h.svc.Snapshot()
				So(snap.Height, ShouldEqual, uint64(1))
				So(h.svc.DonationLeaderboard(), ShouldHaveLength, 1)
				So(h.svc.CheckinLeaderboard()[0].User, ShouldResemble, alice)
				So(h.svc.ComboLeaderboard()[0].ComboCount, ShouldEqual, uint64(1))
				So(h.svc.TotalPool().Eq(whole(5)), ShouldBeTrue)
			})

			Convey("Then a second check-in the same day is too soon", func() {
				_, err := h.svc.CheckIn(h.ctx, alice, whole(1))
				So(errors.Is(err, ledger.ErrTooSoon), ShouldBeTrue)
				So(h.svc.Snapshot().Height, ShouldEqual, uint64(1))
			})

			Convey("Then the status follows the clock", func() {
				st, err := h.svc.Status(h.ctx, alice)
				So(err, ShouldBeNil)
				So(st.CanCheckIn, ShouldBeFalse)
				So(st.NextCheckinTime, ShouldEqual, uint64(t0)+86_400)

				h.clock.Advance(day)
				st, err = h.svc.Status(h.ctx, alice)
				So(err, ShouldBeNil)
				So(st.CanCheckIn, ShouldBeTrue)
				So(st.ComboDeadline, ShouldEqual, uint64(t0)+2*86_400)
			})

			Convey("Then a missed day ends the streak", func() {
				h.clock.Advance(day)
				_, err := h.svc.CheckIn(h.ctx, alice, whole(1))
				So(err, ShouldBeNil)
				h.clock.Advance(3 * day)
				evs, err := h.svc.CheckIn(h.ctx, alice, whole(1))
				So(err, ShouldBeNil)
				So(evs, ShouldHaveLength, 2)
				So(evs[0].Kind, ShouldEqual, model.KindComboEnded)
				So(evs[0].Count, ShouldEqual, uint64(2))
			})
		})

		Convey("When a non-admin changes the cooldown", func() {
			_, err := h.svc.SetCooldown(h.ctx, alice, 60)
			So(errors.Is(err, ledger.ErrUnauthorized), ShouldBeTrue)
		})

		Convey("When the admin configures the ledger", func() {
			_, err := h.svc.SetCooldown(h.ctx, admin, 3_600)
			So(err, ShouldBeNil)
			_, err = h.svc.SetEndTime(h.ctx, admin, uint64(t0)+30*86_400)
			So(err, ShouldBeNil)
			_, err = h.svc.SetStartTime(h.ctx, admin, uint64(t0)+60)
			So(err, ShouldBeNil)
			_, err = h.svc.SetMerkleRoot(h.ctx, admin, common.Hash{1})
			So(err, ShouldBeNil)
			_, err = h.svc.AdminDeposit(h.ctx, admin, whole(10))
			So(err, ShouldBeNil)

			Convey("Then the config reflects every change", func() {
				cfg := h.svc.Config()
				So(cfg.Cooldown, ShouldEqual, uint64(3_600))
				So(cfg.StartTime, ShouldEqual, uint64(t0)+60)
				So(cfg.EndTime, ShouldEqual, uint64(t0)+30*86_400)
				So(cfg.RootSet, ShouldBeTrue)
				So(h.svc.TotalPool().Eq(whole(10)), ShouldBeTrue)
				So(h.svc.Events(0, 0), ShouldHaveLength, 5)
			})
		})

		Convey("When a wallet approves the pool", func() {
			So(h.svc.Approve(h.ctx, alice, pool, whole(3)), ShouldBeNil)
			bal, allowance := h.svc.Balance(h.ctx, alice)
			So(bal.Eq(whole(1_000)), ShouldBeTrue)
			So(allowance.Eq(whole(3)), ShouldBeTrue)
			sym, dec := h.svc.TokenInfo()
			So(sym, ShouldEqual, "KGL")
			So(dec, ShouldEqual, uint8(18))
		})

		Convey("When the caller's context is already done", func() {
			ctx, cancel := context.WithCancel(h.ctx)
			cancel()
			_, err := h.svc.CheckIn(ctx, alice, whole(1))

			Convey("Then the call either ran or reports the cancellation", func() {
				if err != nil {
					So(errors.Is(err, context.Canceled), ShouldBeTrue)
				}
			})
		})
	})
}

func TestService_Journal(t *testing.T) {
	Convey("Given a started service with a recording journal", t, func() {
		h := newHarness()
		So(h.svc.Start(h.ctx), ShouldBeNil)

		_, err := h.svc.CheckIn(h.ctx, alice, whole(1))
		So(err, ShouldBeNil)
		_, err = h.svc.AdminDeposit(h.ctx, admin, whole(2))
		So(err, ShouldBeNil)
		_, err = h.svc.SetCooldown(h.ctx, alice, 1)
		So(err, ShouldNotBeNil)

		Convey("When the service stops", func() {
			So(h.svc.Stop(h.ctx), ShouldBeNil)

			Convey("Then only accepted events were journaled, in order", func() {
				So(h.journal.kinds(), ShouldResemble, []model.EventKind{model.KindCheckIn, model.KindAdminDeposit})
				So(h.svc.Close(), ShouldBeNil)
			})
		})
	})
}
