package testevents

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/kegel/internal/adapters/http/api"
	"github.com/okian/kegel/internal/adapters/token"
	service "github.com/okian/kegel/internal/app"
	"github.com/okian/kegel/internal/domain/ledger"
	"github.com/okian/kegel/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	pool  = common.HexToAddress("0x00000000000000000000000000000000000000f0")
)

// newServer runs the real API over a ledger whose wallets are funded from
// the generator's genesis.
func newServer(wallets []Wallet) (*httptest.Server, *service.Service) {
	ctx := context.Background()
	tok := token.NewMemory()
	for addr, amount := range Genesis(wallets, 18) {
		So(tok.Mint(ctx, common.HexToAddress(addr), uint256.MustFromDecimal(amount)), ShouldBeNil)
	}
	l, err := ledger.New(ledger.Settings{
		Admin: admin, Pool: pool, Decimals: 18,
		StartTime: uint64(time.Now().Unix()) - 60, Cooldown: 86_400,
	}, tok)
	So(err, ShouldBeNil)
	svc := service.New(l, tok)
	So(svc.Start(ctx), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc, nil).Register(ctx, mux)
	return httptest.NewServer(mux), svc
}

func TestGenerateWallets(t *testing.T) {
	Convey("Given a seed", t, func() {
		a := GenerateWallets("seed", 20, 18)
		b := GenerateWallets("seed", 20, 18)
		c := GenerateWallets("other", 20, 18)

		Convey("Then generation is deterministic per seed", func() {
			So(a, ShouldResemble, b)
			So(a[0].Address, ShouldNotEqual, c[0].Address)
		})

		Convey("Then donations are whole tokens within the funded range", func() {
			unit := uint256.MustFromDecimal("1000000000000000000")
			limit := new(uint256.Int).Mul(uint256.NewInt(MaxDonationTokens), unit)
			seen := map[string]bool{}
			for _, w := range a {
				d := uint256.MustFromDecimal(w.Donation)
				So(new(uint256.Int).Mod(d, unit).IsZero(), ShouldBeTrue)
				So(d.Lt(unit), ShouldBeFalse)
				So(d.Gt(limit), ShouldBeFalse)
				So(common.IsHexAddress(w.Address), ShouldBeTrue)
				seen[w.Address] = true
			}
			So(seen, ShouldHaveLength, 20)
		})

		Convey("Then the genesis block lists every wallet", func() {
			var buf bytes.Buffer
			So(WriteGenesis(&buf, a[:2], 0), ShouldBeNil)
			So(buf.String(), ShouldStartWith, "genesis_balances:\n")
			So(buf.String(), ShouldContainSubstring, a[1].Address)
			So(buf.String(), ShouldContainSubstring, `"100"`)
		})
	})
}

func TestVerification(t *testing.T) {
	Convey("Given board rows", t, func() {
		Convey("Then an unsorted board is rejected", func() {
			err := verifyOrder([]Entry{{Value: "1"}, {Value: "2"}})
			So(err, ShouldNotBeNil)
			So(verifyOrder([]Entry{{Value: "2"}, {Value: "2"}, {Value: "1"}}), ShouldBeNil)
		})

		Convey("Then values are compared rank by rank", func() {
			sorted := []Wallet{{Donation: "5"}, {Donation: "3"}}
			So(verifyTop(sorted, []Entry{{Value: "5"}, {Value: "3"}}, 50), ShouldBeNil)
			So(verifyTop(sorted, []Entry{{Value: "5"}, {Value: "2"}}, 50), ShouldNotBeNil)
			So(verifyTop(sorted, []Entry{{Value: "5"}}, 50), ShouldNotBeNil)
			So(verifyTop(sorted, []Entry{{Value: "5"}}, 1), ShouldBeNil)
		})

		Convey("Then nothing accepted is an error", func() {
			err := verifyResults(context.Background(), &Config{TopN: 5}, []Wallet{{}}, []bool{false}, nil)
			So(err, ShouldEqual, ErrNoCheckIns)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a funded service", t, func() {
		cfg := &Config{
			Wallets: 12,
			Seed:    "run",
			TopN:    5,
			Workers: 4,
			Timeout: 5 * time.Second,
			Probes:  3,
		}
		wallets := GenerateWallets(cfg.Seed, cfg.Wallets, 18)
		srv, svc := newServer(wallets)
		defer srv.Close()
		defer func() { _ = svc.Stop(context.Background()) }()
		cfg.BaseURL = srv.URL
		cfg.OutputFile = filepath.Join(t.TempDir(), "out", "wallets.json")

		Convey("When the test runs", func() {
			err := Run(context.Background(), cfg)

			Convey("Then every wallet checked in once", func() {
				So(err, ShouldBeNil)
				So(svc.Snapshot().Users, ShouldEqual, 12)
				So(svc.CheckinLeaderboard(), ShouldHaveLength, 12)
				_, statErr := os.Stat(cfg.OutputFile)
				So(statErr, ShouldBeNil)
			})
		})

		Convey("When the wallets run a second time", func() {
			So(Run(context.Background(), cfg), ShouldBeNil)
			accepted := submitCheckIns(context.Background(), cfg, wallets, &Stats{})

			Convey("Then the cooldown rejects all of them", func() {
				for _, ok := range accepted {
					So(ok, ShouldBeFalse)
				}
			})
		})
	})

	Convey("Given no service", t, func() {
		err := Run(context.Background(), &Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second, Workers: 1})
		So(err, ShouldNotBeNil)
	})
}
