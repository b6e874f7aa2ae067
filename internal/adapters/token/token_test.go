package token_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/okian/kegel/internal/adapters/token"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	pool  = common.HexToAddress("0x00000000000000000000000000000000000000f0")
)

func TestMemoryToken(t *testing.T) {
	Convey("Given a token with a funded holder", t, func() {
		ctx := context.Background()
		tk := token.NewMemory(token.WithDecimals(6), token.WithSymbol("TST"))
		So(tk.Mint(ctx, alice, uint256.NewInt(1_000)), ShouldBeNil)

		So(tk.Decimals(), ShouldEqual, uint8(6))
		So(tk.Symbol(), ShouldEqual, "TST")
		So(tk.TotalSupply(ctx).Uint64(), ShouldEqual, uint64(1_000))

		Convey("When transferring within the balance", func() {
			err := tk.Transfer(ctx, alice, bob, uint256.NewInt(400))

			Convey("Then both balances move", func() {
				So(err, ShouldBeNil)
				So(tk.BalanceOf(ctx, alice).Uint64(), ShouldEqual, uint64(600))
				So(tk.BalanceOf(ctx, bob).Uint64(), ShouldEqual, uint64(400))
			})
		})

		Convey("When transferring more than the balance", func() {
			err := tk.Transfer(ctx, alice, bob, uint256.NewInt(1_001))

			Convey("Then nothing moves", func() {
				So(errors.Is(err, token.ErrInsufficientBalance), ShouldBeTrue)
				So(tk.BalanceOf(ctx, alice).Uint64(), ShouldEqual, uint64(1_000))
				So(tk.BalanceOf(ctx, bob).IsZero(), ShouldBeTrue)
			})
		})

		Convey("When a spender pulls funds", func() {
			So(tk.Approve(ctx, alice, pool, uint256.NewInt(300)), ShouldBeNil)

			Convey("Then it may spend up to the allowance", func() {
				So(tk.TransferFrom(ctx, pool, alice, pool, uint256.NewInt(200)), ShouldBeNil)
				So(tk.Allowance(ctx, alice, pool).Uint64(), ShouldEqual, uint64(100))
				So(tk.BalanceOf(ctx, pool).Uint64(), ShouldEqual, uint64(200))
			})

			Convey("Then it cannot exceed the allowance", func() {
				err := tk.TransferFrom(ctx, pool, alice, pool, uint256.NewInt(301))
				So(errors.Is(err, token.ErrInsufficientAllowance), ShouldBeTrue)
				So(tk.Allowance(ctx, alice, pool).Uint64(), ShouldEqual, uint64(300))
			})
		})

		Convey("When the allowance exceeds the balance", func() {
			So(tk.Approve(ctx, alice, pool, uint256.NewInt(5_000)), ShouldBeNil)
			err := tk.TransferFrom(ctx, pool, alice, pool, uint256.NewInt(2_000))

			Convey("Then the balance check fails and the allowance is untouched", func() {
				So(errors.Is(err, token.ErrInsufficientBalance), ShouldBeTrue)
				So(tk.Allowance(ctx, alice, pool).Uint64(), ShouldEqual, uint64(5_000))
			})
		})

		Convey("When sending to the zero address", func() {
			err := tk.Transfer(ctx, alice, common.Address{}, uint256.NewInt(1))
			So(errors.Is(err, token.ErrZeroAddress), ShouldBeTrue)
			So(errors.Is(tk.Mint(ctx, common.Address{}, uint256.NewInt(1)), token.ErrZeroAddress), ShouldBeTrue)
		})

		Convey("When minting past the 256-bit range", func() {
			full := new(uint256.Int).SetAllOne()
			err := tk.Mint(ctx, bob, full)
			So(errors.Is(err, token.ErrSupplyOverflow), ShouldBeTrue)
		})
	})
}
