package merkle_test

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/okian/kegel/internal/domain/merkle"
	"github.com/smartystreets/goconvey/convey"
)

func allocations(n int) []merkle.Allocation {
	out := make([]merkle.Allocation, n)
	for i := range out {
		out[i] = merkle.Allocation{
			Account: common.BigToAddress(big.NewInt(int64(1000 + i))),
			Amount:  uint256.NewInt(uint64(i+1) * 1_000_000),
		}
	}
	return out
}

func TestLeafHash(t *testing.T) {
	convey.Convey("Given an account and amount", t, func() {
		account := common.HexToAddress("0x00000000000000000000000000000000000000b1")
		amount := uint256.NewInt(42)

		convey.Convey("Then the leaf matches packed address and 32-byte amount", func() {
			want := crypto.Keccak256Hash(account.Bytes(), common.LeftPadBytes(big.NewInt(42).Bytes(), 32))
			convey.So(merkle.LeafHash(account, amount), convey.ShouldEqual, want)
		})

		convey.Convey("Then pair hashing is order independent", func() {
			a := merkle.LeafHash(account, amount)
			b := merkle.LeafHash(account, uint256.NewInt(43))
			convey.So(merkle.HashPair(a, b), convey.ShouldEqual, merkle.HashPair(b, a))
		})
	})
}

func TestTree(t *testing.T) {
	convey.Convey("Given no leaves", t, func() {
		_, err := merkle.Build(nil)
		convey.So(errors.Is(err, merkle.ErrNoLeaves), convey.ShouldBeTrue)
	})

	convey.Convey("Given a single allocation", t, func() {
		alloc := allocations(1)[0]
		tree, err := merkle.BuildAllocations([]merkle.Allocation{alloc})
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the root is the leaf and the proof is empty", func() {
			convey.So(tree.Root(), convey.ShouldEqual, alloc.Leaf())
			proof, err := tree.Proof(alloc.Leaf())
			convey.So(err, convey.ShouldBeNil)
			convey.So(proof, convey.ShouldBeEmpty)
			convey.So(merkle.Verify(proof, tree.Root(), alloc.Leaf()), convey.ShouldBeTrue)
		})
	})

	for _, n := range []int{2, 3, 5, 8, 13} {
		convey.Convey(fmt.Sprintf("Given %d allocations", n), t, func() {
			allocs := allocations(n)
			tree, err := merkle.BuildAllocations(allocs)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then every allocation proves against the root", func() {
				for _, a := range allocs {
					proof, err := tree.Proof(a.Leaf())
					convey.So(err, convey.ShouldBeNil)
					convey.So(merkle.Verify(proof, tree.Root(), a.Leaf()), convey.ShouldBeTrue)
				}
			})

			convey.Convey("Then a tampered amount does not verify", func() {
				a := allocs[0]
				proof, _ := tree.Proof(a.Leaf())
				forged := merkle.LeafHash(a.Account, uint256.NewInt(1))
				convey.So(merkle.Verify(proof, tree.Root(), forged), convey.ShouldBeFalse)
			})

			convey.Convey("Then an unknown leaf has no proof", func() {
				_, err := tree.Proof(common.Hash{0x01})
				convey.So(errors.Is(err, merkle.ErrLeafNotFound), convey.ShouldBeTrue)
			})

			convey.Convey("Then input order does not change the root", func() {
				reversed := make([]merkle.Allocation, n)
				for i := range allocs {
					reversed[n-1-i] = allocs[i]
				}
				other, err := merkle.BuildAllocations(reversed)
				convey.So(err, convey.ShouldBeNil)
				convey.So(other.Root(), convey.ShouldEqual, tree.Root())
			})
		})
	}
}
