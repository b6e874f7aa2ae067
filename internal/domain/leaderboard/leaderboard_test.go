package leaderboard_test

import (
	"math/big"
	"math/rand"
	"sort"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/okian/kegel/internal/domain/leaderboard"
	"github.com/okian/kegel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func addr(i int) common.Address { return common.BigToAddress(big.NewInt(int64(i + 1))) }

func values(rows []model.ScalarEntry) []uint64 {
	out := make([]uint64, len(rows))
	for i, r := range rows {
		out[i] = r.Value.Uint64()
	}
	return out
}

func TestScalarBoard(t *testing.T) {
	Convey("Given an empty scalar board", t, func() {
		b := leaderboard.NewScalar()

		So(b.Len(), ShouldEqual, 0)
		So(b.Top(), ShouldBeEmpty)
		So(b.Capacity(), ShouldEqual, leaderboard.DefaultCapacity)

		Convey("When two users donate 10 and 100", func() {
			b.Upsert(addr(0), uint256.NewInt(10))
			b.Upsert(addr(1), uint256.NewInt(100))

			Convey("Then the larger donation ranks first", func() {
				top := b.Top()
				So(values(top), ShouldResemble, []uint64{100, 10})
				So(top[0].User, ShouldResemble, addr(1))
				So(b.Position(addr(1)), ShouldEqual, 1)
				So(b.Position(addr(0)), ShouldEqual, 2)
			})
		})

		Convey("When values tie", func() {
			b.Upsert(addr(0), uint256.NewInt(5))
			b.Upsert(addr(1), uint256.NewInt(5))
			b.Upsert(addr(2), uint256.NewInt(5))

			Convey("Then earlier writes rank first", func() {
				top := b.Top()
				So(top[0].User, ShouldResemble, addr(0))
				So(top[1].User, ShouldResemble, addr(1))
				So(top[2].User, ShouldResemble, addr(2))
			})

			Convey("Then a user rewritten to the same value moves behind its peers", func() {
				b.Upsert(addr(0), uint256.NewInt(5))
				top := b.Top()
				So(top[2].User, ShouldResemble, addr(0))
			})
		})

		Convey("When a user's value grows", func() {
			b.Upsert(addr(0), uint256.NewInt(1))
			b.Upsert(addr(1), uint256.NewInt(2))
			b.Upsert(addr(0), uint256.NewInt(3))

			Convey("Then the user keeps a single row at the new position", func() {
				top := b.Top()
				So(len(top), ShouldEqual, 2)
				So(top[0].User, ShouldResemble, addr(0))
				So(values(top), ShouldResemble, []uint64{3, 2})
			})
		})

		Convey("When more users than the capacity are written", func() {
			for i := 0; i < 60; i++ {
				b.Upsert(addr(i), uint256.NewInt(uint64(i+1)))
			}

			Convey("Then only the best fifty remain", func() {
				top := b.Top()
				So(len(top), ShouldEqual, 50)
				So(top[0].Value.Uint64(), ShouldEqual, uint64(60))
				So(top[49].Value.Uint64(), ShouldEqual, uint64(11))
				So(b.Position(addr(0)), ShouldEqual, 0)
			})

			Convey("Then a value below the tail does not make the board", func() {
				So(b.Upsert(addr(100), uint256.NewInt(1)), ShouldBeFalse)
				So(b.Len(), ShouldEqual, 50)
			})

			Convey("Then an evicted user returns once it beats the tail", func() {
				So(b.Upsert(addr(0), uint256.NewInt(1000)), ShouldBeTrue)
				So(b.Position(addr(0)), ShouldEqual, 1)
				So(b.Len(), ShouldEqual, 50)
			})
		})
	})
}

func TestComboBoard(t *testing.T) {
	Convey("Given a combo board", t, func() {
		b := leaderboard.NewCombo(leaderboard.WithCapacity(3))

		Convey("When one user has two streaks", func() {
			b.Upsert(model.ComboEntry{User: addr(0), StartMarker: 1, ComboCount: 2})
			b.Upsert(model.ComboEntry{User: addr(0), StartMarker: 3, ComboCount: 1})

			Convey("Then both rows are kept", func() {
				top := b.Top()
				So(len(top), ShouldEqual, 2)
				So(top[0].StartMarker, ShouldEqual, uint64(1))
				So(top[1].StartMarker, ShouldEqual, uint64(3))
			})
		})

		Convey("When streaks tie on length", func() {
			b.Upsert(model.ComboEntry{User: addr(1), StartMarker: 9, ComboCount: 4})
			b.Upsert(model.ComboEntry{User: addr(2), StartMarker: 4, ComboCount: 4})

			Convey("Then the earlier marker ranks first", func() {
				top := b.Top()
				So(top[0].User, ShouldResemble, addr(2))
				So(top[1].User, ShouldResemble, addr(1))
			})
		})

		Convey("When a streak is extended", func() {
			b.Upsert(model.ComboEntry{User: addr(0), StartMarker: 1, ComboCount: 1})
			b.Upsert(model.ComboEntry{User: addr(1), StartMarker: 2, ComboCount: 2})
			b.Upsert(model.ComboEntry{User: addr(0), StartMarker: 1, ComboCount: 3})

			Convey("Then its single row moves up", func() {
				top := b.Top()
				So(len(top), ShouldEqual, 2)
				So(top[0], ShouldResemble, model.ComboEntry{User: addr(0), StartMarker: 1, ComboCount: 3})
				So(b.Position(leaderboard.ComboKey{User: addr(0), Marker: 1}), ShouldEqual, 1)
			})
		})

		Convey("When the board overflows", func() {
			for i := 0; i < 5; i++ {
				b.Upsert(model.ComboEntry{User: addr(i), StartMarker: uint64(i + 1), ComboCount: uint64(i + 1)})
			}

			Convey("Then the shortest streaks are evicted", func() {
				top := b.Top()
				So(len(top), ShouldEqual, 3)
				So(top[0].ComboCount, ShouldEqual, uint64(5))
				So(top[2].ComboCount, ShouldEqual, uint64(3))
				_, ok := b.Get(leaderboard.ComboKey{User: addr(0), Marker: 1})
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestScalarBoardMatchesSortedReference(t *testing.T) {
	Convey("Given random upserts against a naive reference", t, func() {
		const users, rounds, capacity = 40, 2000, 10
		rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data
		b := leaderboard.NewScalar(leaderboard.WithCapacity(capacity))

		type ref struct {
			value uint64
			seq   int
		}
		all := map[int]ref{}
		current := make([]uint64, users)

		for i := 0; i < rounds; i++ {
			u := rng.Intn(users)
			current[u] += uint64(rng.Intn(3) + 1)
			b.Upsert(addr(u), uint256.NewInt(current[u]))
			all[u] = ref{value: current[u], seq: i}
		}

		Convey("Then the board holds a prefix of the full ordering", func() {
			ids := make([]int, 0, len(all))
			for u := range all {
				ids = append(ids, u)
			}
			sort.Slice(ids, func(i, j int) bool {
				a, c := all[ids[i]], all[ids[j]]
				if a.value != c.value {
					return a.value > c.value
				}
				return a.seq < c.seq
			})

			top := b.Top()
			So(len(top), ShouldEqual, capacity)
			for i, row := range top {
				So(row.User, ShouldResemble, addr(ids[i]))
				So(row.Value.Uint64(), ShouldEqual, all[ids[i]].value)
			}
		})
	})
}

func BenchmarkScalarUpsert(b *testing.B) {
	board := leaderboard.NewScalar()
	rng := rand.New(rand.NewSource(1)) //nolint:gosec // benchmark data
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		board.Upsert(addr(rng.Intn(10_000)), uint256.NewInt(uint64(rng.Intn(1_000_000))))
	}
}

func BenchmarkComboUpsert(b *testing.B) {
	board := leaderboard.NewCombo()
	rng := rand.New(rand.NewSource(1)) //nolint:gosec // benchmark data
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		board.Upsert(model.ComboEntry{
			User:        addr(rng.Intn(10_000)),
			StartMarker: uint64(i + 1),
			ComboCount:  uint64(rng.Intn(30) + 1),
		})
	}
}
