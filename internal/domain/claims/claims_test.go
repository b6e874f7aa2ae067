package claims_test

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/okian/kegel/internal/domain/claims"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryRegistry(t *testing.T) {
	Convey("Given a new registry", t, func() {
		ctx := context.Background()
		r := claims.NewInMemoryRegistry(claims.WithExpectedSize(4))
		alice := common.HexToAddress("0x00000000000000000000000000000000000000b1")

		So(r.Size(), ShouldEqual, 0)
		So(r.Claimed(ctx, alice), ShouldBeFalse)

		Convey("When an address is recorded", func() {
			seen := r.SeenAndRecord(ctx, alice)

			Convey("Then it is new the first time and claimed afterwards", func() {
				So(seen, ShouldBeFalse)
				So(r.Claimed(ctx, alice), ShouldBeTrue)
				So(r.Size(), ShouldEqual, 1)
			})

			Convey("Then recording it again reports it as seen", func() {
				So(r.SeenAndRecord(ctx, alice), ShouldBeTrue)
				So(r.Size(), ShouldEqual, 1)
			})
		})

		Convey("When many goroutines race on the same addresses", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 50; i++ {
						if !r.SeenAndRecord(ctx, common.BigToAddress(big.NewInt(int64(i)))) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each address is new exactly once", func() {
				So(fresh, ShouldEqual, 50)
				So(r.Size(), ShouldEqual, 50)
			})
		})
	})
}
