package model_test

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	model "github.com/okian/kegel/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEvent(t *testing.T) {
	convey.Convey("Given an Event", t, func() {
		convey.Convey("When it carries a unix time", func() {
			ev := model.Event{Kind: model.KindCheckIn, Time: 1_700_000_000}

			convey.Convey("Then Timestamp converts it to UTC", func() {
				convey.So(ev.Timestamp(), convey.ShouldEqual, time.Unix(1_700_000_000, 0).UTC())
				convey.So(ev.Timestamp().Location(), convey.ShouldEqual, time.UTC)
			})
		})

		convey.Convey("When created with zero values", func() {
			ev := model.Event{}

			convey.Convey("Then the payload is empty", func() {
				convey.So(ev.User, convey.ShouldEqual, common.Address{})
				convey.So(ev.Amount.IsZero(), convey.ShouldBeTrue)
				convey.So(ev.Root, convey.ShouldEqual, common.Hash{})
			})
		})
	})
}

func TestUserRecord(t *testing.T) {
	convey.Convey("Given a user record", t, func() {
		convey.Convey("When the user never checked in", func() {
			convey.So(model.UserRecord{}.HasCheckedIn(), convey.ShouldBeFalse)
		})

		convey.Convey("When the user has a last check-in time", func() {
			rec := model.UserRecord{CheckinCount: 1, LastCheckinTime: 10, CurrentCombo: 1, ComboStartMarker: 1}
			convey.So(rec.HasCheckedIn(), convey.ShouldBeTrue)
		})

		convey.Convey("When the only check-in happened at the epoch", func() {
			rec := model.UserRecord{CheckinCount: 1, LastCheckinTime: 0, CurrentCombo: 1, ComboStartMarker: 1}
			convey.So(rec.HasCheckedIn(), convey.ShouldBeTrue)
		})
	})
}
