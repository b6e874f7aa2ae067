package journal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/okian/kegel/internal/adapters/journal"
	"github.com/okian/kegel/internal/domain/model"
	"github.com/okian/kegel/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000000b1")

func checkInEvent() model.Event {
	e := model.Event{
		Seq:    7,
		ID:     uuid.MustParse("0b7f7c9e-9c55-4b2c-8f3e-52f1f0c9a001"),
		Height: 7,
		Time:   1_700_000_000,
		Kind:   model.KindCheckIn,
		User:   alice,
		Count:  3,
		Combo:  2,
		Marker: 5,
	}
	e.Amount.Set(uint256.NewInt(1_000))
	return e
}

func TestLoggerJournal(t *testing.T) {
	Convey("Given a JSON logger", t, func() {
		var buf bytes.Buffer
		So(logger.InitWith(&buf, logger.FormatJSON), ShouldBeNil)
		defer func() { _ = logger.Init() }()

		j := journal.NewLogger()

		Convey("When a check-in is appended", func() {
			So(j.Append(context.Background(), checkInEvent()), ShouldBeNil)

			Convey("Then one line carries the payload", func() {
				var line map[string]any
				So(json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), ShouldBeNil)
				So(line["msg"], ShouldEqual, "ledger event")
				So(line["component"], ShouldEqual, "journal")
				So(line["kind"], ShouldEqual, "CheckIn")
				So(line["amount"], ShouldEqual, "1000")
				So(line["combo"], ShouldEqual, float64(2))
				So(strings.EqualFold(line["user"].(string), alice.Hex()), ShouldBeTrue)
			})
		})

		Convey("When the journal is closed", func() {
			So(j.Close(), ShouldBeNil)
			err := j.Append(context.Background(), checkInEvent())
			So(errors.Is(err, journal.ErrClosed), ShouldBeTrue)
		})
	})
}

type fakeExec struct {
	sql  string
	args []any
	err  error
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestPostgresJournal(t *testing.T) {
	Convey("Given a postgres journal over a fake connection", t, func() {
		db := &fakeExec{}
		j := journal.NewPostgres(db)

		Convey("When a check-in is appended", func() {
			So(j.Append(context.Background(), checkInEvent()), ShouldBeNil)

			Convey("Then the row is inserted idempotently", func() {
				So(db.sql, ShouldContainSubstring, "INSERT INTO ledger_events")
				So(db.sql, ShouldContainSubstring, "ON CONFLICT (seq) DO NOTHING")
				So(db.args, ShouldHaveLength, 12)
				So(db.args[0], ShouldEqual, int64(7))
				So(db.args[4], ShouldEqual, "CheckIn")
				So(*db.args[5].(*string), ShouldEqual, alice.Hex())
				amount := db.args[6].(pgtype.Numeric)
				So(amount.Int.Int64(), ShouldEqual, int64(1_000))
				So(db.args[11], ShouldBeNil)
			})
		})

		Convey("When a combo closes at a saturated deadline", func() {
			e := model.Event{Seq: 2, Kind: model.KindComboEnded, User: alice, Marker: 1, Count: 2, Value: math.MaxUint64}
			So(j.Append(context.Background(), e), ShouldBeNil)

			Convey("Then the value is stored as an unsigned numeric", func() {
				value := db.args[10].(pgtype.Numeric)
				So(value.Valid, ShouldBeTrue)
				So(value.Int.IsUint64(), ShouldBeTrue)
				So(value.Int.Uint64(), ShouldEqual, uint64(math.MaxUint64))
			})
		})

		Convey("When a root update is appended", func() {
			e := model.Event{Seq: 1, Kind: model.KindMerkleRootUpdated, Root: common.Hash{0xab}}
			So(j.Append(context.Background(), e), ShouldBeNil)

			Convey("Then the user is null and the root is set", func() {
				So(db.args[5], ShouldBeNil)
				So(*db.args[11].(*string), ShouldEqual, e.Root.Hex())
			})
		})

		Convey("When the database fails", func() {
			db.err = errors.New("connection reset")
			err := j.Append(context.Background(), checkInEvent())

			Convey("Then the error names the event", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "insert event 7")
			})
		})

		Convey("When closed", func() {
			So(j.Close(), ShouldBeNil)
			So(j.Close(), ShouldBeNil)
			So(errors.Is(j.Append(context.Background(), checkInEvent()), journal.ErrClosed), ShouldBeTrue)
		})
	})

	Convey("Opening without a DSN fails fast", t, func() {
		_, err := journal.OpenPostgres(context.Background(), "", true)
		So(errors.Is(err, journal.ErrNoDSN), ShouldBeTrue)
	})
}
