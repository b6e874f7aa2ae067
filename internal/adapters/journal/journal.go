// Package journal archives ledger events outside the process.
//
// The ledger's own in-memory log is authoritative; a journal is a downstream
// copy fed by the worker pool, so a failing journal never blocks or rolls
// back a mutation.
package journal

import (
	"context"
	"sync/atomic"

	"github.com/okian/kegel/internal/domain/model"
	"github.com/okian/kegel/pkg/logger"
)

// Logger writes each event as a structured log line.
type Logger struct {
	log    logger.Logger
	closed atomic.Bool
}

// NewLogger returns a journal on the named "journal" logger.
func NewLogger() *Logger {
	return &Logger{log: logger.Get().Named("journal")}
}

// Append logs e.
func (j *Logger) Append(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: matches worker.Journal
	if j.closed.Load() {
		return ErrClosed
	}
	fields := []logger.Field{
		logger.Uint64("seq", e.Seq),
		logger.Stringer("id", e.ID),
		logger.Uint64("height", e.Height),
		logger.Uint64("time", e.Time),
		logger.String("kind", string(e.Kind)),
	}
	switch e.Kind {
	case model.KindCheckIn:
		fields = append(fields,
			logger.String("user", e.User.Hex()),
			logger.String("amount", e.Amount.Dec()),
			logger.Uint64("count", e.Count),
			logger.Uint64("combo", e.Combo),
			logger.Uint64("marker", e.Marker))
	case model.KindComboEnded:
		fields = append(fields,
			logger.String("user", e.User.Hex()),
			logger.Uint64("marker", e.Marker),
			logger.Uint64("count", e.Count),
			logger.Uint64("end_time", e.Value))
	case model.KindAdminDeposit, model.KindClaimed:
		fields = append(fields,
			logger.String("user", e.User.Hex()),
			logger.String("amount", e.Amount.Dec()))
	case model.KindMerkleRootUpdated:
		fields = append(fields, logger.String("root", e.Root.Hex()))
	default:
		fields = append(fields, logger.Uint64("value", e.Value))
	}
	j.log.Info(ctx, "ledger event", fields...)
	return nil
}

// Close stops accepting events.
func (j *Logger) Close() error {
	j.closed.Store(true)
	return nil
}
