package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver for goose
	"github.com/pressly/goose/v3"

	"github.com/okian/kegel/internal/domain/model"
	"github.com/okian/kegel/pkg/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	connectTimeout = 5 * time.Second

	insertEvent = `INSERT INTO ledger_events
	(seq, id, height, occurred_at, kind, user_address, amount, count, combo, marker, value, root)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (seq) DO NOTHING`
)

// Execer is the subset of pgxpool.Pool the journal writes through.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres appends events to the ledger_events table. Appends are idempotent
// on seq.
type Postgres struct {
	db     Execer
	pool   *pgxpool.Pool
	closed atomic.Bool
}

// NewPostgres wraps an existing connection.
func NewPostgres(db Execer) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres connects to dsn and optionally applies the embedded migrations.
func OpenPostgres(ctx context.Context, dsn string, runMigrations bool) (*Postgres, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}
	log := logger.Get().Named("journal")

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if runMigrations {
		if err := migrate(dsn); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info(ctx, "journal migrations applied")
	}

	log.Info(ctx, "connected to postgres", logger.String("host", cfg.ConnConfig.Host), logger.String("database", cfg.ConnConfig.Database))
	return &Postgres{db: pool, pool: pool}, nil
}

func migrate(dsn string) error {
	goose.SetBaseFS(migrations)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Append inserts e.
func (p *Postgres) Append(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: matches worker.Journal
	if p.closed.Load() {
		return ErrClosed
	}
	if _, err := p.db.Exec(ctx, insertEvent, eventArgs(e)...); err != nil {
		return fmt.Errorf("insert event %d: %w", e.Seq, err)
	}
	return nil
}

// Close releases the pool if this journal opened it.
func (p *Postgres) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func eventArgs(e model.Event) []any { //nolint:gocritic // hugeParam: read-only copy
	var user, root *string
	if e.User != (common.Address{}) {
		s := e.User.Hex()
		user = &s
	}
	if e.Kind == model.KindMerkleRootUpdated {
		s := e.Root.Hex()
		root = &s
	}
	return []any{
		i64(e.Seq),
		e.ID,
		i64(e.Height),
		e.Timestamp(),
		string(e.Kind),
		user,
		pgtype.Numeric{Int: e.Amount.ToBig(), Valid: true},
		i64(e.Count),
		i64(e.Combo),
		i64(e.Marker),
		pgtype.Numeric{Int: new(big.Int).SetUint64(e.Value), Valid: true},
		root,
	}
}

// i64 maps sequence counters onto BIGINT; they grow by one per mutation.
func i64(v uint64) int64 { return int64(v) } //nolint:gosec // see above
