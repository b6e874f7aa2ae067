package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/okian/kegel/internal/adapters/http/api"
	"github.com/okian/kegel/internal/adapters/http/site"
	"github.com/okian/kegel/internal/adapters/http/swagger"
	"github.com/okian/kegel/internal/adapters/journal"
	workerpool "github.com/okian/kegel/internal/adapters/mq/worker"
	"github.com/okian/kegel/internal/adapters/token"
	service "github.com/okian/kegel/internal/app"
	"github.com/okian/kegel/internal/config"
	"github.com/okian/kegel/internal/domain/ledger"
	"github.com/okian/kegel/pkg/logger"
	"github.com/okian/kegel/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.InitWith(os.Stdout, logger.Format(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, clockwork.NewRealClock()); err != nil {
		log.Error(ctx, "kegel exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run wires the ledger, its service and the HTTP server, and blocks until ctx
// is cancelled or the server fails.
func run(ctx context.Context, cfg *config.Config, clock clockwork.Clock) error {
	log := logger.Get()

	tok, err := newToken(ctx, cfg)
	if err != nil {
		return err
	}
	l, err := newLedger(cfg, tok, clock)
	if err != nil {
		return err
	}
	j, err := newJournal(ctx, cfg)
	if err != nil {
		return err
	}

	svc := service.New(l, tok,
		service.WithClock(clock),
		service.WithLogger(log.Named("service")),
		service.WithJournal(j),
		service.WithCommandQueueSize(cfg.CommandQueueSize),
		service.WithEventQueueSize(cfg.EventQueueSize),
		service.WithWorkerCount(cfg.JournalWorkers),
	)
	if err := svc.Start(ctx); err != nil {
		_ = svc.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn(ctx, "journal close failed", logger.Error(err))
		}
	}()

	var limiter *api.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = api.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
		defer limiter.Close()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc, limiter),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		// In-flight handlers are done; drain the mutator and the journal.
		return errors.Join(err, svc.Stop(shutdownCtx))
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// newToken builds the custody token and mints the genesis balances.
func newToken(ctx context.Context, cfg *config.Config) (*token.Memory, error) {
	tok := token.NewMemory(token.WithDecimals(uint8(cfg.TokenDecimals))) //nolint:gosec // validated to [0,77]
	genesis, err := cfg.Genesis()
	if err != nil {
		return nil, err
	}
	for addr, amount := range genesis {
		if err := tok.Mint(ctx, addr, amount); err != nil {
			return nil, fmt.Errorf("genesis mint for %s: %w", addr.Hex(), err)
		}
	}
	return tok, nil
}

// newLedger builds the ledger from configuration. A zero start time opens
// the ledger at process start.
func newLedger(cfg *config.Config, tok ledger.Token, clock clockwork.Clock) (*ledger.Ledger, error) {
	start := uint64(cfg.StartTime) //nolint:gosec // validated non-negative
	if start == 0 {
		start = uint64(clock.Now().Unix()) //nolint:gosec // wall clock is after 1970
	}
	settings := ledger.Settings{
		Admin:     cfg.AdminAddress(),
		Pool:      cfg.Pool(),
		Decimals:  uint8(cfg.TokenDecimals), //nolint:gosec // validated to [0,77]
		StartTime: start,
		EndTime:   uint64(cfg.EndTime), //nolint:gosec // validated non-negative
		Cooldown:  cfg.CooldownSeconds,
	}
	root, ok, err := cfg.Root()
	if err != nil {
		return nil, err
	}
	if ok {
		settings.MerkleRoot = &root
	}
	return ledger.New(settings, tok, ledger.WithBoardCapacity(cfg.LeaderboardSize))
}

// newJournal picks the Postgres journal when a DSN is configured and the log
// journal otherwise.
func newJournal(ctx context.Context, cfg *config.Config) (workerpool.Journal, error) {
	if cfg.JournalDSN == "" {
		return journal.NewLogger(), nil
	}
	pg, err := journal.OpenPostgres(ctx, cfg.JournalDSN, cfg.JournalRunMigrations)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return pg, nil
}

// newHandler registers every route on one mux and tags requests with an id.
func newHandler(ctx context.Context, svc *service.Service, limiter *api.RateLimiter) http.Handler {
	mux := http.NewServeMux()
	api.NewServer(svc, limiter).Register(ctx, mux)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	return api.RequestID(mux)
}

// startSystemMetricsUpdater periodically records process metrics until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
