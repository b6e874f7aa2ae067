package testevents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/kegel/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes the complete check-in test against a running service. The
// wallets must already hold GenesisAmount, see WriteGenesis.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting kegel check-in test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("wallets", config.Wallets),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Read the ledger configuration
	ledgerCfg, err := getLedgerConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("config retrieval failed: %w", err)
	}

	// Step 3: Derive wallets and let the pool spend for them
	wallets := generateWallets(ctx, config, ledgerCfg.Decimals, stats)
	if err := approveWallets(ctx, config, ledgerCfg.Pool, ledgerCfg.Decimals, wallets, stats); err != nil {
		return fmt.Errorf("approval failed: %w", err)
	}

	// Step 4: Check in concurrently
	accepted := submitCheckIns(ctx, config, wallets, stats)

	// Step 5: Immediate retries must hit the cooldown
	if err := probeCooldown(ctx, config, wallets, accepted, stats); err != nil {
		return fmt.Errorf("cooldown probe failed: %w", err)
	}

	// Step 6: Read the donation board
	donations, err := getLeaderboard(ctx, config, "donation", stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyResults(ctx, config, wallets, accepted, donations); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save wallets to file
	if config.OutputFile != "" {
		if err := saveWalletsToFile(ctx, config.OutputFile, wallets); err != nil {
			log.Warn(ctx, "failed to save wallets to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	resp, err := newHTTPClient(config.Timeout).Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	_, _ = readResponseBody(resp)

	// Any 200 is healthy; the body is Prometheus metrics.
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveWalletsToFile writes the generated wallets as a JSON array.
func saveWalletsToFile(ctx context.Context, filename string, wallets []Wallet) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(wallets, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wallets: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "wallets saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, checkInsPerSecond float64
	if stats.CheckInsSubmitted > 0 {
		acceptRate = float64(stats.CheckInsAccepted) / float64(stats.CheckInsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		checkInsPerSecond = float64(stats.CheckInsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("walletsGenerated", stats.WalletsGenerated),
		logger.Int("approvals", stats.Approvals),
		logger.Int("checkInsSubmitted", stats.CheckInsSubmitted),
		logger.Int("checkInsAccepted", stats.CheckInsAccepted),
		logger.Int("checkInsRejected", stats.CheckInsRejected),
		logger.Int("cooldownProbes", stats.CooldownProbes),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("checkInsPerSecond", checkInsPerSecond))
}
