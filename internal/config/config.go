// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and KEGEL_ env vars.
// - Errors wrap this package's sentinel kinds.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Default addresses used when nothing is configured. They are only suitable
// for local development.
const (
	DefaultAdmin       = "0x00000000000000000000000000000000000000a0"
	DefaultPoolAddress = "0x00000000000000000000000000000000000000f0"
)

// maxDecimals keeps 10^decimals inside a uint256.
const maxDecimals = 77

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Admin is the hex address allowed to call admin operations.
	Admin string `koanf:"admin"`

	// PoolAddress is the custody account holding donations and deposits.
	PoolAddress string `koanf:"pool_address"`

	// TokenDecimals sets the base-unit scale; one whole token is 10^decimals.
	TokenDecimals int `koanf:"token_decimals"`

	// StartTime is the unix second the ledger opens. Zero means process start.
	StartTime int64 `koanf:"start_time"`

	// EndTime is the unix second the ledger closes. Zero means never.
	EndTime int64 `koanf:"end_time"`

	// CooldownSeconds is the minimum gap between two check-ins.
	CooldownSeconds uint64 `koanf:"cooldown_seconds"`

	// MerkleRoot optionally seeds the claim root as 0x-prefixed hex.
	MerkleRoot string `koanf:"merkle_root"`

	// LeaderboardSize caps every leaderboard.
	LeaderboardSize int `koanf:"leaderboard_size"`

	// CommandQueueSize bounds mutations waiting for the single writer.
	CommandQueueSize int `koanf:"command_queue_size"`

	// EventQueueSize bounds the journal queue.
	EventQueueSize int `koanf:"event_queue_size"`

	// JournalWorkers sets the number of journal workers.
	JournalWorkers int `koanf:"journal_workers"`

	// JournalDSN selects the Postgres journal when set.
	JournalDSN string `koanf:"journal_dsn"`

	// JournalRunMigrations applies the embedded schema on startup.
	JournalRunMigrations bool `koanf:"journal_run_migrations"`

	// RateLimitPerMinute and RateLimitBurst throttle write endpoints per client IP.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`
	RateLimitBurst     int `koanf:"rate_limit_burst"`

	// GenesisBalances mints base units to addresses at startup.
	GenesisBalances map[string]string `koanf:"genesis_balances"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		Admin:                DefaultAdmin,
		PoolAddress:          DefaultPoolAddress,
		TokenDecimals:        18,
		CooldownSeconds:      86_400,
		LeaderboardSize:      50,
		CommandQueueSize:     1_024,
		EventQueueSize:       10_000,
		JournalWorkers:       1,
		JournalRunMigrations: true,
		RateLimitPerMinute:   120,
		RateLimitBurst:       20,
		GenesisBalances:      map[string]string{},
	}
}

// Validate checks the configuration for values the ledger cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if !common.IsHexAddress(c.Admin) {
		return fmt.Errorf("%w: admin %q is not a hex address", ErrInvalidConfig, c.Admin)
	}
	if !common.IsHexAddress(c.PoolAddress) {
		return fmt.Errorf("%w: pool_address %q is not a hex address", ErrInvalidConfig, c.PoolAddress)
	}
	if c.AdminAddress() == c.Pool() {
		return fmt.Errorf("%w: pool_address must differ from admin", ErrInvalidConfig)
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > maxDecimals {
		return fmt.Errorf("%w: token_decimals must be within [0,%d]", ErrInvalidConfig, maxDecimals)
	}
	if c.CooldownSeconds == 0 {
		return fmt.Errorf("%w: cooldown_seconds must be positive", ErrInvalidConfig)
	}
	if c.StartTime < 0 || c.EndTime < 0 {
		return fmt.Errorf("%w: start_time and end_time must not be negative", ErrInvalidConfig)
	}
	if c.EndTime != 0 && c.EndTime <= c.StartTime {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidConfig)
	}
	if c.LeaderboardSize <= 0 {
		return fmt.Errorf("%w: leaderboard_size must be positive", ErrInvalidConfig)
	}
	if c.CommandQueueSize <= 0 || c.EventQueueSize <= 0 {
		return fmt.Errorf("%w: queue sizes must be positive", ErrInvalidConfig)
	}
	if c.JournalWorkers <= 0 {
		return fmt.Errorf("%w: journal_workers must be positive", ErrInvalidConfig)
	}
	if c.RateLimitPerMinute < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalidConfig)
	}
	if _, _, err := c.Root(); err != nil {
		return err
	}
	if _, err := c.Genesis(); err != nil {
		return err
	}
	return nil
}

// AdminAddress returns the parsed admin address.
func (c *Config) AdminAddress() common.Address { return common.HexToAddress(c.Admin) }

// Pool returns the parsed pool custody address.
func (c *Config) Pool() common.Address { return common.HexToAddress(c.PoolAddress) }

// Cooldown returns the cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Root parses MerkleRoot. ok is false when no root is configured.
func (c *Config) Root() (root common.Hash, ok bool, err error) {
	if c.MerkleRoot == "" {
		return common.Hash{}, false, nil
	}
	b, err := hexutil.Decode(c.MerkleRoot)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, false, fmt.Errorf("%w: merkle_root must be 32 bytes of hex", ErrInvalidConfig)
	}
	return common.BytesToHash(b), true, nil
}

// Genesis parses GenesisBalances into base-unit amounts.
func (c *Config) Genesis() (map[common.Address]*uint256.Int, error) {
	out := make(map[common.Address]*uint256.Int, len(c.GenesisBalances))
	for addr, amount := range c.GenesisBalances {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%w: genesis address %q", ErrInvalidConfig, addr)
		}
		v, err := uint256.FromDecimal(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: genesis amount for %s: %v", ErrInvalidConfig, addr, err)
		}
		out[common.HexToAddress(addr)] = v
	}
	return out, nil
}
