package testevents

import "time"

// Config holds configuration for the check-in load test.
type Config struct {
	BaseURL    string        // Base URL of the service
	Wallets    int           // Number of wallets to drive
	Seed       string        // Seed the wallet addresses are derived from
	TopN       int           // Number of leaderboard rows to verify
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Probes     int           // Wallets that retry immediately to exercise the cooldown
	OutputFile string        // Output file for the generated wallets
	Verbose    bool          // Enable verbose logging
}

// Wallet is one generated participant and the donation it makes.
type Wallet struct {
	Address  string `json:"address"`
	Donation string `json:"donation"`
}

// Entry is a scalar leaderboard row.
type Entry struct {
	Rank    int    `json:"rank"`
	Address string `json:"address"`
	Value   string `json:"value"`
}

// LedgerConfig is the subset of GET /config the test needs.
type LedgerConfig struct {
	Pool     string `json:"pool"`
	Decimals uint8  `json:"decimals"`
	Cooldown uint64 `json:"cooldown"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stats holds test statistics.
type Stats struct {
	WalletsGenerated   int
	Approvals          int
	CheckInsSubmitted  int
	CheckInsAccepted   int
	CheckInsRejected   int
	CooldownProbes     int
	CooldownRejected   int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
