package testevents

// HTTP constants.
const (
	StatusOK              = 200
	StatusTooManyRequests = 429
	CallerHeader          = "X-Wallet-Address"
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Wallet funding constants, in whole tokens.
const (
	GenesisTokens     = 100
	MaxDonationTokens = 50
)

// PercentageMultiplier converts ratios to percentages.
const PercentageMultiplier = 100
