package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/okian/kegel/internal/testevents"
)

// Default configuration constants.
const (
	defaultWallets     = 1000
	defaultTopN        = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultProbes      = 10
	defaultDecimals    = 18
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	baseURL := flag.String("url", "http://localhost:9080", "base URL of the service")
	wallets := flag.Int("wallets", defaultWallets, "number of wallets to check in")
	seed := flag.String("seed", "kegel", "seed the wallet addresses are derived from")
	topN := flag.Int("top", defaultTopN, "number of leaderboard rows to verify")
	workers := flag.Int("workers", runtime.NumCPU()*defaultWorkers, "number of concurrent workers")
	probes := flag.Int("probes", defaultProbes, "wallets that retry at once to exercise the cooldown")
	timeout := flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
	outputFile := flag.String("output", "", "write the generated wallets to this JSON file")
	logFile := flag.String("log", "", "also write the test log to this file")
	genesis := flag.Bool("genesis", false, "print a genesis_balances config block for the wallets and exit")
	decimals := flag.Uint8("decimals", defaultDecimals, "token decimals used by --genesis")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, testevents.Usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *genesis {
		return testevents.WriteGenesis(os.Stdout, testevents.GenerateWallets(*seed, *wallets, *decimals), *decimals)
	}

	if err := testevents.SetupLogging(*logFile); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	return testevents.Run(ctx, &testevents.Config{
		BaseURL:    *baseURL,
		Wallets:    *wallets,
		Seed:       *seed,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		Probes:     *probes,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	})
}
