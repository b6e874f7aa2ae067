package testevents

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/kegel/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0o600
)

// SetupLogging sends the test log to stdout and, when logFile is set, to that
// file as well.
func SetupLogging(logFile string) error {
	if logFile == "" {
		return logger.Init()
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWith(io.MultiWriter(os.Stdout, file), logger.FormatText); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// Usage is printed above the flag defaults by --help.
const Usage = `Kegel Check-in Test Tool
========================

Drives concurrent check-ins against a running kegel service and verifies the
donation leaderboard. Wallets are derived from --seed, so fund them first:

  test-events --genesis --wallets 500 > genesis.yaml   # merge into the service config
  test-events --wallets 500 --workers 16 --url http://localhost:9080

Options:
`
