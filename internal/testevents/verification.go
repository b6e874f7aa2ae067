package testevents

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/holiman/uint256"

	"github.com/okian/kegel/pkg/logger"
)

// ErrNoCheckIns is returned when nothing was accepted, so there is nothing
// to verify.
var ErrNoCheckIns = errors.New("no accepted check-ins to verify")

// verifyResults compares the donation board with the donations the test made.
// A board that is out of order is an error. Rows from other participants are
// only reported, since the server may have history from earlier runs.
func verifyResults(ctx context.Context, config *Config, wallets []Wallet, accepted []bool, donations []Entry) error {
	log := logger.Get()
	log.Info(ctx, "verifying results")

	var mine []Wallet
	for i, w := range wallets {
		if accepted[i] {
			mine = append(mine, w)
		}
	}
	if len(mine) == 0 {
		return ErrNoCheckIns
	}

	if err := verifyOrder(donations); err != nil {
		return err
	}

	sort.SliceStable(mine, func(i, j int) bool {
		return uint256.MustFromDecimal(mine[i].Donation).Gt(uint256.MustFromDecimal(mine[j].Donation))
	})
	if err := verifyTop(mine, donations, config.TopN); err != nil {
		log.Warn(ctx, "leaderboard consistency warning", logger.Error(err))
	} else {
		log.Info(ctx, "leaderboard consistency verified")
	}

	displayTopDonors(ctx, mine, donations, config.Verbose)
	return nil
}

// verifyOrder checks that values never increase down the board.
func verifyOrder(board []Entry) error {
	for i := 1; i < len(board); i++ {
		prev, err := uint256.FromDecimal(board[i-1].Value)
		if err != nil {
			return fmt.Errorf("row %d: %w", i-1, err)
		}
		cur, err := uint256.FromDecimal(board[i].Value)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if cur.Gt(prev) {
			return fmt.Errorf("leaderboard not properly sorted: entry %d has a higher value than entry %d", i, i-1)
		}
	}
	return nil
}

// verifyTop checks that the board's values match the largest donations made.
func verifyTop(sorted []Wallet, board []Entry, topN int) error {
	n := min(len(sorted), len(board))
	for i := range n {
		if board[i].Value != sorted[i].Donation {
			return fmt.Errorf("rank %d holds %s, expected %s", i+1, board[i].Value, sorted[i].Donation)
		}
	}
	if want := min(len(sorted), topN); len(board) < want {
		return fmt.Errorf("board has %d rows, expected at least %d", len(board), want)
	}
	return nil
}

// displayTopDonors logs the expected and observed top of the board.
func displayTopDonors(ctx context.Context, sorted []Wallet, board []Entry, verbose bool) {
	log := logger.Get()
	topN := min(10, len(sorted))
	for i := range topN {
		log.Info(ctx, "expected donor", logger.Int("rank", i+1), logger.String("address", sorted[i].Address), logger.String("donation", sorted[i].Donation))
	}
	for i := range min(topN, len(board)) {
		log.Info(ctx, "board donor", logger.Int("rank", board[i].Rank), logger.String("address", board[i].Address), logger.String("value", board[i].Value))
	}
	if verbose && len(sorted) > 0 {
		total := new(uint256.Int)
		for _, w := range sorted {
			total.Add(total, uint256.MustFromDecimal(w.Donation))
		}
		log.Info(ctx, "donation statistics",
			logger.String("total", total.Dec()),
			logger.String("max", sorted[0].Donation),
			logger.String("min", sorted[len(sorted)-1].Donation))
	}
}
