package testevents

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/okian/kegel/pkg/logger"
)

// GenerateWallets derives n wallets from seed. The same seed always yields
// the same addresses and donations, so a server can be funded ahead of time
// with Genesis.
func GenerateWallets(seed string, n int, decimals uint8) []Wallet {
	unit := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
	wallets := make([]Wallet, n)
	for i := range wallets {
		var idx [8]byte
		binary.BigEndian.PutUint64(idx[:], uint64(i)) //nolint:gosec // i is non-negative
		h := crypto.Keccak256Hash([]byte(seed), idx[:])

		tokens := 1 + binary.BigEndian.Uint64(h[:8])%MaxDonationTokens
		donation := new(uint256.Int).Mul(uint256.NewInt(tokens), unit)
		wallets[i] = Wallet{
			Address:  common.BytesToAddress(h[12:]).Hex(),
			Donation: donation.Dec(),
		}
	}
	return wallets
}

// GenesisAmount is the base-unit balance every generated wallet starts with.
func GenesisAmount(decimals uint8) string {
	unit := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
	return new(uint256.Int).Mul(uint256.NewInt(GenesisTokens), unit).Dec()
}

// Genesis maps every wallet to GenesisAmount.
func Genesis(wallets []Wallet, decimals uint8) map[string]string {
	amount := GenesisAmount(decimals)
	out := make(map[string]string, len(wallets))
	for _, w := range wallets {
		out[w.Address] = amount
	}
	return out
}

// WriteGenesis prints a genesis_balances block for the service config file.
func WriteGenesis(w io.Writer, wallets []Wallet, decimals uint8) error {
	genesis := Genesis(wallets, decimals)
	addrs := make([]string, 0, len(genesis))
	for a := range genesis {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)

	if _, err := io.WriteString(w, "genesis_balances:\n"); err != nil {
		return err
	}
	for _, a := range addrs {
		if _, err := fmt.Fprintf(w, "  %q: %q\n", a, genesis[a]); err != nil {
			return err
		}
	}
	return nil
}

// generateWallets derives the configured wallets and records the count.
func generateWallets(ctx context.Context, config *Config, decimals uint8, stats *Stats) []Wallet {
	logger.Get().Info(ctx, "generating wallets",
		logger.Int("wallets", config.Wallets),
		logger.String("seed", config.Seed))
	wallets := GenerateWallets(config.Seed, config.Wallets, decimals)
	stats.WalletsGenerated = len(wallets)
	return wallets
}
