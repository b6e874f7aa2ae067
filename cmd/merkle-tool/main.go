// Command merkle-tool builds a claim distribution from a CSV of
// address,amount rows and prints its root and proofs as JSON.
package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	flag "github.com/spf13/pflag"

	"github.com/okian/kegel/internal/domain/merkle"
)

type claim struct {
	Address string   `json:"address"`
	Amount  string   `json:"amount"`
	Proof   []string `json:"proof"`
}

type output struct {
	Root   string  `json:"root"`
	Count  int     `json:"count"`
	Claims []claim `json:"claims,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("merkle-tool", flag.ContinueOnError)
	inputFlag := fs.StringP("input", "i", "-", "CSV file of address,amount rows (- for stdin)")
	accountFlag := fs.StringSliceP("account", "a", nil, "print the proof for these addresses")
	allFlag := fs.Bool("all", false, "print proofs for every allocation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := stdin
	if *inputFlag != "-" {
		f, err := os.Open(*inputFlag)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	allocs, err := readAllocations(in)
	if err != nil {
		return err
	}
	tree, err := merkle.BuildAllocations(allocs)
	if err != nil {
		return err
	}

	out := output{Root: tree.Root().Hex(), Count: len(allocs)}
	byAccount := make(map[common.Address]merkle.Allocation, len(allocs))
	for _, a := range allocs {
		byAccount[a.Account] = a
	}

	var wanted []merkle.Allocation
	switch {
	case *allFlag:
		wanted = allocs
	default:
		for _, raw := range *accountFlag {
			if !common.IsHexAddress(raw) {
				return fmt.Errorf("invalid account %q", raw)
			}
			a, ok := byAccount[common.HexToAddress(raw)]
			if !ok {
				return fmt.Errorf("account %s has no allocation", raw)
			}
			wanted = append(wanted, a)
		}
	}
	for _, a := range wanted {
		proof, err := tree.Proof(a.Leaf())
		if err != nil {
			return err
		}
		c := claim{Address: a.Account.Hex(), Amount: a.Amount.Dec(), Proof: make([]string, len(proof))}
		for i, p := range proof {
			c.Proof[i] = p.Hex()
		}
		out.Claims = append(out.Claims, c)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// readAllocations parses address,amount rows. A leading header row and
// blank lines are skipped; an address may appear once.
func readAllocations(r io.Reader) ([]merkle.Allocation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	seen := make(map[common.Address]struct{})
	var out []merkle.Allocation
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		addr, amount := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if line == 1 && strings.EqualFold(addr, "address") {
			continue
		}
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("line %d: invalid address %q", line, addr)
		}
		v, err := uint256.FromDecimal(amount)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount %q: %w", line, amount, err)
		}
		account := common.HexToAddress(addr)
		if _, dup := seen[account]; dup {
			return nil, fmt.Errorf("line %d: duplicate address %s", line, account.Hex())
		}
		seen[account] = struct{}{}
		out = append(out, merkle.Allocation{Account: account, Amount: v})
	}
	return out, nil
}
