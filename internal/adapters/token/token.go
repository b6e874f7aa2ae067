// Package token provides an in-memory fungible token with allowances.
//
// Amounts are base units held in 256-bit integers. Transfers are atomic:
// either both balances change or neither does.
package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Memory is a thread-safe in-memory token.
type Memory struct {
	mu          sync.RWMutex
	symbol      string
	decimals    uint8
	totalSupply uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
}

// NewMemory creates an empty token.
func NewMemory(opts ...Option) *Memory {
	t := &Memory{
		symbol:     "KGL",
		decimals:   18,
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Symbol returns the ticker.
func (t *Memory) Symbol() string { return t.symbol }

// Decimals returns the number of decimals in one whole token.
func (t *Memory) Decimals() uint8 { return t.decimals }

// TotalSupply returns the minted supply.
func (t *Memory) TotalSupply(_ context.Context) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(uint256.Int).Set(&t.totalSupply)
}

// BalanceOf returns the balance of owner.
func (t *Memory) BalanceOf(_ context.Context, owner common.Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balanceLocked(owner)
}

// Allowance returns how much spender may move on behalf of owner.
func (t *Memory) Allowance(_ context.Context, owner, spender common.Address) *uint256.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if a, ok := t.allowances[owner][spender]; ok {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

// Mint creates amount new units for to.
func (t *Memory) Mint(_ context.Context, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("mint: %w", ErrZeroAddress)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	supply, overflow := new(uint256.Int).AddOverflow(&t.totalSupply, amount)
	if overflow {
		return fmt.Errorf("mint: %w", ErrSupplyOverflow)
	}
	t.totalSupply = *supply
	t.balances[to] = new(uint256.Int).Add(t.balanceLocked(to), amount)
	return nil
}

// Approve sets the allowance of spender over owner's balance.
func (t *Memory) Approve(_ context.Context, owner, spender common.Address, amount *uint256.Int) error {
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return fmt.Errorf("approve: %w", ErrZeroAddress)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]*uint256.Int)
	}
	t.allowances[owner][spender] = new(uint256.Int).Set(amount)
	return nil
}

// Transfer moves amount from from to to.
func (t *Memory) Transfer(_ context.Context, from, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.moveLocked(from, to, amount); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}

// TransferFrom moves amount from from to to using spender's allowance.
func (t *Memory) TransferFrom(_ context.Context, spender, from, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	allowed, ok := t.allowances[from][spender]
	if !ok || allowed.Lt(amount) {
		return fmt.Errorf("transferFrom: %w", ErrInsufficientAllowance)
	}
	if err := t.moveLocked(from, to, amount); err != nil {
		return fmt.Errorf("transferFrom: %w", err)
	}
	t.allowances[from][spender] = new(uint256.Int).Sub(allowed, amount)
	return nil
}

func (t *Memory) moveLocked(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	bal := t.balanceLocked(from)
	if bal.Lt(amount) {
		return ErrInsufficientBalance
	}
	t.balances[from] = new(uint256.Int).Sub(bal, amount)
	// Supply is bounded by totalSupply, so the receiving side cannot overflow.
	t.balances[to] = new(uint256.Int).Add(t.balanceLocked(to), amount)
	return nil
}

func (t *Memory) balanceLocked(owner common.Address) *uint256.Int {
	if b, ok := t.balances[owner]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}
