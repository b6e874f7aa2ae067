// Package claims tracks which addresses have received their Merkle payout.
package claims

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
)

// Registry records paid addresses. Entries are never removed.
type Registry interface {
	// Claimed reports whether addr was already paid.
	Claimed(ctx context.Context, addr common.Address) bool

	// SeenAndRecord atomically checks addr and records it if new.
	// Returns true if addr was already recorded.
	SeenAndRecord(ctx context.Context, addr common.Address) bool

	Size() int64
}

type inMemoryRegistry struct {
	mu   sync.RWMutex
	seen map[common.Address]struct{}
	size atomic.Int64
}

// NewInMemoryRegistry creates an append-only in-memory registry.
func NewInMemoryRegistry(opts ...Option) Registry {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &inMemoryRegistry{seen: make(map[common.Address]struct{}, cfg.expected)}
}

func (r *inMemoryRegistry) Claimed(_ context.Context, addr common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.seen[addr]
	return ok
}

func (r *inMemoryRegistry) SeenAndRecord(_ context.Context, addr common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[addr]; ok {
		return true
	}
	r.seen[addr] = struct{}{}
	r.size.Add(1)
	return false
}

func (r *inMemoryRegistry) Size() int64 {
	return r.size.Load()
}
