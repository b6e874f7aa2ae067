// Package repository stores per-address ledger records.
package repository

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/okian/kegel/internal/domain/model"
)

// Store provides read/write access to user records.
type Store interface {
	// Get returns the record for addr, or ErrNotFound if addr never checked in.
	Get(ctx context.Context, addr common.Address) (model.UserRecord, error)

	// Put replaces the record for addr.
	Put(ctx context.Context, addr common.Address, rec model.UserRecord)

	// Count returns the number of stored records.
	Count(ctx context.Context) int
}

// MemoryStore is a map-backed Store.
type MemoryStore struct {
	mu     sync.RWMutex
	byAddr map[common.Address]model.UserRecord
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	if s.byAddr == nil {
		s.byAddr = make(map[common.Address]model.UserRecord)
	}
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, addr common.Address) (model.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byAddr[addr]
	if !ok {
		return model.UserRecord{}, ErrNotFound
	}
	return rec, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, addr common.Address, rec model.UserRecord) {
	s.mu.Lock()
	s.byAddr[addr] = rec
	s.mu.Unlock()
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byAddr)
}
