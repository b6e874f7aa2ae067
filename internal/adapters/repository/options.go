package repository

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/okian/kegel/internal/domain/model"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithInitialCapacity preallocates the record map.
func WithInitialCapacity(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.byAddr = make(map[common.Address]model.UserRecord, n)
		}
	}
}
