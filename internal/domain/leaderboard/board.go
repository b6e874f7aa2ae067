// Package leaderboard maintains bounded, always-sorted top-K boards.
//
// Boards are capacity-capped treaps: an upsert removes the key's previous
// row, inserts the new one at its sorted position, and evicts rows past
// capacity from the tail. The fixed-size view only exists at the read
// boundary, where rows are materialized in rank order.
package leaderboard

import "sync"

// DefaultCapacity is the number of rows kept per board.
const DefaultCapacity = 50

// Board is a capped ranked set keyed by K.
type Board[K comparable, E any] struct {
	mu       sync.RWMutex
	root     *node[E]
	byKey    map[K]E
	keyOf    func(E) K
	less     before[E]
	capacity int
	inserts  uint64
}

func newBoard[K comparable, E any](capacity int, keyOf func(E) K, less func(a, b E) bool) *Board[K, E] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Board[K, E]{
		byKey:    make(map[K]E, capacity+1),
		keyOf:    keyOf,
		less:     less,
		capacity: capacity,
	}
}

// upsert replaces the row for item's key and trims the tail. It reports
// whether item is on the board afterwards. Caller holds mu.
func (b *Board[K, E]) upsert(item E) bool {
	k := b.keyOf(item)
	if old, ok := b.byKey[k]; ok {
		b.root = remove(b.root, old, b.less)
		delete(b.byKey, k)
	}
	b.inserts++
	b.root = insert(b.root, item, splitmix64(b.inserts), b.less)
	b.byKey[k] = item

	for nsize(b.root) > b.capacity {
		var last E
		b.root, last = removeLast(b.root)
		delete(b.byKey, b.keyOf(last))
	}
	_, ok := b.byKey[k]
	return ok
}

// Entries returns the rows best first.
func (b *Board[K, E]) Entries() []E {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]E, 0, nsize(b.root))
	collect(b.root, &out)
	return out
}

// Len returns the number of rows.
func (b *Board[K, E]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return nsize(b.root)
}

// Capacity returns the maximum number of rows.
func (b *Board[K, E]) Capacity() int { return b.capacity }

// Get returns the row stored under k.
func (b *Board[K, E]) Get(k K) (E, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.byKey[k]
	return e, ok
}

// Position returns the 1-based rank of k, or 0 when k is not on the board.
func (b *Board[K, E]) Position(k K) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.byKey[k]
	if !ok {
		return 0
	}
	return position(b.root, e, b.less)
}
