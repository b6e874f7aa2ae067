// Package merkle builds and verifies sorted-pair keccak256 Merkle trees.
//
// Leaves are keccak256(account ‖ amount) with the 20-byte address followed by
// the 32-byte big-endian amount. Pairs are hashed in ascending byte order, so
// a proof is just the list of siblings from leaf to root.
package merkle

import (
	"bytes"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Allocation is one entitlement in a distribution.
type Allocation struct {
	Account common.Address
	Amount  *uint256.Int
}

// Leaf returns the leaf hash of the allocation.
func (a Allocation) Leaf() common.Hash { return LeafHash(a.Account, a.Amount) }

// LeafHash returns keccak256(account ‖ uint256(amount)).
func LeafHash(account common.Address, amount *uint256.Int) common.Hash {
	amt := amount.Bytes32()
	return crypto.Keccak256Hash(account.Bytes(), amt[:])
}

// HashPair hashes two nodes in ascending order.
func HashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(b[:], a[:]) < 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// Verify reports whether proof links leaf to root.
func Verify(proof []common.Hash, root, leaf common.Hash) bool {
	node := leaf
	for _, sibling := range proof {
		node = HashPair(node, sibling)
	}
	return node == root
}

// Tree is a fully materialized sorted-pair tree.
type Tree struct {
	levels [][]common.Hash
}

// Build sorts the leaves and builds every level up to the root. An unpaired
// node at the end of a level is promoted unchanged.
func Build(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}
	base := slices.Clone(leaves)
	slices.SortFunc(base, func(a, b common.Hash) int { return bytes.Compare(a[:], b[:]) })

	levels := [][]common.Hash{base}
	for len(levels[len(levels)-1]) > 1 {
		cur := levels[len(levels)-1]
		next := make([]common.Hash, 0, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			if i+1 == len(cur) {
				next = append(next, cur[i])
				break
			}
			next = append(next, HashPair(cur[i], cur[i+1]))
		}
		levels = append(levels, next)
	}
	return &Tree{levels: levels}, nil
}

// BuildAllocations builds a tree over the leaves of allocs.
func BuildAllocations(allocs []Allocation) (*Tree, error) {
	leaves := make([]common.Hash, len(allocs))
	for i, a := range allocs {
		leaves[i] = a.Leaf()
	}
	return Build(leaves)
}

// Root returns the tree root.
func (t *Tree) Root() common.Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof returns the sibling path for leaf.
func (t *Tree) Proof(leaf common.Hash) ([]common.Hash, error) {
	idx := slices.Index(t.levels[0], leaf)
	if idx < 0 {
		return nil, ErrLeafNotFound
	}
	var proof []common.Hash
	for l := 0; l < len(t.levels)-1; l++ {
		if sib := idx ^ 1; sib < len(t.levels[l]) {
			proof = append(proof, t.levels[l][sib])
		}
		idx /= 2
	}
	return proof, nil
}
