package merkle

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/wealdtech/go-merkletree/v2/keccak256"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

var defaultHasher NodeHasher = keccak256.New()

// HashEntry returns the leaf for an account and its ceiling:
// keccak256(abi.encodePacked(address account, uint256 maxBorrow)).
func HashEntry(account common.Address, maxBorrow types.Amount) common.Hash {
	amount := maxBorrow.Bytes32()
	return crypto.Keccak256Hash(account.Bytes(), amount[:])
}

// BuildTree creates a merkle tree from whitelist entries.
//
// Entries with a zero ceiling are dropped: a zero ceiling is indistinguishable
// from not being whitelisted. Duplicate accounts are rejected, as is an entry
// set that is empty after filtering.
func BuildTree(entries []*types.WhitelistEntry, opts ...TreeOption) (*MerkleTree, error) {
	seen := make(map[common.Address]struct{}, len(entries))
	leaves := make([]common.Hash, 0, len(entries))

	for _, entry := range entries {
		if entry == nil {
			return nil, errors.Wrap(types.ErrInvalidInput, "nil whitelist entry")
		}
		if _, ok := seen[entry.Account]; ok {
			return nil, errors.Wrapf(types.ErrInvalidInput, "duplicate account %s", entry.Account.Hex())
		}
		seen[entry.Account] = struct{}{}

		if entry.MaxBorrow.IsZero() {
			continue
		}
		leaves = append(leaves, HashEntry(entry.Account, entry.MaxBorrow))
	}

	return BuildTreeFromLeaves(leaves, opts...)
}

// BuildTreeFromLeaves creates a merkle tree from precomputed leaf hashes.
// The input slice is not modified.
func BuildTreeFromLeaves(leaves []common.Hash, opts ...TreeOption) (*MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, errors.Wrap(types.ErrEmptyInput, "cannot build merkle tree without leaves")
	}

	o := &treeOptions{hasher: defaultHasher}
	for _, opt := range opts {
		opt(o)
	}

	sorted := SortLeaves(leaves)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return nil, errors.Wrapf(types.ErrInvalidInput, "duplicate leaf %s", sorted[i].Hex())
		}
	}

	levels := [][]common.Hash{sorted}
	currentLevel := sorted
	for len(currentLevel) > 1 {
		nextLevel := make([]common.Hash, 0, (len(currentLevel)+1)/2)

		for i := 0; i < len(currentLevel); i += 2 {
			if i+1 == len(currentLevel) {
				// unpaired node is promoted as-is
				nextLevel = append(nextLevel, currentLevel[i])
				continue
			}
			nextLevel = append(nextLevel, hashPair(o.hasher, currentLevel[i], currentLevel[i+1]))
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	return &MerkleTree{
		leaves: sorted,
		root:   currentLevel[0],
		levels: levels,
		hasher: o.hasher,
	}, nil
}

func (mt *MerkleTree) Root() common.Hash {
	return mt.root
}

func (mt *MerkleTree) LeafCount() int {
	return len(mt.leaves)
}

// Leaves returns a copy of the sorted leaves.
func (mt *MerkleTree) Leaves() []common.Hash {
	out := make([]common.Hash, len(mt.leaves))
	copy(out, mt.leaves)
	return out
}

// GenerateProof creates a proof for the leaf at the given index of the sorted leaves.
func (mt *MerkleTree) GenerateProof(leafIndex int) (*MerkleProof, error) {
	if leafIndex < 0 || leafIndex >= len(mt.leaves) {
		return nil, errors.Wrapf(types.ErrInvalidInput, "leaf index %d out of bounds (tree has %d leaves)", leafIndex, len(mt.leaves))
	}

	proof := make([]common.Hash, 0, len(mt.levels)-1)
	index := leafIndex

	for level := 0; level < len(mt.levels)-1; level++ {
		currentLevel := mt.levels[level]

		siblingIndex := index ^ 1
		if siblingIndex < len(currentLevel) {
			proof = append(proof, currentLevel[siblingIndex])
		}

		index = index / 2
	}

	return &MerkleProof{
		LeafIndex: leafIndex,
		Leaf:      mt.leaves[leafIndex],
		Proof:     proof,
	}, nil
}

// Proof returns the sibling path for a leaf, looked up by value.
func (mt *MerkleTree) Proof(leaf common.Hash) ([]common.Hash, error) {
	index := sort.Search(len(mt.leaves), func(i int) bool {
		return bytes.Compare(mt.leaves[i][:], leaf[:]) >= 0
	})
	if index == len(mt.leaves) || mt.leaves[index] != leaf {
		return nil, errors.Wrapf(types.ErrInvalidInput, "leaf %s is not in the tree", leaf.Hex())
	}

	p, err := mt.GenerateProof(index)
	if err != nil {
		return nil, err
	}
	return p.Proof, nil
}

// VerifyProof reports whether folding leaf with proof using sorted-pair hashing
// yields root. A mismatch is a normal outcome, not an error.
func VerifyProof(leaf common.Hash, proof []common.Hash, root common.Hash, opts ...TreeOption) bool {
	o := &treeOptions{hasher: defaultHasher}
	for _, opt := range opts {
		opt(o)
	}

	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(o.hasher, computed, sibling)
	}
	return computed == root
}

// Verify checks the proof against root.
func (p *MerkleProof) Verify(root common.Hash, opts ...TreeOption) bool {
	if p == nil {
		return false
	}
	return VerifyProof(p.Leaf, p.Proof, root, opts...)
}

// SortLeaves returns a copy of leaves in ascending byte order.
func SortLeaves(leaves []common.Hash) []common.Hash {
	sorted := make([]common.Hash, len(leaves))
	copy(sorted, leaves)

	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	return sorted
}

// hashPair computes keccak256(min(a,b) || max(a,b)).
func hashPair(h NodeHasher, a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return common.BytesToHash(h.Hash(a[:], b[:]))
}
