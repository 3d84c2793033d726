package merkle

import "github.com/ethereum/go-ethereum/common"

// NodeHasher hashes the concatenation of its inputs into a 32-byte digest.
// The keccak256 hash type from go-merkletree satisfies it.
type NodeHasher interface {
	Hash(data ...[]byte) []byte
}

// MerkleTree is a binary merkle tree over whitelist leaves.
// Leaves are sorted ascending and internal nodes hash their children in
// ascending byte order, so proofs carry no left/right position.
type MerkleTree struct {
	// leaves contains the leaf hashes in ascending byte order
	leaves []common.Hash

	root common.Hash

	// levels[0] = leaves, levels[len-1] = [root]
	levels [][]common.Hash

	hasher NodeHasher
}

// MerkleProof is a proof that the leaf at LeafIndex is included in a tree.
type MerkleProof struct {
	// LeafIndex is the index of the leaf in the sorted leaves
	LeafIndex int

	Leaf common.Hash

	// Proof contains sibling hashes from the leaf level upwards.
	// Levels where the node had no sibling contribute nothing.
	Proof []common.Hash
}

type treeOptions struct {
	hasher NodeHasher
}

type TreeOption func(*treeOptions)

// WithNodeHasher overrides the keccak256 hash used for internal nodes.
func WithNodeHasher(h NodeHasher) TreeOption {
	return func(o *treeOptions) {
		o.hasher = h
	}
}
