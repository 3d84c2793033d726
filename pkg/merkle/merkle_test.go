package merkle

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/testutil"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

var (
	accountA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1")
	accountB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb2")
)

func boundaryEntries() []*types.WhitelistEntry {
	return []*types.WhitelistEntry{
		{Account: accountA, MaxBorrow: types.MustParseAmount("1337000000")},
		{Account: accountB, MaxBorrow: types.MustParseAmount("7331000000")},
	}
}

// TestHashEntry_KnownVector pins the packed encoding against a precomputed keccak256.
func TestHashEntry_KnownVector(t *testing.T) {
	leafA := HashEntry(accountA, types.MustParseAmount("1337000000"))
	require.Equal(t, common.HexToHash("0x0bccf7baa2cb28f3e1a614e6a582324944982756a730b5db0710aed623c50f07"), leafA)

	leafB := HashEntry(accountB, types.MustParseAmount("7331000000"))
	require.Equal(t, common.HexToHash("0x8e58dfd86dfbd471785d94b9ec454c7bf6f27da24d613357dc4043635e499052"), leafB)
}

// TestHashEntry_MatchesPackedEncoding recomputes the leaf with an independent keccak implementation.
func TestHashEntry_MatchesPackedEncoding(t *testing.T) {
	amounts := []string{"1", "1337000000", "115792089237316195423570985008687907853269984665640564039457584007913129639935"}

	for _, s := range amounts {
		t.Run(s, func(t *testing.T) {
			amount := types.MustParseAmount(s)

			packed := make([]byte, 0, 52)
			packed = append(packed, accountA.Bytes()...)
			n, ok := new(big.Int).SetString(s, 10)
			require.True(t, ok)
			packed = append(packed, common.LeftPadBytes(n.Bytes(), 32)...)
			require.Len(t, packed, 52)

			h := sha3.NewLegacyKeccak256()
			_, _ = h.Write(packed)
			expected := common.BytesToHash(h.Sum(nil))

			require.Equal(t, expected, HashEntry(accountA, amount))
		})
	}
}

func TestHashEntry_DifferentInputs(t *testing.T) {
	amount := types.NewAmount(1000)

	require.NotEqual(t, HashEntry(accountA, amount), HashEntry(accountB, amount))
	require.NotEqual(t, HashEntry(accountA, amount), HashEntry(accountA, types.NewAmount(1001)))
	require.Equal(t, HashEntry(accountA, amount), HashEntry(accountA, types.NewAmount(1000)))
}

// TestBuildTree tests tree construction with various entry counts, including odd ones
func TestBuildTree(t *testing.T) {
	testCases := []struct {
		name       string
		numEntries int
	}{
		{"Single entry", 1},
		{"Two entries", 2},
		{"Three entries", 3},
		{"Four entries (power of 2)", 4},
		{"Five entries", 5},
		{"Seven entries", 7},
		{"Eight entries (power of 2)", 8},
		{"Fifteen entries", 15},
		{"Sixteen entries (power of 2)", 16},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entries := testutil.CreateTestEntries(tc.numEntries)
			tree, err := BuildTree(entries)
			require.NoError(t, err)
			require.NotNil(t, tree)

			require.Equal(t, tc.numEntries, tree.LeafCount())
			require.NotEqual(t, common.Hash{}, tree.Root())

			for _, entry := range entries {
				leaf := HashEntry(entry.Account, entry.MaxBorrow)
				proof, err := tree.Proof(leaf)
				require.NoError(t, err)
				require.True(t, VerifyProof(leaf, proof, tree.Root()), "proof for %s should be valid", entry.Account.Hex())
			}
		})
	}
}

func TestBuildTree_SingleLeafIsRoot(t *testing.T) {
	entries := testutil.CreateTestEntries(1)
	tree, err := BuildTree(entries)
	require.NoError(t, err)

	leaf := HashEntry(entries[0].Account, entries[0].MaxBorrow)
	require.Equal(t, leaf, tree.Root())

	proof, err := tree.Proof(leaf)
	require.NoError(t, err)
	require.Empty(t, proof)
	require.True(t, VerifyProof(leaf, proof, tree.Root()))
}

func TestBuildTree_BoundaryScenario(t *testing.T) {
	expectedRoot := common.HexToHash("0xeda67faac957d00ae19febb5b4d27b8007a091aa90913a251d3646de2adf977d")

	tree, err := BuildTree(boundaryEntries())
	require.NoError(t, err)
	require.Equal(t, expectedRoot, tree.Root())

	// stable across re-runs
	again, err := BuildTree(boundaryEntries())
	require.NoError(t, err)
	require.Equal(t, tree.Root(), again.Root())

	leafA := HashEntry(accountA, types.MustParseAmount("1337000000"))
	leafB := HashEntry(accountB, types.MustParseAmount("7331000000"))

	proofA, err := tree.Proof(leafA)
	require.NoError(t, err)
	proofB, err := tree.Proof(leafB)
	require.NoError(t, err)

	require.True(t, VerifyProof(leafA, proofA, tree.Root()))
	require.True(t, VerifyProof(leafB, proofB, tree.Root()))

	// entry A's proof presented with entry B's leaf
	require.False(t, VerifyProof(leafB, proofA, tree.Root()))
	require.False(t, VerifyProof(leafA, proofB, tree.Root()))
}

// TestBuildTree_Empty tests that an empty or all-zero entry set is rejected
func TestBuildTree_Empty(t *testing.T) {
	t.Run("No entries", func(t *testing.T) {
		tree, err := BuildTree(nil)
		require.Error(t, err)
		require.Nil(t, tree)
		require.True(t, errors.Is(err, types.ErrEmptyInput))
	})

	t.Run("Only zero ceilings", func(t *testing.T) {
		entries := []*types.WhitelistEntry{
			{Account: accountA, MaxBorrow: types.NewAmount(0)},
			{Account: accountB, MaxBorrow: types.NewAmount(0)},
		}
		tree, err := BuildTree(entries)
		require.Error(t, err)
		require.Nil(t, tree)
		require.True(t, errors.Is(err, types.ErrEmptyInput))
	})
}

func TestBuildTree_ExcludesZeroCeilings(t *testing.T) {
	entries := append(boundaryEntries(), &types.WhitelistEntry{
		Account:   testutil.FixtureUSTZeroAccount,
		MaxBorrow: types.NewAmount(0),
	})

	tree, err := BuildTree(entries)
	require.NoError(t, err)
	require.Equal(t, 2, tree.LeafCount())

	withoutZero, err := BuildTree(boundaryEntries())
	require.NoError(t, err)
	require.Equal(t, withoutZero.Root(), tree.Root())

	zeroLeaf := HashEntry(testutil.FixtureUSTZeroAccount, types.NewAmount(0))
	_, err = tree.Proof(zeroLeaf)
	require.Error(t, err)
	require.True(t, errors.Is(err, types.ErrInvalidInput))

	// no proof drawn from the tree can validate the zero leaf
	for i := 0; i < tree.LeafCount(); i++ {
		p, err := tree.GenerateProof(i)
		require.NoError(t, err)
		require.False(t, VerifyProof(zeroLeaf, p.Proof, tree.Root()))
	}
}

func TestBuildTree_DuplicateAccount(t *testing.T) {
	entries := []*types.WhitelistEntry{
		{Account: accountA, MaxBorrow: types.NewAmount(1)},
		{Account: accountA, MaxBorrow: types.NewAmount(2)},
	}
	tree, err := BuildTree(entries)
	require.Error(t, err)
	require.Nil(t, tree)
	require.True(t, errors.Is(err, types.ErrInvalidInput))
}

func TestBuildTree_NilEntry(t *testing.T) {
	_, err := BuildTree([]*types.WhitelistEntry{nil})
	require.True(t, errors.Is(err, types.ErrInvalidInput))
}

func TestBuildTreeFromLeaves_DuplicateLeaf(t *testing.T) {
	leaf := HashEntry(accountA, types.NewAmount(1))
	_, err := BuildTreeFromLeaves([]common.Hash{leaf, leaf})
	require.True(t, errors.Is(err, types.ErrInvalidInput))
}

func TestBuildTreeFromLeaves_DoesNotMutateInput(t *testing.T) {
	leaves := []common.Hash{
		common.HexToHash("0x03"),
		common.HexToHash("0x01"),
		common.HexToHash("0x02"),
	}
	original := make([]common.Hash, len(leaves))
	copy(original, leaves)

	tree, err := BuildTreeFromLeaves(leaves)
	require.NoError(t, err)
	require.Equal(t, original, leaves)

	sorted := tree.Leaves()
	require.Equal(t, []common.Hash{original[1], original[2], original[0]}, sorted)
}

// TestMerkleProofVerification tests proof verification with valid and invalid cases
func TestMerkleProofVerification(t *testing.T) {
	entries := testutil.CreateTestEntries(4)
	tree, err := BuildTree(entries)
	require.NoError(t, err)

	t.Run("Valid proof", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)
		require.True(t, proof.Verify(tree.Root()))
	})

	t.Run("Invalid proof - wrong root", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)

		invalidRoot := common.Hash{1, 2, 3, 4, 5}
		require.False(t, proof.Verify(invalidRoot))
	})

	t.Run("Invalid proof - tampered leaf", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)

		proof.Leaf[0] ^= 0xFF
		require.False(t, proof.Verify(tree.Root()))
	})

	t.Run("Invalid proof - truncated", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)
		require.NotEmpty(t, proof.Proof)

		proof.Proof = proof.Proof[:len(proof.Proof)-1]
		require.False(t, proof.Verify(tree.Root()))
	})

	t.Run("Invalid proof - reordered", func(t *testing.T) {
		proof, err := tree.GenerateProof(0)
		require.NoError(t, err)
		require.Len(t, proof.Proof, 2)

		proof.Proof[0], proof.Proof[1] = proof.Proof[1], proof.Proof[0]
		require.False(t, proof.Verify(tree.Root()))
	})

	t.Run("Invalid proof - nil proof", func(t *testing.T) {
		var proof *MerkleProof
		require.False(t, proof.Verify(tree.Root()))
	})
}

// TestMerkleProofTamperSensitivity flips every bit of every proof element
func TestMerkleProofTamperSensitivity(t *testing.T) {
	entries := testutil.CreateTestEntries(9)
	tree, err := BuildTree(entries)
	require.NoError(t, err)

	for i := 0; i < tree.LeafCount(); i++ {
		proof, err := tree.GenerateProof(i)
		require.NoError(t, err)
		require.True(t, proof.Verify(tree.Root()))

		for e := range proof.Proof {
			for bit := 0; bit < 256; bit++ {
				tampered := make([]common.Hash, len(proof.Proof))
				copy(tampered, proof.Proof)
				tampered[e][bit/8] ^= 1 << (bit % 8)

				require.False(t, VerifyProof(proof.Leaf, tampered, tree.Root()),
					"leaf %d element %d bit %d", i, e, bit)
			}
		}
	}
}

// TestMerkleProofSubstitution presents every leaf with every other leaf's proof
func TestMerkleProofSubstitution(t *testing.T) {
	entries := testutil.CreateTestEntries(6)
	tree, err := BuildTree(entries)
	require.NoError(t, err)

	proofs := make([]*MerkleProof, tree.LeafCount())
	for i := range proofs {
		proofs[i], err = tree.GenerateProof(i)
		require.NoError(t, err)
	}

	for i := range proofs {
		for j := range proofs {
			if i == j {
				continue
			}
			require.False(t, VerifyProof(proofs[i].Leaf, proofs[j].Proof, tree.Root()), "leaf %d with proof %d", i, j)
		}
	}
}

// TestGenerateProofInvalidIndex tests proof generation with invalid indices
func TestGenerateProofInvalidIndex(t *testing.T) {
	tree, err := BuildTree(testutil.CreateTestEntries(4))
	require.NoError(t, err)

	t.Run("Negative index", func(t *testing.T) {
		proof, err := tree.GenerateProof(-1)
		require.Error(t, err)
		require.Nil(t, proof)
	})

	t.Run("Index out of bounds", func(t *testing.T) {
		proof, err := tree.GenerateProof(10)
		require.Error(t, err)
		require.Nil(t, proof)
	})
}

// TestMerkleProofLength tests that proof length is logarithmic
func TestMerkleProofLength(t *testing.T) {
	testCases := []struct {
		numEntries int
		maxDepth   int
	}{
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{8, 3},
		{16, 4},
		{100, 7},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d_entries", tc.numEntries), func(t *testing.T) {
			tree, err := BuildTree(testutil.CreateTestEntries(tc.numEntries))
			require.NoError(t, err)

			for i := 0; i < tree.LeafCount(); i++ {
				proof, err := tree.GenerateProof(i)
				require.NoError(t, err)
				require.LessOrEqual(t, len(proof.Proof), tc.maxDepth)
			}
		})
	}
}

// TestMerkleTreeDeterminism tests that any permutation of the entries yields the same root
func TestMerkleTreeDeterminism(t *testing.T) {
	entries := testutil.CreateTestEntries(13)

	tree, err := BuildTree(entries)
	require.NoError(t, err)

	for seed := int64(0); seed < 20; seed++ {
		shuffled := testutil.ShuffleEntries(entries, seed)
		other, err := BuildTree(shuffled)
		require.NoError(t, err)
		require.Equal(t, tree.Root(), other.Root(), "seed %d", seed)
		require.Equal(t, tree.Leaves(), other.Leaves())
	}
}

// TestMerkleTreeLargeSet tests every proof of larger trees
func TestMerkleTreeLargeSet(t *testing.T) {
	for _, size := range []int{50, 100, 257} {
		t.Run(fmt.Sprintf("Size_%d", size), func(t *testing.T) {
			tree, err := BuildTree(testutil.CreateTestEntries(size))
			require.NoError(t, err)
			require.Equal(t, size, tree.LeafCount())

			for i := 0; i < size; i++ {
				proof, err := tree.GenerateProof(i)
				require.NoError(t, err)
				require.True(t, proof.Verify(tree.Root()))
			}
		})
	}
}

func TestProofsDoNotCrossRoots(t *testing.T) {
	first, err := BuildTree(testutil.CreateTestEntries(4))
	require.NoError(t, err)

	entries := testutil.CreateTestEntries(5)
	second, err := BuildTree(entries)
	require.NoError(t, err)
	require.NotEqual(t, first.Root(), second.Root())

	leaf := HashEntry(entries[0].Account, entries[0].MaxBorrow)
	proof, err := first.Proof(leaf)
	require.NoError(t, err)
	require.True(t, VerifyProof(leaf, proof, first.Root()))
	require.False(t, VerifyProof(leaf, proof, second.Root()))
}

type prefixHasher struct {
	inner NodeHasher
}

func (p prefixHasher) Hash(data ...[]byte) []byte {
	return p.inner.Hash(append([][]byte{[]byte("node")}, data...)...)
}

func TestWithNodeHasher(t *testing.T) {
	entries := testutil.CreateTestEntries(5)
	custom := prefixHasher{inner: defaultHasher}

	tree, err := BuildTree(entries, WithNodeHasher(custom))
	require.NoError(t, err)

	standard, err := BuildTree(entries)
	require.NoError(t, err)
	require.NotEqual(t, standard.Root(), tree.Root())

	proof, err := tree.GenerateProof(2)
	require.NoError(t, err)
	require.True(t, proof.Verify(tree.Root(), WithNodeHasher(custom)))
	require.False(t, proof.Verify(tree.Root()))
}
