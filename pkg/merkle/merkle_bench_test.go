package merkle

import (
	"fmt"
	"testing"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/testutil"
)

// BenchmarkBuildTree benchmarks merkle tree construction with various sizes
func BenchmarkBuildTree(b *testing.B) {
	sizes := []int{10, 100, 1000, 5000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Entries_%d", size), func(b *testing.B) {
			entries := testutil.CreateTestEntries(size)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_, _ = BuildTree(entries)
			}
		})
	}
}

// BenchmarkProofLookup benchmarks proof lookup by leaf value
func BenchmarkProofLookup(b *testing.B) {
	sizes := []int{10, 100, 1000}

	for _, size := range sizes {
		entries := testutil.CreateTestEntries(size)
		tree, _ := BuildTree(entries)
		leaves := tree.Leaves()

		b.Run(fmt.Sprintf("Entries_%d", size), func(b *testing.B) {
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_, _ = tree.Proof(leaves[i%size])
			}
		})
	}
}

// BenchmarkVerifyProof benchmarks proof verification
func BenchmarkVerifyProof(b *testing.B) {
	sizes := []int{10, 100, 1000}

	for _, size := range sizes {
		tree, _ := BuildTree(testutil.CreateTestEntries(size))
		proof, _ := tree.GenerateProof(0)

		b.Run(fmt.Sprintf("Entries_%d", size), func(b *testing.B) {
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_ = proof.Verify(tree.Root())
			}
		})
	}
}

// BenchmarkHashEntry benchmarks leaf hashing
func BenchmarkHashEntry(b *testing.B) {
	entry := testutil.CreateTestEntries(1)[0]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = HashEntry(entry.Account, entry.MaxBorrow)
	}
}
