package whitelist

import (
	"io"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/merkle"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

// Generator turns whitelist entries into a published document: root plus per-account proofs.
type Generator struct {
	logger   *zap.Logger
	treeOpts []merkle.TreeOption
}

func NewGenerator(logger *zap.Logger, opts ...merkle.TreeOption) *Generator {
	return &Generator{
		logger:   logger,
		treeOpts: opts,
	}
}

// Generate builds the merkle tree and a proof for every account with a non-zero ceiling.
// Any error is fatal to the run; no partial document is returned.
func (g *Generator) Generate(entries []*types.WhitelistEntry) (*types.WhitelistDocument, error) {
	tree, err := merkle.BuildTree(entries, g.treeOpts...)
	if err != nil {
		return nil, err
	}

	users := make(map[common.Address]*types.UserProof, tree.LeafCount())
	excluded := 0

	for _, entry := range entries {
		if entry.MaxBorrow.IsZero() {
			g.logger.Sugar().Debugw("Excluding zero-ceiling account", "account", entry.Account.Hex())
			excluded++
			continue
		}

		leaf := merkle.HashEntry(entry.Account, entry.MaxBorrow)
		proof, err := tree.Proof(leaf)
		if err != nil {
			return nil, err
		}

		users[entry.Account] = &types.UserProof{
			UserBorrowPart: entry.MaxBorrow,
			Leaf:           leaf,
			Proof:          proof,
		}
	}

	g.logger.Sugar().Infow("Generated whitelist merkle tree",
		"merkleRoot", tree.Root().Hex(),
		"included", len(users),
		"excluded", excluded,
	)

	return &types.WhitelistDocument{
		MerkleRoot: tree.Root(),
		Users:      users,
	}, nil
}

// GenerateFromReader parses a whitelist input and generates its document.
func (g *Generator) GenerateFromReader(r io.Reader) (*types.WhitelistDocument, error) {
	entries, err := ParseEntries(r)
	if err != nil {
		return nil, err
	}
	return g.Generate(entries)
}
