package contractCaller

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

// IContractCaller reads Whitelister state from a chain.
type IContractCaller interface {
	GetMerkleRoot(ctx context.Context, whitelister common.Address) (common.Hash, error)

	GetAmountAllowed(ctx context.Context, whitelister common.Address, account common.Address) (types.Amount, error)
}
