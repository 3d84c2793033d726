package caller

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/calldata"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/contractCaller"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

var _ contractCaller.IContractCaller = (*ContractCaller)(nil)

type ContractCaller struct {
	client ethereum.ContractCaller
	logger *zap.Logger
}

func NewContractCaller(client ethereum.ContractCaller, logger *zap.Logger) *ContractCaller {
	return &ContractCaller{
		client: client,
		logger: logger,
	}
}

// NewContractCallerFromURL dials rpcURL and checks the node reports expectedChainID.
func NewContractCallerFromURL(ctx context.Context, rpcURL string, expectedChainID uint64, logger *zap.Logger) (*ContractCaller, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if chainID.Uint64() != expectedChainID {
		client.Close()
		return nil, nil, fmt.Errorf("rpc reports chain %d, expected %d", chainID.Uint64(), expectedChainID)
	}

	return NewContractCaller(client, logger), client, nil
}

func (cc *ContractCaller) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ret, err := cc.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call to %s failed: %w", to.Hex(), err)
	}
	if len(ret) == 0 {
		return nil, fmt.Errorf("no contract code at %s", to.Hex())
	}
	return ret, nil
}

// GetMerkleRoot reads the root currently published on the Whitelister.
func (cc *ContractCaller) GetMerkleRoot(ctx context.Context, whitelister common.Address) (common.Hash, error) {
	data, err := calldata.PackMerkleRoot()
	if err != nil {
		return common.Hash{}, err
	}
	ret, err := cc.call(ctx, whitelister, data)
	if err != nil {
		return common.Hash{}, err
	}
	root, err := calldata.UnpackMerkleRoot(ret)
	if err != nil {
		return common.Hash{}, err
	}

	cc.logger.Sugar().Debugw("Read whitelister merkle root", "whitelister", whitelister.Hex(), "merkleRoot", root.Hex())
	return root, nil
}

// GetAmountAllowed reads the ceiling the Whitelister has recorded for account.
func (cc *ContractCaller) GetAmountAllowed(ctx context.Context, whitelister common.Address, account common.Address) (types.Amount, error) {
	data, err := calldata.PackAmountAllowed(account)
	if err != nil {
		return types.Amount{}, err
	}
	ret, err := cc.call(ctx, whitelister, data)
	if err != nil {
		return types.Amount{}, err
	}
	return calldata.UnpackAmountAllowed(ret)
}
