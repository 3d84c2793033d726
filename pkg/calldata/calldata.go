// Package calldata encodes transactions for the deployed Whitelister contract.
package calldata

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

// WhitelisterABI is the subset of the Whitelister interface this tool calls.
const WhitelisterABI = `[
	{"type":"function","name":"setMaxBorrow","stateMutability":"nonpayable",
	 "inputs":[{"name":"user","type":"address"},{"name":"maxBorrow","type":"uint256"},{"name":"merkleProof","type":"bytes32[]"}],
	 "outputs":[{"name":"success","type":"bool"}]},
	{"type":"function","name":"changeMerkleRoot","stateMutability":"nonpayable",
	 "inputs":[{"name":"newRoot","type":"bytes32"},{"name":"ipfsMerkleProofs","type":"string"}],
	 "outputs":[]},
	{"type":"function","name":"amountAllowed","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"merkleRoot","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"bytes32"}]}
]`

const (
	MethodSetMaxBorrow     = "setMaxBorrow"
	MethodChangeMerkleRoot = "changeMerkleRoot"
	MethodAmountAllowed    = "amountAllowed"
	MethodMerkleRoot       = "merkleRoot"
)

var whitelisterABI = mustParseABI()

func mustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(WhitelisterABI))
	if err != nil {
		panic(fmt.Sprintf("invalid Whitelister ABI: %v", err))
	}
	return parsed
}

// SetMaxBorrowCall is the decoded form of setMaxBorrow calldata.
type SetMaxBorrowCall struct {
	Account   common.Address
	MaxBorrow types.Amount
	Proof     []common.Hash
}

func hashesToBytes32(hashes []common.Hash) [][32]byte {
	out := make([][32]byte, len(hashes))
	for i, h := range hashes {
		out[i] = h
	}
	return out
}

// PackSetMaxBorrow encodes setMaxBorrow(account, maxBorrow, proof).
func PackSetMaxBorrow(account common.Address, maxBorrow types.Amount, proof []common.Hash) ([]byte, error) {
	data, err := whitelisterABI.Pack(MethodSetMaxBorrow, account, maxBorrow.Big(), hashesToBytes32(proof))
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", MethodSetMaxBorrow, err)
	}
	return data, nil
}

// PackUserProof encodes the setMaxBorrow call for one account of a whitelist document.
func PackUserProof(account common.Address, user *types.UserProof) ([]byte, error) {
	if user == nil {
		return nil, fmt.Errorf("no proof for account %s", account.Hex())
	}
	return PackSetMaxBorrow(account, user.UserBorrowPart, user.Proof)
}

// PackChangeMerkleRoot encodes changeMerkleRoot(root, ipfsMerkleProofs).
func PackChangeMerkleRoot(root common.Hash, ipfsMerkleProofs string) ([]byte, error) {
	data, err := whitelisterABI.Pack(MethodChangeMerkleRoot, [32]byte(root), ipfsMerkleProofs)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", MethodChangeMerkleRoot, err)
	}
	return data, nil
}

// PackAmountAllowed encodes the amountAllowed(account) view call.
func PackAmountAllowed(account common.Address) ([]byte, error) {
	data, err := whitelisterABI.Pack(MethodAmountAllowed, account)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", MethodAmountAllowed, err)
	}
	return data, nil
}

// UnpackAmountAllowed decodes the uint256 returned by amountAllowed.
func UnpackAmountAllowed(ret []byte) (types.Amount, error) {
	values, err := whitelisterABI.Unpack(MethodAmountAllowed, ret)
	if err != nil {
		return types.Amount{}, fmt.Errorf("failed to unpack %s: %w", MethodAmountAllowed, err)
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return types.Amount{}, fmt.Errorf("unexpected %s return type %T", MethodAmountAllowed, values[0])
	}
	return types.ParseAmount(v.String())
}

// PackMerkleRoot encodes the merkleRoot() view call.
func PackMerkleRoot() ([]byte, error) {
	data, err := whitelisterABI.Pack(MethodMerkleRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", MethodMerkleRoot, err)
	}
	return data, nil
}

// UnpackMerkleRoot decodes the bytes32 returned by merkleRoot.
func UnpackMerkleRoot(ret []byte) (common.Hash, error) {
	values, err := whitelisterABI.Unpack(MethodMerkleRoot, ret)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to unpack %s: %w", MethodMerkleRoot, err)
	}
	v, ok := values[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("unexpected %s return type %T", MethodMerkleRoot, values[0])
	}
	return common.Hash(v), nil
}

// UnpackSetMaxBorrow decodes calldata produced by PackSetMaxBorrow, selector included.
func UnpackSetMaxBorrow(data []byte) (*SetMaxBorrowCall, error) {
	method, err := whitelisterABI.MethodById(data)
	if err != nil {
		return nil, fmt.Errorf("unknown method selector: %w", err)
	}
	if method.Name != MethodSetMaxBorrow {
		return nil, fmt.Errorf("calldata is for %s, not %s", method.Name, MethodSetMaxBorrow)
	}

	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s arguments: %w", MethodSetMaxBorrow, err)
	}

	account, ok := values[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected user argument type %T", values[0])
	}
	maxBorrow, ok := values[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected maxBorrow argument type %T", values[1])
	}
	rawProof, ok := values[2].([][32]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected merkleProof argument type %T", values[2])
	}

	amount, err := types.ParseAmount(maxBorrow.String())
	if err != nil {
		return nil, err
	}

	proof := make([]common.Hash, len(rawProof))
	for i, p := range rawProof {
		proof[i] = p
	}

	return &SetMaxBorrowCall{
		Account:   account,
		MaxBorrow: amount,
		Proof:     proof,
	}, nil
}

// Selector returns the 4-byte method ID of a Whitelister method.
func Selector(method string) ([]byte, error) {
	m, ok := whitelisterABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("unknown Whitelister method %q", method)
	}
	return m.ID, nil
}
