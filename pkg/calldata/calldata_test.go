package calldata

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

var (
	accountA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1")
	leafB    = common.HexToHash("0x8e58dfd86dfbd471785d94b9ec454c7bf6f27da24d613357dc4043635e499052")
	root     = common.HexToHash("0xeda67faac957d00ae19febb5b4d27b8007a091aa90913a251d3646de2adf977d")
)

func TestSelectors(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{MethodSetMaxBorrow, "0x1275fb7e"},
		{MethodChangeMerkleRoot, "0xc29ba4c8"},
		{MethodAmountAllowed, "0xad4b85cc"},
		{MethodMerkleRoot, "0x2eb4a7ab"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			id, err := Selector(tt.method)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hexutil.Encode(id))
		})
	}

	_, err := Selector("borrow")
	require.Error(t, err)
}

func TestPackSetMaxBorrow_Layout(t *testing.T) {
	data, err := PackSetMaxBorrow(accountA, types.MustParseAmount("1337000000"), []common.Hash{leafB})
	require.NoError(t, err)

	// selector + (address, uint256, offset) + length + one element
	require.Len(t, data, 4+32*5)
	assert.Equal(t, "0x1275fb7e", hexutil.Encode(data[:4]))
	assert.Equal(t, common.LeftPadBytes(accountA.Bytes(), 32), data[4:36])
	assert.Equal(t, big.NewInt(1337000000).FillBytes(make([]byte, 32)), data[36:68])
	assert.Equal(t, big.NewInt(0x60).FillBytes(make([]byte, 32)), data[68:100])
	assert.Equal(t, big.NewInt(1).FillBytes(make([]byte, 32)), data[100:132])
	assert.Equal(t, leafB.Bytes(), data[132:164])
}

func TestSetMaxBorrow_RoundTrip(t *testing.T) {
	proofs := [][]common.Hash{
		nil,
		{leafB},
		{leafB, root, common.HexToHash("0x01")},
	}
	for _, proof := range proofs {
		amount := types.MustParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
		data, err := PackSetMaxBorrow(accountA, amount, proof)
		require.NoError(t, err)

		call, err := UnpackSetMaxBorrow(data)
		require.NoError(t, err)
		assert.Equal(t, accountA, call.Account)
		assert.True(t, amount.Equal(call.MaxBorrow))
		assert.Equal(t, len(proof), len(call.Proof))
		for i := range proof {
			assert.Equal(t, proof[i], call.Proof[i])
		}
	}
}

func TestPackUserProof(t *testing.T) {
	user := &types.UserProof{
		UserBorrowPart: types.MustParseAmount("1337000000"),
		Proof:          []common.Hash{leafB},
	}
	fromUser, err := PackUserProof(accountA, user)
	require.NoError(t, err)
	direct, err := PackSetMaxBorrow(accountA, user.UserBorrowPart, user.Proof)
	require.NoError(t, err)
	assert.Equal(t, direct, fromUser)

	_, err = PackUserProof(accountA, nil)
	require.Error(t, err)
}

func TestUnpackSetMaxBorrow_WrongMethod(t *testing.T) {
	data, err := PackAmountAllowed(accountA)
	require.NoError(t, err)

	_, err = UnpackSetMaxBorrow(data)
	require.Error(t, err)

	_, err = UnpackSetMaxBorrow([]byte{0xde, 0xad, 0xbe, 0xef})
	require.Error(t, err)
}

func TestPackChangeMerkleRoot(t *testing.T) {
	data, err := PackChangeMerkleRoot(root, "ipfs://bafy")
	require.NoError(t, err)

	assert.Equal(t, "0xc29ba4c8", hexutil.Encode(data[:4]))
	assert.Equal(t, root.Bytes(), data[4:36])
}

func TestUnpackAmountAllowed(t *testing.T) {
	ret := common.LeftPadBytes(big.NewInt(7331000000).Bytes(), 32)
	amount, err := UnpackAmountAllowed(ret)
	require.NoError(t, err)
	assert.Equal(t, "7331000000", amount.String())

	_, err = UnpackAmountAllowed([]byte{0x01})
	require.Error(t, err)
}

func TestMerkleRoot_RoundTrip(t *testing.T) {
	data, err := PackMerkleRoot()
	require.NoError(t, err)
	assert.Equal(t, "0x2eb4a7ab", hexutil.Encode(data))

	got, err := UnpackMerkleRoot(root.Bytes())
	require.NoError(t, err)
	assert.Equal(t, root, got)
}
