// Package conformance holds the behavioral checks every ICampaignPersistence
// backend must pass. Backend test files call RunSuite with their own factory.
package conformance

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) persistence.ICampaignPersistence

var (
	accountA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1")
	accountB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb2")
)

// NewTestCampaign builds a small campaign with two users.
func NewTestCampaign(id string, createdAt int64) *types.Campaign {
	return &types.Campaign{
		ID:        id,
		Name:      "campaign-" + id,
		ChainID:   1,
		CreatedAt: createdAt,
		Document: &types.WhitelistDocument{
			MerkleRoot: common.HexToHash("0xeda67faac957d00ae19febb5b4d27b8007a091aa90913a251d3646de2adf977d"),
			Users: map[common.Address]*types.UserProof{
				accountA: {
					UserBorrowPart: types.MustParseAmount("1337000000"),
					Leaf:           common.HexToHash("0x0bccf7baa2cb28f3e1a614e6a582324944982756a730b5db0710aed623c50f07"),
					Proof:          []common.Hash{common.HexToHash("0x8e58dfd86dfbd471785d94b9ec454c7bf6f27da24d613357dc4043635e499052")},
				},
				accountB: {
					UserBorrowPart: types.MustParseAmount("7331000000"),
					Leaf:           common.HexToHash("0x8e58dfd86dfbd471785d94b9ec454c7bf6f27da24d613357dc4043635e499052"),
					Proof:          []common.Hash{common.HexToHash("0x0bccf7baa2cb28f3e1a614e6a582324944982756a730b5db0710aed623c50f07")},
				},
			},
		},
	}
}

// RunSuite runs every conformance check as a subtest.
func RunSuite(t *testing.T, newStore Factory) {
	t.Run("SaveAndLoadCampaign", func(t *testing.T) { testSaveAndLoadCampaign(t, newStore) })
	t.Run("LoadCampaign_NotFound", func(t *testing.T) { testLoadCampaignNotFound(t, newStore) })
	t.Run("SaveCampaign_Duplicate", func(t *testing.T) { testSaveCampaignDuplicate(t, newStore) })
	t.Run("SaveCampaign_Invalid", func(t *testing.T) { testSaveCampaignInvalid(t, newStore) })
	t.Run("ListCampaigns_Sorted", func(t *testing.T) { testListCampaignsSorted(t, newStore) })
	t.Run("Ceiling_SetOnce", func(t *testing.T) { testCeilingSetOnce(t, newStore) })
	t.Run("Ceiling_PerCampaign", func(t *testing.T) { testCeilingPerCampaign(t, newStore) })
	t.Run("Borrowed_Overwrite", func(t *testing.T) { testBorrowedOverwrite(t, newStore) })
	t.Run("ClosedOperations", func(t *testing.T) { testClosedOperations(t, newStore) })
	t.Run("ConcurrentBorrowedWrites", func(t *testing.T) { testConcurrentBorrowedWrites(t, newStore) })
}

func testSaveAndLoadCampaign(t *testing.T, newStore Factory) {
	store := newStore(t)
	defer func() { _ = store.Close() }()

	campaign := NewTestCampaign("c1", 100)
	require.NoError(t, store.SaveCampaign(campaign))

	loaded, err := store.LoadCampaign("c1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, campaign, loaded)

	// Mutating the loaded copy must not leak into the store
	loaded.Document.Users[accountA].UserBorrowPart = types.NewAmount(1)
	again, err := store.LoadCampaign("c1")
	require.NoError(t, err)
	assert.Equal(t, "1337000000", again.Document.Users[accountA].UserBorrowPart.String())
}

func testLoadCampaignNotFound(t *testing.T, newStore Factory) {
	store := newStore(t)
	defer func() { _ = store.Close() }()

	loaded, err := store.LoadCampaign("missing")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func testSaveCampaignDuplicate(t *testing.T, newStore Factory) {
	store := newStore(t)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.SaveCampaign(NewTestCampaign("dup", 1)))
	err := store.SaveCampaign(NewTestCampaign("dup", 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, persistence.ErrCampaignExists))

	loaded, err := store.LoadCampaign("dup")
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.CreatedAt)
}

func testSaveCampaignInvalid(t *testing.T, newStore Factory) {
	store := newStore(t)
	defer func() { _ = store.Close() }()

	require.Error(t, store.SaveCampaign(nil))
	require.Error(t, store.SaveCampaign(&types.Campaign{Document: &types.WhitelistDocument{}}))
	require.Error(t, store.SaveCampaign(&types.Campaign{ID: "no-doc"}))
}

func testListCampaignsSorted(t *testing.T, newStore Factory) {
	store := newStore(t)
	defer func() { _ = store.Close() }()

	empty, err := store.ListCampaigns()
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.SaveCampaign(NewTestCampaign("b", 200)))
	require.NoError(t, store.SaveCampaign(NewTestCampaign("c", 100)))
	require.NoError(t, store.SaveCampaign(NewTestCampaign("a", 200)))

	list, err := store.ListCampaigns()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
	assert.Equal(t, "b", list[2].ID)
}

func testCeilingSetOnce(t *testing.T, newStore Factory) {
	store := newStore(t)
	defer func() { _ = store.Close() }()

	ceiling, err := store.LoadCeiling("c1", accountA)
	require.NoError(t, err)
	assert.Nil(t, ceiling)

	require.NoError(t, store.SaveCeiling("c1", accountA, types.NewAmount(1337)))
	require.NoError(t, store.SaveCeiling("c1", accountA, types.NewAmount(1337)))

	err = store.SaveCeiling("c1", accountA, types.NewAmount(1338))
	require.Error(t, err)
	assert.True(t, errors.Is(err, persistence.ErrCeilingAlreadySet))

	ceiling, err = store.LoadCeiling("c1", accountA)
	require.NoError(t, err)
	require.NotNil(t, ceiling)
	assert.Equal(t, "1337", ceiling.String())
}

func testCeilingPerCampaign(t *testing.T, newStore Factory) {
	store := newStore(t)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.SaveCeiling("c1", accountA, types.NewAmount(1)))
	require.NoError(t, store.SaveCeiling("c2", accountA, types.NewAmount(2)))

	c1, err := store.LoadCeiling("c1", accountA)
	require.NoError(t, err)
	c2, err := store.LoadCeiling("c2", accountA)
	require.NoError(t, err)
	other, err := store.LoadCeiling("c1", accountB)
	require.NoError(t, err)

	assert.Equal(t, "1", c1.String())
	assert.Equal(t, "2", c2.String())
	assert.Nil(t, other)
}

func testBorrowedOverwrite(t *testing.T, newStore Factory) {
	store := newStore(t)
	defer func() { _ = store.Close() }()

	total, err := store.LoadBorrowed("c1", accountA)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	require.NoError(t, store.SaveBorrowed("c1", accountA, types.NewAmount(1000)))
	require.NoError(t, store.SaveBorrowed("c1", accountA, types.NewAmount(7331)))

	total, err = store.LoadBorrowed("c1", accountA)
	require.NoError(t, err)
	assert.Equal(t, "7331", total.String())
}

func testClosedOperations(t *testing.T, newStore Factory) {
	store := newStore(t)
	require.NoError(t, store.HealthCheck())

	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "Close should be idempotent")

	assert.Error(t, store.HealthCheck())
	assert.Error(t, store.SaveCampaign(NewTestCampaign("closed", 1)))
	_, err := store.LoadCampaign("closed")
	assert.Error(t, err)
	_, err = store.ListCampaigns()
	assert.Error(t, err)
	assert.Error(t, store.SaveCeiling("c1", accountA, types.NewAmount(1)))
	_, err = store.LoadCeiling("c1", accountA)
	assert.Error(t, err)
	assert.Error(t, store.SaveBorrowed("c1", accountA, types.NewAmount(1)))
	_, err = store.LoadBorrowed("c1", accountA)
	assert.Error(t, err)
}

func testConcurrentBorrowedWrites(t *testing.T, newStore Factory) {
	store := newStore(t)
	defer func() { _ = store.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			account := common.BigToAddress(common.Big1)
			campaignID := fmt.Sprintf("c%d", i)
			assert.NoError(t, store.SaveBorrowed(campaignID, account, types.NewAmount(uint64(i+1))))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		total, err := store.LoadBorrowed(fmt.Sprintf("c%d", i), common.BigToAddress(common.Big1))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%d", i+1), total.String())
	}
}
