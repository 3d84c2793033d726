package badger

import (
	"testing"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/logger"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence/conformance"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

func newTestStore(t *testing.T, dir string) *BadgerPersistence {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	bp, err := NewBadgerPersistence(dir, testLogger)
	require.NoError(t, err)
	return bp
}

func TestBadgerPersistence_Conformance(t *testing.T) {
	conformance.RunSuite(t, func(t *testing.T) persistence.ICampaignPersistence {
		return newTestStore(t, t.TempDir())
	})
}

func TestBadgerPersistence_SurvivesReopen(t *testing.T) {
	tmpDir := t.TempDir()
	account := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1")

	bp := newTestStore(t, tmpDir)
	require.NoError(t, bp.SaveCampaign(conformance.NewTestCampaign("persisted", 42)))
	require.NoError(t, bp.SaveCeiling("persisted", account, types.NewAmount(1337)))
	require.NoError(t, bp.SaveBorrowed("persisted", account, types.NewAmount(1000)))
	require.NoError(t, bp.Close())

	reopened := newTestStore(t, tmpDir)
	defer func() { _ = reopened.Close() }()

	campaign, err := reopened.LoadCampaign("persisted")
	require.NoError(t, err)
	require.NotNil(t, campaign)
	assert.Equal(t, int64(42), campaign.CreatedAt)

	ceiling, err := reopened.LoadCeiling("persisted", account)
	require.NoError(t, err)
	require.NotNil(t, ceiling)
	assert.Equal(t, "1337", ceiling.String())

	borrowed, err := reopened.LoadBorrowed("persisted", account)
	require.NoError(t, err)
	assert.Equal(t, "1000", borrowed.String())

	// Set-once still holds across restarts
	err = reopened.SaveCeiling("persisted", account, types.NewAmount(1))
	assert.ErrorIs(t, err, persistence.ErrCeilingAlreadySet)
}

func TestBadgerPersistence_SchemaVersionMismatch(t *testing.T) {
	tmpDir := t.TempDir()

	bp := newTestStore(t, tmpDir)
	require.NoError(t, bp.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keySchemaVersion), []byte("v0"))
	}))
	require.NoError(t, bp.Close())

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	_, err := NewBadgerPersistence(tmpDir, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}
