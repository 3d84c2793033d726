package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence/conformance"
)

func TestMemoryPersistence_Conformance(t *testing.T) {
	conformance.RunSuite(t, func(t *testing.T) persistence.ICampaignPersistence {
		return NewMemoryPersistence()
	})
}

func TestMemoryPersistence_SaveDoesNotAlias(t *testing.T) {
	mp := NewMemoryPersistence()
	defer func() { _ = mp.Close() }()

	campaign := conformance.NewTestCampaign("alias", 1)
	require.NoError(t, mp.SaveCampaign(campaign))

	// Mutate the caller's copy after saving
	campaign.Name = "changed"

	loaded, err := mp.LoadCampaign("alias")
	require.NoError(t, err)
	assert.Equal(t, "campaign-alias", loaded.Name)
}
