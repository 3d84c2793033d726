package persistence

import (
	"errors"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

var (
	ErrPersistenceClosed = errors.New("persistence layer is closed")
	ErrCampaignExists    = errors.New("campaign already exists")
	ErrCeilingAlreadySet = errors.New("ceiling already recorded with a different amount")
)

// AccountKey is the storage key fragment for an account under a campaign.
// Accounts are lowercased so that checksum casing never splits a record.
func AccountKey(campaignID string, account common.Address) string {
	return campaignID + ":" + strings.ToLower(account.Hex())
}

// SortCampaigns orders campaigns by CreatedAt, then ID.
func SortCampaigns(campaigns []*types.Campaign) {
	sort.Slice(campaigns, func(i, j int) bool {
		if campaigns[i].CreatedAt != campaigns[j].CreatedAt {
			return campaigns[i].CreatedAt < campaigns[j].CreatedAt
		}
		return campaigns[i].ID < campaigns[j].ID
	})
}
