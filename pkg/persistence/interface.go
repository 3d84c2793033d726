package persistence

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

// ICampaignPersistence stores whitelist campaigns and the per-account state derived from them.
// All implementations must be thread-safe.
//
// Campaigns are append-only: a stored campaign is never replaced. Ceilings are set once
// per (campaign, account). Borrowed totals are the only mutable records.
type ICampaignPersistence interface {
	// Campaigns

	// SaveCampaign stores a new campaign keyed by its ID.
	// Returns ErrCampaignExists if the ID is already taken.
	SaveCampaign(campaign *types.Campaign) error

	// LoadCampaign retrieves a campaign by ID.
	// Returns nil if it doesn't exist, error only on storage failure.
	LoadCampaign(id string) (*types.Campaign, error)

	// ListCampaigns returns all campaigns sorted by CreatedAt, then ID.
	// Returns empty slice if none exist.
	ListCampaigns() ([]*types.Campaign, error)

	// Ceilings

	// SaveCeiling records the authorized ceiling of an account under a campaign.
	// Saving the same value again is a no-op; a different value returns ErrCeilingAlreadySet.
	SaveCeiling(campaignID string, account common.Address, ceiling types.Amount) error

	// LoadCeiling returns the recorded ceiling, or nil if the account is not whitelisted.
	LoadCeiling(campaignID string, account common.Address) (*types.Amount, error)

	// Borrowed totals

	// SaveBorrowed overwrites the running borrowed total of an account under a campaign.
	SaveBorrowed(campaignID string, account common.Address, total types.Amount) error

	// LoadBorrowed returns the running borrowed total, zero if nothing was recorded.
	LoadBorrowed(campaignID string, account common.Address) (types.Amount, error)

	// Lifecycle Management

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}
