package memory

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

// MemoryPersistence is an in-memory implementation of ICampaignPersistence.
// Intended for tests and short-lived tool runs.
//
// All data is stored in memory and will be lost when the process exits.
// Campaigns are deep copied on the way in and out to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// campaign ID -> Campaign
	campaigns map[string]*types.Campaign

	// persistence.AccountKey -> amount
	ceilings map[string]types.Amount
	borrowed map[string]types.Amount

	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		campaigns: make(map[string]*types.Campaign),
		ceilings:  make(map[string]types.Amount),
		borrowed:  make(map[string]types.Amount),
	}
}

// SaveCampaign stores a new campaign.
func (m *MemoryPersistence) SaveCampaign(campaign *types.Campaign) error {
	if err := persistence.ValidateCampaign(campaign); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrPersistenceClosed
	}
	if _, exists := m.campaigns[campaign.ID]; exists {
		return fmt.Errorf("campaign %s: %w", campaign.ID, persistence.ErrCampaignExists)
	}

	c, err := deepCopyCampaign(campaign)
	if err != nil {
		return err
	}
	m.campaigns[campaign.ID] = c
	return nil
}

// LoadCampaign retrieves a campaign by ID.
func (m *MemoryPersistence) LoadCampaign(id string) (*types.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrPersistenceClosed
	}

	c, exists := m.campaigns[id]
	if !exists {
		return nil, nil // Not found is not an error
	}
	return deepCopyCampaign(c)
}

// ListCampaigns returns all campaigns sorted by creation time.
func (m *MemoryPersistence) ListCampaigns() ([]*types.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrPersistenceClosed
	}

	result := make([]*types.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		cp, err := deepCopyCampaign(c)
		if err != nil {
			return nil, err
		}
		result = append(result, cp)
	}
	persistence.SortCampaigns(result)
	return result, nil
}

// SaveCeiling records a ceiling once per (campaign, account).
func (m *MemoryPersistence) SaveCeiling(campaignID string, account common.Address, ceiling types.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrPersistenceClosed
	}

	key := persistence.AccountKey(campaignID, account)
	if existing, ok := m.ceilings[key]; ok {
		if existing.Equal(ceiling) {
			return nil
		}
		return fmt.Errorf("%s: %w", key, persistence.ErrCeilingAlreadySet)
	}
	m.ceilings[key] = ceiling
	return nil
}

// LoadCeiling returns the recorded ceiling or nil.
func (m *MemoryPersistence) LoadCeiling(campaignID string, account common.Address) (*types.Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrPersistenceClosed
	}

	ceiling, ok := m.ceilings[persistence.AccountKey(campaignID, account)]
	if !ok {
		return nil, nil
	}
	return &ceiling, nil
}

// SaveBorrowed overwrites the borrowed total.
func (m *MemoryPersistence) SaveBorrowed(campaignID string, account common.Address, total types.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrPersistenceClosed
	}

	m.borrowed[persistence.AccountKey(campaignID, account)] = total
	return nil
}

// LoadBorrowed returns the borrowed total, zero when absent.
func (m *MemoryPersistence) LoadBorrowed(campaignID string, account common.Address) (types.Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return types.Amount{}, persistence.ErrPersistenceClosed
	}

	return m.borrowed[persistence.AccountKey(campaignID, account)], nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrPersistenceClosed
	}
	return nil
}

func deepCopyCampaign(c *types.Campaign) (*types.Campaign, error) {
	data, err := persistence.MarshalCampaign(c)
	if err != nil {
		return nil, err
	}
	return persistence.UnmarshalCampaign(data)
}
