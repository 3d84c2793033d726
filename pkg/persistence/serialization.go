package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

// MarshalCampaign serializes a Campaign to JSON bytes.
func MarshalCampaign(c *types.Campaign) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("cannot marshal nil Campaign")
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Campaign to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalCampaign deserializes a Campaign from JSON bytes.
func UnmarshalCampaign(data []byte) (*types.Campaign, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var c types.Campaign
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to Campaign: %w", err)
	}

	return &c, nil
}

// MarshalAmount serializes an Amount as its decimal string.
func MarshalAmount(a types.Amount) []byte {
	return []byte(a.String())
}

// UnmarshalAmount parses an Amount stored by MarshalAmount.
func UnmarshalAmount(data []byte) (types.Amount, error) {
	a, err := types.ParseAmount(string(data))
	if err != nil {
		return types.Amount{}, fmt.Errorf("failed to unmarshal Amount: %w", err)
	}
	return a, nil
}

// ValidateCampaign checks the fields every store requires before saving.
func ValidateCampaign(c *types.Campaign) error {
	if c == nil {
		return fmt.Errorf("cannot save nil Campaign")
	}
	if c.ID == "" {
		return fmt.Errorf("campaign ID cannot be empty")
	}
	if c.Document == nil {
		return fmt.Errorf("campaign %s has no whitelist document", c.ID)
	}
	return nil
}
