package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// WhitelistEntry is one account and the maximum it may borrow under a campaign.
type WhitelistEntry struct {
	Account   common.Address
	MaxBorrow Amount
}

// UserProof is everything an account needs to unlock its ceiling on-chain.
type UserProof struct {
	UserBorrowPart Amount        `json:"userBorrowPart"`
	Leaf           common.Hash   `json:"leaf"`
	Proof          []common.Hash `json:"proof"`
}

// WhitelistDocument is the published output of one tree generation.
type WhitelistDocument struct {
	MerkleRoot common.Hash                   `json:"merkleRoot"`
	Users      map[common.Address]*UserProof `json:"users"`
}

// Campaign is one generation of a whitelist: a fixed entry set and its merkle root.
// Campaigns are never modified once stored.
type Campaign struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	ChainID   uint64             `json:"chainId"`
	CreatedAt int64              `json:"createdAt"`
	Document  *WhitelistDocument `json:"document"`
}

func (c *Campaign) UserCount() int {
	if c == nil || c.Document == nil {
		return 0
	}
	return len(c.Document.Users)
}

// ParseAccount parses a hex account identifier, with or without the 0x prefix.
func ParseAccount(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Wrapf(ErrEncoding, "invalid account %q", s)
	}
	return common.HexToAddress(s), nil
}
