// Package whitelister models the on-chain Whitelister and the cauldron's borrow check
// against an explicit campaign store. Each campaign (one merkle root) carries its own
// ceilings; an account is whitelisted at most once per campaign and never revoked.
package whitelister

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/merkle"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

var (
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrNotWhitelisted      = errors.New("account is not whitelisted")
	ErrBorrowLimitExceeded = errors.New("borrow exceeds whitelisted ceiling")
)

type Whitelister struct {
	store    persistence.ICampaignPersistence
	logger   *zap.Logger
	treeOpts []merkle.TreeOption

	// serializes read-modify-write of borrowed totals
	mu sync.Mutex
}

func NewWhitelister(store persistence.ICampaignPersistence, logger *zap.Logger, opts ...merkle.TreeOption) *Whitelister {
	return &Whitelister{
		store:    store,
		logger:   logger,
		treeOpts: opts,
	}
}

func (w *Whitelister) loadRoot(campaignID string) (common.Hash, error) {
	campaign, err := w.store.LoadCampaign(campaignID)
	if err != nil {
		return common.Hash{}, err
	}
	if campaign == nil {
		return common.Hash{}, errors.Wrapf(ErrCampaignNotFound, "campaign %s", campaignID)
	}
	return campaign.Document.MerkleRoot, nil
}

// SetMaxBorrow records maxBorrow as the account's ceiling if proof verifies against the
// campaign root. Anyone may submit the proof for any account; the caller is not an input.
//
// A proof that does not verify returns false with a nil error. Submitting the already
// recorded ceiling again returns true.
func (w *Whitelister) SetMaxBorrow(campaignID string, account common.Address, maxBorrow types.Amount, proof []common.Hash) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	root, err := w.loadRoot(campaignID)
	if err != nil {
		return false, err
	}

	leaf := merkle.HashEntry(account, maxBorrow)
	if !merkle.VerifyProof(leaf, proof, root, w.treeOpts...) {
		w.logger.Sugar().Debugw("Rejected whitelist proof",
			"campaign_id", campaignID,
			"account", account.Hex(),
			"max_borrow", maxBorrow.String(),
		)
		return false, nil
	}

	if err := w.store.SaveCeiling(campaignID, account, maxBorrow); err != nil {
		return false, err
	}

	w.logger.Sugar().Infow("Account whitelisted",
		"campaign_id", campaignID,
		"account", account.Hex(),
		"max_borrow", maxBorrow.String(),
	)
	return true, nil
}

// AmountAllowed returns the recorded ceiling, zero for an unregistered account.
func (w *Whitelister) AmountAllowed(campaignID string, account common.Address) (types.Amount, error) {
	ceiling, err := w.store.LoadCeiling(campaignID, account)
	if err != nil {
		return types.Amount{}, err
	}
	if ceiling == nil {
		return types.Amount{}, nil
	}
	return *ceiling, nil
}

// AmountBorrowed returns the running borrowed total.
func (w *Whitelister) AmountBorrowed(campaignID string, account common.Address) (types.Amount, error) {
	return w.store.LoadBorrowed(campaignID, account)
}

// Remaining returns ceiling minus borrowed.
func (w *Whitelister) Remaining(campaignID string, account common.Address) (types.Amount, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ceiling, borrowed, err := w.position(campaignID, account)
	if err != nil {
		return types.Amount{}, err
	}
	remaining, underflow := ceiling.Sub(borrowed)
	if underflow {
		return types.Amount{}, nil
	}
	return remaining, nil
}

func (w *Whitelister) position(campaignID string, account common.Address) (types.Amount, types.Amount, error) {
	ceiling, err := w.store.LoadCeiling(campaignID, account)
	if err != nil {
		return types.Amount{}, types.Amount{}, err
	}
	if ceiling == nil {
		return types.Amount{}, types.Amount{}, errors.Wrapf(ErrNotWhitelisted, "account %s in campaign %s", account.Hex(), campaignID)
	}
	borrowed, err := w.store.LoadBorrowed(campaignID, account)
	if err != nil {
		return types.Amount{}, types.Amount{}, err
	}
	return *ceiling, borrowed, nil
}

// Borrow adds amount to the account's running total if the total stays within the ceiling.
func (w *Whitelister) Borrow(campaignID string, account common.Address, amount types.Amount) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ceiling, borrowed, err := w.position(campaignID, account)
	if err != nil {
		return err
	}

	total, overflow := borrowed.Add(amount)
	if overflow || total.Cmp(ceiling) > 0 {
		return errors.Wrapf(ErrBorrowLimitExceeded, "account %s: borrowed %s + %s > ceiling %s",
			account.Hex(), borrowed.String(), amount.String(), ceiling.String())
	}

	if err := w.store.SaveBorrowed(campaignID, account, total); err != nil {
		return err
	}

	w.logger.Sugar().Debugw("Borrow recorded",
		"campaign_id", campaignID,
		"account", account.Hex(),
		"amount", amount.String(),
		"total", total.String(),
	)
	return nil
}

// Repay lowers the running total, freeing headroom under the ceiling.
func (w *Whitelister) Repay(campaignID string, account common.Address, amount types.Amount) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, borrowed, err := w.position(campaignID, account)
	if err != nil {
		return err
	}

	total, underflow := borrowed.Sub(amount)
	if underflow {
		return errors.Wrapf(types.ErrInvalidInput, "account %s: repay %s exceeds borrowed %s",
			account.Hex(), amount.String(), borrowed.String())
	}

	return w.store.SaveBorrowed(campaignID, account, total)
}
