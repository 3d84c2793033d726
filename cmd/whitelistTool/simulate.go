package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence/memory"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/whitelister"
)

const documentCampaignID = "document"

type simulationStep struct {
	Action   string       `json:"action"`
	Amount   types.Amount `json:"amount"`
	Accepted bool         `json:"accepted"`
	Reason   string       `json:"reason,omitempty"`
}

type simulationResult struct {
	CampaignID string           `json:"campaignId"`
	Account    common.Address   `json:"account"`
	Ceiling    types.Amount     `json:"ceiling"`
	Steps      []simulationStep `json:"steps"`
	Borrowed   types.Amount     `json:"borrowed"`
	Remaining  types.Amount     `json:"remaining"`
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Replay setMaxBorrow and a borrow/repay sequence against a campaign",
		Description: `Submits the account's proof from the campaign document, then applies each step in order.
Against a stored campaign the ceiling and borrowed total persist between runs; with --document
the campaign lives in memory for this run only. Over-ceiling borrows and over-repayments are
reported as rejected steps.`,
		ArgsUsage: "[borrow:<amount> | repay:<amount>]...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "campaign", Usage: "Stored campaign ID"},
			&cli.StringFlag{Name: "document", Aliases: []string{"d"}, Usage: "Whitelist document JSON to simulate without a store"},
			&cli.StringFlag{Name: "account", Usage: "Borrowing account", Required: true},
			&cli.StringFlag{Name: "max-borrow", Usage: "Ceiling to claim instead of the document's userBorrowPart"},
		},
		Action: runSimulate,
	}
}

func runSimulate(c *cli.Context) error {
	if c.IsSet("campaign") == c.IsSet("document") {
		return fmt.Errorf("exactly one of --campaign or --document is required")
	}

	account, err := types.ParseAccount(c.String("account"))
	if err != nil {
		return err
	}
	steps, err := parseSteps(c.Args().Slice())
	if err != nil {
		return err
	}

	cfg, l, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	var store persistence.ICampaignPersistence
	campaignID := c.String("campaign")
	if c.IsSet("document") {
		doc, err := readDocumentFile(c.String("document"))
		if err != nil {
			return err
		}
		store = memory.NewMemoryPersistence()
		campaignID = documentCampaignID
		if err := store.SaveCampaign(&types.Campaign{
			ID:        campaignID,
			ChainID:   uint64(cfg.ChainID),
			CreatedAt: time.Now().Unix(),
			Document:  doc,
		}); err != nil {
			return err
		}
	} else {
		store, err = openStore(&cfg.Persistence, l)
		if err != nil {
			return err
		}
	}
	defer func() { _ = store.Close() }()

	campaign, err := store.LoadCampaign(campaignID)
	if err != nil {
		return err
	}
	if campaign == nil {
		return errors.Wrapf(whitelister.ErrCampaignNotFound, "campaign %s", campaignID)
	}

	var (
		ceiling types.Amount
		proof   []common.Hash
	)
	if user, ok := campaign.Document.Users[account]; ok && user != nil {
		ceiling, proof = user.UserBorrowPart, user.Proof
	}
	if c.IsSet("max-borrow") {
		if ceiling, err = types.ParseAmount(c.String("max-borrow")); err != nil {
			return err
		}
	}

	wl := whitelister.NewWhitelister(store, l)
	ok, err := wl.SetMaxBorrow(campaignID, account, ceiling, proof)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("proof for %s with ceiling %s rejected by root %s",
			account.Hex(), ceiling.String(), campaign.Document.MerkleRoot.Hex())
	}

	result, err := replaySteps(wl, campaignID, account, steps)
	if err != nil {
		return err
	}
	result.Ceiling = ceiling
	return printJSON(result)
}

// replaySteps applies steps in order. Limit and over-repayment failures are recorded on the
// step; any other error aborts the replay.
func replaySteps(wl *whitelister.Whitelister, campaignID string, account common.Address, steps []simulationStep) (*simulationResult, error) {
	for i := range steps {
		step := &steps[i]

		var err error
		switch step.Action {
		case "borrow":
			err = wl.Borrow(campaignID, account, step.Amount)
		case "repay":
			err = wl.Repay(campaignID, account, step.Amount)
		}

		switch {
		case err == nil:
			step.Accepted = true
		case errors.Is(err, whitelister.ErrBorrowLimitExceeded), errors.Is(err, types.ErrInvalidInput):
			step.Reason = err.Error()
		default:
			return nil, err
		}
	}

	borrowed, err := wl.AmountBorrowed(campaignID, account)
	if err != nil {
		return nil, err
	}
	remaining, err := wl.Remaining(campaignID, account)
	if err != nil {
		return nil, err
	}

	return &simulationResult{
		CampaignID: campaignID,
		Account:    account,
		Steps:      steps,
		Borrowed:   borrowed,
		Remaining:  remaining,
	}, nil
}

func parseSteps(args []string) ([]simulationStep, error) {
	steps := make([]simulationStep, 0, len(args))
	for _, arg := range args {
		action, value, found := strings.Cut(arg, ":")
		if !found || (action != "borrow" && action != "repay") {
			return nil, errors.Wrapf(types.ErrInvalidInput, "step %q must be borrow:<amount> or repay:<amount>", arg)
		}
		amount, err := types.ParseAmount(value)
		if err != nil {
			return nil, errors.Wrapf(err, "step %q", arg)
		}
		steps = append(steps, simulationStep{Action: action, Amount: amount})
	}
	return steps, nil
}
