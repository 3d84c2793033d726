package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/config"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/contractCaller/caller"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

func onchainCommand() *cli.Command {
	return &cli.Command{
		Name:  "onchain",
		Usage: "Compare a whitelist document with a deployed Whitelister",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "rpc-url", Aliases: []string{"rpc"}, Usage: "JSON-RPC endpoint", EnvVars: []string{config.EnvWhitelistRPCURL}, Required: true},
			&cli.StringFlag{Name: "whitelister", Usage: "Whitelister contract address", EnvVars: []string{config.EnvWhitelistContract}, Required: true},
			&cli.StringFlag{Name: "document", Aliases: []string{"d"}, Usage: "Whitelist document JSON", Required: true},
			&cli.StringSliceFlag{Name: "account", Usage: "Also compare the recorded ceiling of these accounts"},
		},
		Action: runOnchain,
	}
}

func runOnchain(c *cli.Context) error {
	cfg, l, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	whitelister, err := types.ParseAccount(c.String("whitelister"))
	if err != nil {
		return fmt.Errorf("invalid whitelister address: %w", err)
	}
	doc, err := readDocumentFile(c.String("document"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	cc, client, err := caller.NewContractCallerFromURL(ctx, c.String("rpc-url"), uint64(cfg.ChainID), l)
	if err != nil {
		return err
	}
	defer client.Close()

	root, err := cc.GetMerkleRoot(ctx, whitelister)
	if err != nil {
		return err
	}
	if root != doc.MerkleRoot {
		return fmt.Errorf("whitelister %s publishes root %s, document has %s", whitelister.Hex(), root.Hex(), doc.MerkleRoot.Hex())
	}
	l.Sugar().Infow("Published root matches document", "chain", cfg.ChainName, "merkleRoot", root.Hex())

	for _, raw := range c.StringSlice("account") {
		account, err := types.ParseAccount(raw)
		if err != nil {
			return err
		}
		allowed, err := cc.GetAmountAllowed(ctx, whitelister, account)
		if err != nil {
			return err
		}

		expected := "0"
		if user, ok := doc.Users[account]; ok {
			expected = user.UserBorrowPart.String()
		}
		// zero means the account has not submitted its proof yet
		l.Sugar().Infow("Account ceiling",
			"account", account.Hex(),
			"onchain", allowed.String(),
			"document", expected,
			"registered", !allowed.IsZero(),
		)
		if !allowed.IsZero() && allowed.String() != expected {
			return fmt.Errorf("account %s: on-chain ceiling %s differs from document %s", account.Hex(), allowed.String(), expected)
		}
	}
	return nil
}
