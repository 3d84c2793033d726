package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/calldata"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/config"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/proofServer"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/whitelist"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Build the merkle root and proofs for a whitelist input file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Whitelist input JSON", Required: true},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Where to write the whitelist document (stdout if empty)"},
			&cli.BoolFlag{Name: "save", Usage: "Store the result as a new campaign"},
			&cli.StringFlag{Name: "name", Usage: "Campaign name when saving"},
		},
		Action: runGenerate,
	}
}

func runGenerate(c *cli.Context) error {
	cfg, l, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	in, err := os.Open(c.String("input"))
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = in.Close() }()

	doc, err := whitelist.NewGenerator(l).GenerateFromReader(in)
	if err != nil {
		return fmt.Errorf("failed to generate whitelist: %w", err)
	}

	if err := writeOutput(c.String("output"), doc); err != nil {
		return err
	}

	if !c.Bool("save") {
		return nil
	}

	store, err := openStore(&cfg.Persistence, l)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	campaign := &types.Campaign{
		ID:        uuid.NewString(),
		Name:      c.String("name"),
		ChainID:   uint64(cfg.ChainID),
		CreatedAt: time.Now().Unix(),
		Document:  doc,
	}
	if err := store.SaveCampaign(campaign); err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}

	l.Sugar().Infow("Saved campaign",
		"campaign_id", campaign.ID,
		"chain", cfg.ChainName,
		"merkleRoot", doc.MerkleRoot.Hex(),
		"users", campaign.UserCount(),
	)
	return nil
}

func writeOutput(path string, doc *types.WhitelistDocument) error {
	if path == "" {
		return whitelist.WriteDocument(os.Stdout, doc)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := whitelist.WriteDocument(f, doc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readDocumentFile(path string) (*types.WhitelistDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer func() { _ = f.Close() }()
	return whitelist.ReadDocument(f)
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Check every proof in a whitelist document, or one account's proof",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "document", Aliases: []string{"d"}, Usage: "Whitelist document JSON", Required: true},
			&cli.StringFlag{Name: "account", Usage: "Only verify this account"},
		},
		Action: func(c *cli.Context) error {
			_, l, err := setup(c)
			if err != nil {
				return err
			}
			defer func() { _ = l.Sync() }()

			doc, err := readDocumentFile(c.String("document"))
			if err != nil {
				return err
			}

			if c.IsSet("account") {
				account, err := types.ParseAccount(c.String("account"))
				if err != nil {
					return err
				}
				ok, err := whitelist.VerifyUser(doc, account)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("proof for %s does not match root %s", account.Hex(), doc.MerkleRoot.Hex())
				}
				l.Sugar().Infow("Proof verified", "account", account.Hex(), "ceiling", doc.Users[account].UserBorrowPart.String())
				return nil
			}

			if err := whitelist.VerifyDocument(doc); err != nil {
				return err
			}
			l.Sugar().Infow("Whitelist document verified", "merkleRoot", doc.MerkleRoot.Hex(), "users", len(doc.Users))
			return nil
		},
	}
}

func calldataCommand() *cli.Command {
	return &cli.Command{
		Name:  "calldata",
		Usage: "Encode Whitelister transactions",
		Subcommands: []*cli.Command{
			{
				Name:  "set-max-borrow",
				Usage: "setMaxBorrow calldata for one account of a document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "document", Aliases: []string{"d"}, Usage: "Whitelist document JSON", Required: true},
					&cli.StringFlag{Name: "account", Usage: "Account to encode", Required: true},
				},
				Action: func(c *cli.Context) error {
					doc, err := readDocumentFile(c.String("document"))
					if err != nil {
						return err
					}
					account, err := types.ParseAccount(c.String("account"))
					if err != nil {
						return err
					}
					data, err := calldata.PackUserProof(account, doc.Users[account])
					if err != nil {
						return err
					}
					fmt.Println(hexutil.Encode(data))
					return nil
				},
			},
			{
				Name:  "change-merkle-root",
				Usage: "changeMerkleRoot calldata publishing a document's root",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "document", Aliases: []string{"d"}, Usage: "Whitelist document JSON", Required: true},
					&cli.StringFlag{Name: "ipfs", Usage: "IPFS location of the published proofs"},
				},
				Action: func(c *cli.Context) error {
					doc, err := readDocumentFile(c.String("document"))
					if err != nil {
						return err
					}
					data, err := calldata.PackChangeMerkleRoot(doc.MerkleRoot, c.String("ipfs"))
					if err != nil {
						return err
					}
					fmt.Println(hexutil.Encode(data))
					return nil
				},
			},
			{
				Name:      "amount-allowed",
				Usage:     "amountAllowed(account) view calldata",
				ArgsUsage: "<account>",
				Action: func(c *cli.Context) error {
					account, err := types.ParseAccount(c.Args().First())
					if err != nil {
						return err
					}
					data, err := calldata.PackAmountAllowed(account)
					if err != nil {
						return err
					}
					fmt.Println(hexutil.Encode(data))
					return nil
				},
			},
		},
	}
}

func campaignsCommand() *cli.Command {
	return &cli.Command{
		Name:  "campaigns",
		Usage: "Inspect stored campaigns",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored campaigns",
				Action: func(c *cli.Context) error {
					cfg, l, err := setup(c)
					if err != nil {
						return err
					}
					defer func() { _ = l.Sync() }()

					store, err := openStore(&cfg.Persistence, l)
					if err != nil {
						return err
					}
					defer func() { _ = store.Close() }()

					campaigns, err := store.ListCampaigns()
					if err != nil {
						return err
					}
					for _, cp := range campaigns {
						fmt.Printf("%s\t%s\tchain=%d\troot=%s\tusers=%d\tcreated=%s\n",
							cp.ID, cp.Name, cp.ChainID, cp.Document.MerkleRoot.Hex(), cp.UserCount(),
							time.Unix(cp.CreatedAt, 0).UTC().Format(time.RFC3339))
					}
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "Print a campaign's whitelist document, or one account's proof",
				ArgsUsage: "<campaign-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "account", Usage: "Only print this account's proof"},
				},
				Action: func(c *cli.Context) error {
					cfg, l, err := setup(c)
					if err != nil {
						return err
					}
					defer func() { _ = l.Sync() }()

					store, err := openStore(&cfg.Persistence, l)
					if err != nil {
						return err
					}
					defer func() { _ = store.Close() }()

					id := c.Args().First()
					campaign, err := store.LoadCampaign(id)
					if err != nil {
						return err
					}
					if campaign == nil {
						return fmt.Errorf("campaign %q not found", id)
					}

					if !c.IsSet("account") {
						return whitelist.WriteDocument(os.Stdout, campaign.Document)
					}

					account, err := types.ParseAccount(c.String("account"))
					if err != nil {
						return err
					}
					user, ok := campaign.Document.Users[account]
					if !ok {
						return fmt.Errorf("account %s is not whitelisted in campaign %s", account.Hex(), id)
					}
					return printJSON(struct {
						Account common.Address `json:"account"`
						*types.UserProof
					}{account, user})
				},
			},
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve stored campaigns and proofs over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen-address", Usage: "host:port to listen on", EnvVars: []string{config.EnvWhitelistListenAddress}},
			&cli.Float64Flag{Name: "rate-limit", Usage: "Requests per second per client IP (0 disables)", EnvVars: []string{config.EnvWhitelistRateLimit}},
			&cli.IntFlag{Name: "rate-burst", Usage: "Burst size per client IP", EnvVars: []string{config.EnvWhitelistRateBurst}},
			&cli.StringSliceFlag{Name: "trusted-proxy", Usage: "IP or CIDR of a reverse proxy whose X-Forwarded-For is honored (repeatable)", EnvVars: []string{config.EnvWhitelistTrustedProxies}},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, l, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	store, err := openStore(&cfg.Persistence, l)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	server := proofServer.NewServer(store, proofServer.Config{
		ListenAddress:     cfg.Server.ListenAddress,
		RequestsPerSecond: cfg.Server.RateLimit,
		Burst:             cfg.Server.RateBurst,
		TrustedProxies:    cfg.Server.TrustedProxies,
	}, l)

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start proof server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	l.Sugar().Infow("Shutting down proof server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(ctx)
}
