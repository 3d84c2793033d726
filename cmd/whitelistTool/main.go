package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "whitelistTool",
		Usage: "Cauldron borrow whitelist tooling",
		Description: `Builds merkle whitelists of per-account borrow ceilings for cauldron Whitelister contracts.

Commands:
- generate: build the merkle root and per-account proofs from a JSON whitelist
- verify:   re-check every proof of a generated document against its root
- calldata: encode setMaxBorrow / changeMerkleRoot transactions
- campaigns: list and inspect stored campaigns
- serve:    publish stored campaigns over HTTP
- onchain:  compare a document against a deployed Whitelister
- simulate: replay setMaxBorrow and borrows against a campaign`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{config.EnvWhitelistConfig},
			},
			&cli.Uint64Flag{
				Name:    "chain-id",
				Aliases: []string{"chain"},
				Usage:   "Cauldron chain ID: " + config.GetSupportedChainIDsString(),
				EnvVars: []string{config.EnvWhitelistChainID},
			},
			&cli.StringFlag{
				Name:    "persistence-type",
				Usage:   "Campaign store: memory, badger or redis",
				EnvVars: []string{config.EnvWhitelistPersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Badger data directory",
				EnvVars: []string{config.EnvWhitelistDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis host:port",
				EnvVars: []string{config.EnvWhitelistRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvWhitelistRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvWhitelistRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Prefix for every Redis key",
				EnvVars: []string{config.EnvWhitelistRedisKeyPrefix},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvWhitelistVerbose},
			},
		},
		Commands: []*cli.Command{
			generateCommand(),
			verifyCommand(),
			calldataCommand(),
			campaignsCommand(),
			serveCommand(),
			onchainCommand(),
			simulateCommand(),
		},
	}
}
