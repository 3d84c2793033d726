package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/config"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/logger"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence/badger"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence/memory"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence/redis"
)

// loadConfig reads the optional config file, then applies any flags or env vars that were set.
func loadConfig(c *cli.Context) (*config.ToolConfig, error) {
	cfg, err := config.LoadToolConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("chain-id") {
		cfg.ChainID = config.ChainId(c.Uint64("chain-id"))
	}
	if c.IsSet("persistence-type") {
		cfg.Persistence.Type = config.PersistenceType(c.String("persistence-type"))
	}
	if c.IsSet("data-path") {
		cfg.Persistence.DataPath = c.String("data-path")
	}
	if c.IsSet("redis-address") {
		cfg.Persistence.Redis.Address = c.String("redis-address")
	}
	if c.IsSet("redis-password") {
		cfg.Persistence.Redis.Password = c.String("redis-password")
	}
	if c.IsSet("redis-db") {
		cfg.Persistence.Redis.DB = c.Int("redis-db")
	}
	if c.IsSet("redis-key-prefix") {
		cfg.Persistence.Redis.KeyPrefix = c.String("redis-key-prefix")
	}
	if c.IsSet("verbose") {
		cfg.Verbose = c.Bool("verbose")
	}
	if c.IsSet("listen-address") {
		cfg.Server.ListenAddress = c.String("listen-address")
	}
	if c.IsSet("rate-limit") {
		cfg.Server.RateLimit = c.Float64("rate-limit")
	}
	if c.IsSet("rate-burst") {
		cfg.Server.RateBurst = c.Int("rate-burst")
	}
	if c.IsSet("trusted-proxy") {
		cfg.Server.TrustedProxies = c.StringSlice("trusted-proxy")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setup loads config and builds the logger every command starts with.
func setup(c *cli.Context) (*config.ToolConfig, *zap.Logger, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, l, nil
}

func openStore(cfg *config.PersistenceConfig, l *zap.Logger) (persistence.ICampaignPersistence, error) {
	switch cfg.Type {
	case config.PersistenceType_Memory:
		l.Sugar().Warnw("Using in-memory persistence - campaigns are lost on exit")
		return memory.NewMemoryPersistence(), nil
	case config.PersistenceType_Badger:
		return badger.NewBadgerPersistence(cfg.DataPath, l)
	case config.PersistenceType_Redis:
		return redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, l)
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Type)
	}
}
