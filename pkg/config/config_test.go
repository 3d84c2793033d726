package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "whitelist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadToolConfig_Defaults(t *testing.T) {
	cfg, err := LoadToolConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ChainId_EthereumMainnet, cfg.ChainID)
	assert.Equal(t, ChainName_EthereumMainnet, cfg.ChainName)
	assert.Equal(t, PersistenceType_Badger, cfg.Persistence.Type)
}

func TestLoadToolConfig_File(t *testing.T) {
	path := writeConfig(t, `
chainId: 42161
persistence:
  type: redis
  redis:
    address: localhost:6379
    db: 3
    keyPrefix: "arb:"
server:
  listenAddress: 127.0.0.1:9000
  rateLimit: 2.5
  rateBurst: 5
  trustedProxies:
    - 10.0.0.0/8
    - 192.0.2.1
`)

	cfg, err := LoadToolConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ChainName_Arbitrum, cfg.ChainName)
	assert.Equal(t, PersistenceType_Redis, cfg.Persistence.Type)
	assert.Equal(t, "localhost:6379", cfg.Persistence.Redis.Address)
	assert.Equal(t, 3, cfg.Persistence.Redis.DB)
	assert.Equal(t, "arb:", cfg.Persistence.Redis.KeyPrefix)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.ListenAddress)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.Server.TrustedProxies)

	// Unset fields keep their defaults
	assert.Equal(t, "./data/whitelist", cfg.Persistence.DataPath)
}

func TestLoadToolConfig_Errors(t *testing.T) {
	_, err := LoadToolConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadToolConfig(writeConfig(t, "chainId: [not a number"))
	require.Error(t, err)

	_, err = LoadToolConfig(writeConfig(t, "rpcUrl: http://localhost:8545\n"))
	require.Error(t, err, "unknown keys are rejected")
}

func TestToolConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ToolConfig)
		wantErr string
	}{
		{
			name:    "unsupported chain",
			mutate:  func(c *ToolConfig) { c.ChainID = 11155111 },
			wantErr: "chainId",
		},
		{
			name:    "unknown persistence",
			mutate:  func(c *ToolConfig) { c.Persistence.Type = "postgres" },
			wantErr: "persistence.type",
		},
		{
			name:    "badger without path",
			mutate:  func(c *ToolConfig) { c.Persistence.DataPath = "" },
			wantErr: "persistence.dataPath",
		},
		{
			name:    "redis without address",
			mutate:  func(c *ToolConfig) { c.Persistence.Type = PersistenceType_Redis },
			wantErr: "persistence.redis.address",
		},
		{
			name: "redis db out of range",
			mutate: func(c *ToolConfig) {
				c.Persistence.Type = PersistenceType_Redis
				c.Persistence.Redis.Address = "localhost:6379"
				c.Persistence.Redis.DB = 16
			},
			wantErr: "persistence.redis.db",
		},
		{
			name:    "bad listen address",
			mutate:  func(c *ToolConfig) { c.Server.ListenAddress = "8080" },
			wantErr: "server.listenAddress",
		},
		{
			name:    "negative rate",
			mutate:  func(c *ToolConfig) { c.Server.RateLimit = -1 },
			wantErr: "server.rateLimit",
		},
		{
			name:    "zero burst",
			mutate:  func(c *ToolConfig) { c.Server.RateBurst = 0 },
			wantErr: "server.rateBurst",
		},
		{
			name:    "bad trusted proxy",
			mutate:  func(c *ToolConfig) { c.Server.TrustedProxies = []string{"10.0.0.1", "proxy.local"} },
			wantErr: "server.trustedProxies[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultToolConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToolConfig_Validate_AggregatesErrors(t *testing.T) {
	cfg := DefaultToolConfig()
	cfg.ChainID = 5
	cfg.Persistence.DataPath = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chainId")
	assert.Contains(t, err.Error(), "persistence.dataPath")
}

func TestChainTables(t *testing.T) {
	assert.Len(t, GetSupportedChainIDs(), len(ChainIdToName))
	for id, name := range ChainIdToName {
		assert.Equal(t, id, ChainNameToId[name])
	}
	assert.Contains(t, GetSupportedChainIDsString(), "42161 (arbitrum)")
	assert.Equal(t, ChainId_EthereumMainnet, GetSupportedChainIDs()[0])
}
