package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the whitelist tool
const (
	EnvWhitelistConfig          = "WHITELIST_CONFIG"
	EnvWhitelistChainID         = "WHITELIST_CHAIN_ID"
	EnvWhitelistPersistenceType = "WHITELIST_PERSISTENCE_TYPE"
	EnvWhitelistDataPath        = "WHITELIST_DATA_PATH"
	EnvWhitelistRedisAddress    = "WHITELIST_REDIS_ADDRESS"
	EnvWhitelistRedisPassword   = "WHITELIST_REDIS_PASSWORD"
	EnvWhitelistRedisDB         = "WHITELIST_REDIS_DB"
	EnvWhitelistRedisKeyPrefix  = "WHITELIST_REDIS_KEY_PREFIX"
	EnvWhitelistListenAddress   = "WHITELIST_LISTEN_ADDRESS"
	EnvWhitelistRateLimit       = "WHITELIST_RATE_LIMIT"
	EnvWhitelistRateBurst       = "WHITELIST_RATE_BURST"
	EnvWhitelistTrustedProxies  = "WHITELIST_TRUSTED_PROXIES"
	EnvWhitelistVerbose         = "WHITELIST_VERBOSE"
	EnvWhitelistRPCURL          = "WHITELIST_RPC_URL"
	EnvWhitelistContract        = "WHITELIST_CONTRACT_ADDRESS"
)

type ChainId uint64

// Networks with deployed cauldrons
const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_Optimism        ChainId = 10
	ChainId_BSC             ChainId = 56
	ChainId_Fantom          ChainId = 250
	ChainId_Kava            ChainId = 2222
	ChainId_Anvil           ChainId = 31337
	ChainId_Avalanche       ChainId = 43114
	ChainId_Arbitrum        ChainId = 42161
)

type ChainName string

const (
	ChainName_EthereumMainnet ChainName = "mainnet"
	ChainName_Optimism        ChainName = "optimism"
	ChainName_BSC             ChainName = "bsc"
	ChainName_Fantom          ChainName = "fantom"
	ChainName_Kava            ChainName = "kava"
	ChainName_Anvil           ChainName = "devnet"
	ChainName_Avalanche       ChainName = "avalanche"
	ChainName_Arbitrum        ChainName = "arbitrum"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_EthereumMainnet: ChainName_EthereumMainnet,
	ChainId_Optimism:        ChainName_Optimism,
	ChainId_BSC:             ChainName_BSC,
	ChainId_Fantom:          ChainName_Fantom,
	ChainId_Kava:            ChainName_Kava,
	ChainId_Anvil:           ChainName_Anvil,
	ChainId_Avalanche:       ChainName_Avalanche,
	ChainId_Arbitrum:        ChainName_Arbitrum,
}

var ChainNameToId = func() map[ChainName]ChainId {
	m := make(map[ChainName]ChainId, len(ChainIdToName))
	for id, name := range ChainIdToName {
		m[name] = id
	}
	return m
}()

// GetSupportedChainIDs returns all supported chain IDs in ascending order
func GetSupportedChainIDs() []ChainId {
	ids := make([]ChainId, 0, len(ChainIdToName))
	for id := range ChainIdToName {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GetSupportedChainIDsString returns supported chain IDs for CLI help
func GetSupportedChainIDsString() string {
	parts := make([]string, 0, len(ChainIdToName))
	for _, id := range GetSupportedChainIDs() {
		parts = append(parts, fmt.Sprintf("%d (%s)", id, ChainIdToName[id]))
	}
	return strings.Join(parts, ", ")
}

type PersistenceType string

const (
	PersistenceType_Memory PersistenceType = "memory"
	PersistenceType_Badger PersistenceType = "badger"
	PersistenceType_Redis  PersistenceType = "redis"
)

type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

type PersistenceConfig struct {
	Type     PersistenceType `yaml:"type"`
	DataPath string          `yaml:"dataPath"`
	Redis    RedisConfig     `yaml:"redis"`
}

type ServerConfig struct {
	ListenAddress string `yaml:"listenAddress"`
	// RateLimit is requests per second per client IP; 0 disables limiting
	RateLimit float64 `yaml:"rateLimit"`
	RateBurst int     `yaml:"rateBurst"`
	// TrustedProxies are IPs or CIDRs allowed to set X-Forwarded-For / X-Real-IP
	TrustedProxies []string `yaml:"trustedProxies"`
}

// ToolConfig is the configuration shared by every whitelistTool command
type ToolConfig struct {
	ChainID     ChainId           `yaml:"chainId"`
	ChainName   ChainName         `yaml:"-"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Server      ServerConfig      `yaml:"server"`
	Verbose     bool              `yaml:"verbose"`
}

// DefaultToolConfig returns a mainnet config with badger storage under ./data
func DefaultToolConfig() *ToolConfig {
	return &ToolConfig{
		ChainID: ChainId_EthereumMainnet,
		Persistence: PersistenceConfig{
			Type:     PersistenceType_Badger,
			DataPath: "./data/whitelist",
		},
		Server: ServerConfig{
			ListenAddress: ":8080",
			RateLimit:     10,
			RateBurst:     20,
		},
	}
}

// LoadToolConfig reads a YAML config over the defaults. An empty path returns the defaults.
func LoadToolConfig(path string) (*ToolConfig, error) {
	cfg := DefaultToolConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config and resolves the chain name
func (c *ToolConfig) Validate() error {
	var allErrors field.ErrorList

	chainName, ok := ChainIdToName[c.ChainID]
	if !ok {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("chainId"), c.ChainID, chainIDStrings()))
	} else {
		c.ChainName = chainName
	}

	allErrors = append(allErrors, c.Persistence.validate(field.NewPath("persistence"))...)
	allErrors = append(allErrors, c.Server.validate(field.NewPath("server"))...)

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (p *PersistenceConfig) validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	switch p.Type {
	case PersistenceType_Memory:
	case PersistenceType_Badger:
		if p.DataPath == "" {
			errs = append(errs, field.Required(path.Child("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceType_Redis:
		if p.Redis.Address == "" {
			errs = append(errs, field.Required(path.Child("redis", "address"), "address is required for redis persistence"))
		}
		if p.Redis.DB < 0 || p.Redis.DB > 15 {
			errs = append(errs, field.Invalid(path.Child("redis", "db"), p.Redis.DB, "must be between 0 and 15"))
		}
	default:
		errs = append(errs, field.NotSupported(path.Child("type"), p.Type, []string{
			string(PersistenceType_Memory), string(PersistenceType_Badger), string(PersistenceType_Redis),
		}))
	}
	return errs
}

func (s *ServerConfig) validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if _, _, err := net.SplitHostPort(s.ListenAddress); err != nil {
		errs = append(errs, field.Invalid(path.Child("listenAddress"), s.ListenAddress, err.Error()))
	}
	if s.RateLimit < 0 {
		errs = append(errs, field.Invalid(path.Child("rateLimit"), s.RateLimit, "must not be negative"))
	}
	if s.RateLimit > 0 && s.RateBurst < 1 {
		errs = append(errs, field.Invalid(path.Child("rateBurst"), s.RateBurst, "must be at least 1 when rate limiting is enabled"))
	}
	for i, entry := range s.TrustedProxies {
		if !isIPOrCIDR(entry) {
			errs = append(errs, field.Invalid(path.Child("trustedProxies").Index(i), entry, "must be an IP address or CIDR block"))
		}
	}
	return errs
}

func isIPOrCIDR(s string) bool {
	s = strings.TrimSpace(s)
	if _, _, err := net.ParseCIDR(s); err == nil {
		return true
	}
	return net.ParseIP(s) != nil
}

func chainIDStrings() []string {
	ids := GetSupportedChainIDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("%d", id)
	}
	return out
}
