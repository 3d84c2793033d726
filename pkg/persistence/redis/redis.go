package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

// Key layout in Redis
const (
	keyPrefixCampaign    = "whitelist:campaign:"
	keyPrefixCeiling     = "whitelist:ceiling:"
	keyPrefixBorrowed    = "whitelist:borrowed:"
	keySchemaVersion     = "whitelist:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Redis has no prefix iteration, so campaign IDs are tracked in a set
	keySetCampaigns = "whitelist:campaigns:index"

	opTimeout = 5 * time.Second
)

// RedisPersistence stores campaigns in Redis so several proof servers can share one whitelist registry.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to every key, e.g. "arbitrum:" gives "arbitrum:whitelist:campaign:<id>".
	KeyPrefix string
}

// NewRedisPersistence connects to Redis and validates the schema version.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)

	return rp, nil
}

func (r *RedisPersistence) prefixKey(key string) string {
	return r.keyPrefix + key
}

func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	created, err := r.client.SetNX(ctx, schemaKey, currentSchemaVersion, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to write schema version: %w", err)
	}
	if created {
		return nil
	}

	existing, err := r.client.Get(ctx, schemaKey).Result()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existing != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
	}
	return nil
}

// SaveCampaign stores a new campaign with SETNX and indexes its ID.
func (r *RedisPersistence) SaveCampaign(campaign *types.Campaign) error {
	if err := persistence.ValidateCampaign(campaign); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrPersistenceClosed
	}

	data, err := persistence.MarshalCampaign(campaign)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	created, err := r.client.SetNX(ctx, r.prefixKey(keyPrefixCampaign+campaign.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}
	if !created {
		return fmt.Errorf("campaign %s: %w", campaign.ID, persistence.ErrCampaignExists)
	}

	if err := r.client.SAdd(ctx, r.prefixKey(keySetCampaigns), campaign.ID).Err(); err != nil {
		return fmt.Errorf("failed to index campaign: %w", err)
	}
	return nil
}

// LoadCampaign retrieves a campaign by ID.
func (r *RedisPersistence) LoadCampaign(id string) (*types.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrPersistenceClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefixKey(keyPrefixCampaign+id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	return persistence.UnmarshalCampaign(data)
}

// ListCampaigns resolves the campaign index and returns campaigns sorted by creation time.
func (r *RedisPersistence) ListCampaigns() ([]*types.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrPersistenceClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ids, err := r.client.SMembers(ctx, r.prefixKey(keySetCampaigns)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read campaign index: %w", err)
	}

	campaigns := make([]*types.Campaign, 0, len(ids))
	if len(ids) == 0 {
		return campaigns, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.prefixKey(keyPrefixCampaign + id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}

	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			r.logger.Sugar().Warnw("Campaign index entry without data", "campaign_id", ids[i])
			continue
		}
		c, err := persistence.UnmarshalCampaign([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("corrupt campaign %s: %w", ids[i], err)
		}
		campaigns = append(campaigns, c)
	}

	persistence.SortCampaigns(campaigns)
	return campaigns, nil
}

// SaveCeiling records a ceiling once per (campaign, account).
func (r *RedisPersistence) SaveCeiling(campaignID string, account common.Address, ceiling types.Amount) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrPersistenceClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	accountKey := persistence.AccountKey(campaignID, account)
	key := r.prefixKey(keyPrefixCeiling + accountKey)

	created, err := r.client.SetNX(ctx, key, persistence.MarshalAmount(ceiling), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save ceiling: %w", err)
	}
	if created {
		return nil
	}

	existing, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to read existing ceiling: %w", err)
	}
	if existing == ceiling.String() {
		return nil
	}
	return fmt.Errorf("%s: %w", accountKey, persistence.ErrCeilingAlreadySet)
}

// LoadCeiling returns the recorded ceiling or nil.
func (r *RedisPersistence) LoadCeiling(campaignID string, account common.Address) (*types.Amount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrPersistenceClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefixKey(keyPrefixCeiling+persistence.AccountKey(campaignID, account))).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ceiling: %w", err)
	}

	ceiling, err := persistence.UnmarshalAmount(data)
	if err != nil {
		return nil, err
	}
	return &ceiling, nil
}

// SaveBorrowed overwrites the borrowed total.
func (r *RedisPersistence) SaveBorrowed(campaignID string, account common.Address, total types.Amount) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrPersistenceClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	key := r.prefixKey(keyPrefixBorrowed + persistence.AccountKey(campaignID, account))
	if err := r.client.Set(ctx, key, persistence.MarshalAmount(total), 0).Err(); err != nil {
		return fmt.Errorf("failed to save borrowed total: %w", err)
	}
	return nil
}

// LoadBorrowed returns the borrowed total, zero when absent.
func (r *RedisPersistence) LoadBorrowed(campaignID string, account common.Address) (types.Amount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return types.Amount{}, persistence.ErrPersistenceClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.prefixKey(keyPrefixBorrowed+persistence.AccountKey(campaignID, account))).Bytes()
	if err == redis.Nil {
		return types.Amount{}, nil
	}
	if err != nil {
		return types.Amount{}, fmt.Errorf("failed to load borrowed total: %w", err)
	}
	return persistence.UnmarshalAmount(data)
}

// Close closes the Redis client. Idempotent.
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck pings Redis and checks the schema key is present.
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrPersistenceClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if err == redis.Nil {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	return nil
}
