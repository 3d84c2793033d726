package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/persistence"
	"github.com/abracadabra-money/cauldron-whitelist-go/pkg/types"
)

// Key prefixes for namespacing
const (
	keyPrefixCampaign    = "campaign:"
	keyPrefixCeiling     = "ceiling:"
	keyPrefixBorrowed    = "borrowed:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerPersistence is a disk-backed persistence implementation using Badger.
// Campaigns and ceilings survive restarts, so a proof server can be pointed at
// the same directory the generator wrote to.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewBadgerPersistence opens (or creates) a Badger database at dataPath.
// A background goroutine runs value log GC until Close.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = newBadgerLogger(logger)
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger persistence initialized", "path", absPath)

	return bp, nil
}

// initSchema writes the schema version on first open and rejects unknown versions afterwards.
func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		existing, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}
		if string(existing) != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
		}
		return nil
	})
}

func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// get copies the value under key, returning nil when the key is absent.
func (b *BadgerPersistence) get(key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	return data, err
}

// SaveCampaign stores a new campaign. The existence check and write share one transaction.
func (b *BadgerPersistence) SaveCampaign(campaign *types.Campaign) error {
	if err := persistence.ValidateCampaign(campaign); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrPersistenceClosed
	}

	data, err := persistence.MarshalCampaign(campaign)
	if err != nil {
		return err
	}

	key := []byte(keyPrefixCampaign + campaign.ID)
	return b.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("campaign %s: %w", campaign.ID, persistence.ErrCampaignExists)
		}
		if err != badgerdb.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, data)
	})
}

// LoadCampaign retrieves a campaign by ID.
func (b *BadgerPersistence) LoadCampaign(id string) (*types.Campaign, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrPersistenceClosed
	}

	data, err := b.get(keyPrefixCampaign + id)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	return persistence.UnmarshalCampaign(data)
}

// ListCampaigns iterates the campaign prefix and returns campaigns sorted by creation time.
func (b *BadgerPersistence) ListCampaigns() ([]*types.Campaign, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrPersistenceClosed
	}

	campaigns := make([]*types.Campaign, 0)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixCampaign)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			c, err := persistence.UnmarshalCampaign(data)
			if err != nil {
				return fmt.Errorf("corrupt campaign at %s: %w", it.Item().Key(), err)
			}
			campaigns = append(campaigns, c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	persistence.SortCampaigns(campaigns)
	return campaigns, nil
}

// SaveCeiling records a ceiling once per (campaign, account).
func (b *BadgerPersistence) SaveCeiling(campaignID string, account common.Address, ceiling types.Amount) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrPersistenceClosed
	}

	accountKey := persistence.AccountKey(campaignID, account)
	key := []byte(keyPrefixCeiling + accountKey)
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key)
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set(key, persistence.MarshalAmount(ceiling))
		}
		if err != nil {
			return err
		}

		existing, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(existing) == ceiling.String() {
			return nil
		}
		return fmt.Errorf("%s: %w", accountKey, persistence.ErrCeilingAlreadySet)
	})
}

// LoadCeiling returns the recorded ceiling or nil.
func (b *BadgerPersistence) LoadCeiling(campaignID string, account common.Address) (*types.Amount, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrPersistenceClosed
	}

	data, err := b.get(keyPrefixCeiling + persistence.AccountKey(campaignID, account))
	if err != nil {
		return nil, fmt.Errorf("failed to load ceiling: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	ceiling, err := persistence.UnmarshalAmount(data)
	if err != nil {
		return nil, err
	}
	return &ceiling, nil
}

// SaveBorrowed overwrites the borrowed total.
func (b *BadgerPersistence) SaveBorrowed(campaignID string, account common.Address, total types.Amount) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrPersistenceClosed
	}

	key := []byte(keyPrefixBorrowed + persistence.AccountKey(campaignID, account))
	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key, persistence.MarshalAmount(total))
	})
}

// LoadBorrowed returns the borrowed total, zero when absent.
func (b *BadgerPersistence) LoadBorrowed(campaignID string, account common.Address) (types.Amount, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return types.Amount{}, persistence.ErrPersistenceClosed
	}

	data, err := b.get(keyPrefixBorrowed + persistence.AccountKey(campaignID, account))
	if err != nil {
		return types.Amount{}, fmt.Errorf("failed to load borrowed total: %w", err)
	}
	if data == nil {
		return types.Amount{}, nil
	}
	return persistence.UnmarshalAmount(data)
}

// Close stops GC and closes the database. Safe to call more than once.
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Infow("Badger persistence closed")
	return nil
}

// HealthCheck performs a read of the schema key.
func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrPersistenceClosed
	}

	data, err := b.get(keySchemaVersion)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if string(data) != currentSchemaVersion {
		return fmt.Errorf("health check failed: schema version %q", data)
	}
	return nil
}
