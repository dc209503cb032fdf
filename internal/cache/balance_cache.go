package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmaraujo/merenda-go/internal/config"
	"github.com/dmaraujo/merenda-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	balanceKeyPrefix = "ledger:balances"
	balanceScanBatch = 100
)

// BalanceCache holds computed balance projections for the read-heavy
// dashboard traffic. Every ledger write invalidates the whole prefix; the
// projection itself stays derived-only and is never read back as truth.
type BalanceCache interface {
	Get(ctx context.Context, filter string) ([]domain.Balance, bool, error)
	Set(ctx context.Context, filter string, balances []domain.Balance) error
	InvalidateAll(ctx context.Context) error
}

type redisBalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopBalanceCache struct{}

// NewBalanceCache returns a redis-backed cache, or the noop cache when
// caching is disabled in config.
func NewBalanceCache(cfg config.CacheConfig) (BalanceCache, error) {
	if !cfg.Enabled {
		return &noopBalanceCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisBalanceCache{client: client, ttl: ttl}, nil
}

func NewNoopBalanceCache() BalanceCache {
	return &noopBalanceCache{}
}

func (c *redisBalanceCache) Get(ctx context.Context, filter string) ([]domain.Balance, bool, error) {
	payload, err := c.client.Get(ctx, buildBalanceKey(filter)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var balances []domain.Balance
	if err := json.Unmarshal(payload, &balances); err != nil {
		return nil, false, fmt.Errorf("decode balance cache: %w", err)
	}
	return balances, true, nil
}

func (c *redisBalanceCache) Set(ctx context.Context, filter string, balances []domain.Balance) error {
	payload, err := json.Marshal(balances)
	if err != nil {
		return fmt.Errorf("encode balance cache: %w", err)
	}

	if err := c.client.Set(ctx, buildBalanceKey(filter), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisBalanceCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, balanceKeyPrefix, balanceScanBatch)
}

func (n *noopBalanceCache) Get(ctx context.Context, filter string) ([]domain.Balance, bool, error) {
	return nil, false, nil
}

func (n *noopBalanceCache) Set(ctx context.Context, filter string, balances []domain.Balance) error {
	return nil
}

func (n *noopBalanceCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildBalanceKey(filter string) string {
	if filter == "" {
		return balanceKeyPrefix + ":all"
	}
	sum := sha1.Sum([]byte(filter))
	return fmt.Sprintf("%s:%s", balanceKeyPrefix, hex.EncodeToString(sum[:]))
}
