package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/catalog"
)

// RedisProductCache implements catalog.ProductListCache on Redis so that
// several API instances share one product list. The list is stored under a
// key that embeds the version counter, and Invalidate is a single INCR.
type RedisProductCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

var _ catalog.ProductListCache = (*RedisProductCache)(nil)

// NewRedisProductCache creates a cache on an existing client. The caller
// keeps ownership of the client.
func NewRedisProductCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisProductCache {
	if ttl <= 0 {
		ttl = DefaultProductListTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisProductCache{
		client:    client,
		keyPrefix: "pos:products:",
		ttl:       ttl,
		logger:    logger,
	}
}

func (c *RedisProductCache) versionKey() string {
	return c.keyPrefix + "version"
}

func (c *RedisProductCache) listKey(version int64) string {
	return c.keyPrefix + "list:" + strconv.FormatInt(version, 10)
}

func (c *RedisProductCache) currentVersion(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Get returns the list for the current version. Redis errors are treated
// as a miss so the catalog falls through to the database.
func (c *RedisProductCache) Get(ctx context.Context) ([]catalog.Product, int64, bool) {
	version, err := c.currentVersion(ctx)
	if err != nil {
		c.logger.Warn("product cache version read failed", zap.Error(err))
		return nil, -1, false
	}

	data, err := c.client.Get(ctx, c.listKey(version)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("product cache read failed", zap.Error(err))
		}
		return nil, version, false
	}

	var products []catalog.Product
	if err := json.Unmarshal(data, &products); err != nil {
		c.logger.Warn("product cache entry is corrupt", zap.Error(err))
		_ = c.client.Del(ctx, c.listKey(version))
		return nil, version, false
	}
	return products, version, true
}

// Set stores products under version. A negative version means Get could not
// read the counter and nothing is stored.
func (c *RedisProductCache) Set(ctx context.Context, version int64, products []catalog.Product) error {
	if version < 0 {
		return nil
	}
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to marshal product list: %w", err)
	}
	if err := c.client.Set(ctx, c.listKey(version), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache product list: %w", err)
	}
	return nil
}

// Invalidate bumps the version so every existing list key goes stale
func (c *RedisProductCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.versionKey()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate product cache: %w", err)
	}
	return nil
}
