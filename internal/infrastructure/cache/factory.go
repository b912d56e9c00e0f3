package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/domain/shared"
	"github.com/stocklink/pos/internal/infrastructure/config"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// Stores groups the caches selected by configuration
type Stores struct {
	Products    catalog.ProductListCache
	Idempotency shared.IdempotencyStore
	redis       *redis.Client
}

// Close releases the idempotency store and the Redis client if one was opened
func (s *Stores) Close() error {
	if s.Idempotency != nil {
		_ = s.Idempotency.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// NewStores builds the product cache and idempotency store for cfg.Cache.
// When the redis driver is selected but Redis is unreachable the stores fall
// back to memory with a warning, since both only protect against extra work.
func NewStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Stores {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Cache.Driver == "redis" {
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err == nil {
			logger.Info("using Redis caches", zap.String("addr", cfg.Redis.Addr()))
			return &Stores{
				Products:    NewRedisProductCache(client, cfg.Cache.TTL, logger.Named("product_cache")),
				Idempotency: NewRedisIdempotencyStore(client, ""),
				redis:       client,
			}
		}
		logger.Warn("Redis unavailable, falling back to in-memory caches. "+
			"Receipt jobs may be delivered twice if several instances share a queue.",
			zap.Error(err))
	}

	return &Stores{
		Products:    NewInMemoryProductCache(cfg.Cache.TTL),
		Idempotency: NewInMemoryIdempotencyStore(),
	}
}
