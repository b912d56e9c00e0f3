package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/stocklink/pos/internal/domain/shared"
)

// TokenBlacklist invalidates JWT tokens before they expire (e.g., on logout)
type TokenBlacklist interface {
	// AddToBlacklist adds a token's JTI (JWT ID) to the blacklist.
	// ttl should be the remaining time until token expiration.
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error

	// IsBlacklisted checks if a token's JTI is in the blacklist
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// StoreTokenBlacklist keeps revoked JTIs in an idempotency store, so it
// follows the cache driver (memory or redis) chosen for receipt jobs
type StoreTokenBlacklist struct {
	store     shared.IdempotencyStore
	keyPrefix string
}

// NewStoreTokenBlacklist creates a blacklist on top of store
func NewStoreTokenBlacklist(store shared.IdempotencyStore) *StoreTokenBlacklist {
	return &StoreTokenBlacklist{
		store:     store,
		keyPrefix: "token:blacklist:",
	}
}

func (b *StoreTokenBlacklist) jtiKey(jti string) string {
	return b.keyPrefix + "jti:" + jti
}

// AddToBlacklist revokes jti for ttl. A token that has already expired
// needs no entry.
func (b *StoreTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if _, err := b.store.MarkProcessed(ctx, b.jtiKey(jti), ttl); err != nil {
		return fmt.Errorf("failed to add token to blacklist: %w", err)
	}
	return nil
}

// IsBlacklisted checks if a token's JTI is in the blacklist
func (b *StoreTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	revoked, err := b.store.IsProcessed(ctx, b.jtiKey(jti))
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return revoked, nil
}

var _ TokenBlacklist = (*StoreTokenBlacklist)(nil)
