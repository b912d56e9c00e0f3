package cache

import (
	"context"
	"sync"
	"time"

	"github.com/stocklink/pos/internal/domain/catalog"
)

// DefaultProductListTTL is how long a product list stays fresh
const DefaultProductListTTL = 60 * time.Second

// InMemoryProductCache implements catalog.ProductListCache for a single
// process. Every Invalidate bumps the version, so a Set carrying an older
// version is dropped.
type InMemoryProductCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	version   int64
	stored    int64
	products  []catalog.Product
	expiresAt time.Time
	hasEntry  bool
}

var _ catalog.ProductListCache = (*InMemoryProductCache)(nil)

// NewInMemoryProductCache creates a cache whose entries live for ttl
func NewInMemoryProductCache(ttl time.Duration) *InMemoryProductCache {
	if ttl <= 0 {
		ttl = DefaultProductListTTL
	}
	return &InMemoryProductCache{ttl: ttl, now: time.Now}
}

// Get returns a copy of the cached list, or the current version on a miss
func (c *InMemoryProductCache) Get(ctx context.Context) ([]catalog.Product, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasEntry || c.stored != c.version || !c.now().Before(c.expiresAt) {
		return nil, c.version, false
	}
	return cloneProducts(c.products), c.version, true
}

// Set stores products loaded under version. Stale versions are ignored.
func (c *InMemoryProductCache) Set(ctx context.Context, version int64, products []catalog.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version != c.version {
		return nil
	}
	c.products = cloneProducts(products)
	c.stored = version
	c.expiresAt = c.now().Add(c.ttl)
	c.hasEntry = true
	return nil
}

// Invalidate drops the cached list and bumps the version
func (c *InMemoryProductCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.version++
	c.products = nil
	c.hasEntry = false
	return nil
}

func cloneProducts(in []catalog.Product) []catalog.Product {
	if in == nil {
		return nil
	}
	out := make([]catalog.Product, len(in))
	copy(out, in)
	return out
}
