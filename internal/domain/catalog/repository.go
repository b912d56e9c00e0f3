package catalog

import (
	"context"
	"time"

	"github.com/stocklink/pos/internal/domain/shared"
)

// ProductRepository persists products
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (*Product, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*Product, error)
	FindAll(ctx context.Context) ([]Product, error)
	FindBelowReorder(ctx context.Context) ([]Product, error)
	Create(ctx context.Context, product *Product) error
	// CreateBatch inserts all products in one transaction or none of them
	CreateBatch(ctx context.Context, products []*Product) error
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id int64) error
	// IncrementStock adds qty to the stock in a single statement and
	// returns the updated product
	IncrementStock(ctx context.Context, id int64, qty int) (*Product, error)
}

// DiscountRepository persists discounts
type DiscountRepository interface {
	Create(ctx context.Context, discount *Discount) error
	FindAll(ctx context.Context, filter shared.Filter) ([]Discount, error)
	FindActive(ctx context.Context, day time.Time) ([]Discount, error)
}

// ProductListCache caches the full product list keyed by a version that
// Invalidate bumps. Get returns the current version on a miss; callers load
// the list and Set it under that version, so a load that raced with a
// mutation lands under a stale version and is never served.
type ProductListCache interface {
	Get(ctx context.Context) (products []Product, version int64, ok bool)
	Set(ctx context.Context, version int64, products []Product) error
	Invalidate(ctx context.Context) error
}
