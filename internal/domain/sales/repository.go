package sales

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/domain/shared"
)

// Inventory is the stock view available inside a commit
type Inventory interface {
	GetProducts(ctx context.Context, ids []int64) (map[int64]*catalog.Product, error)
	// DecrementStock removes qty units only if that many are available.
	// It fails with InsufficientStock otherwise and never drives stock below zero.
	DecrementStock(ctx context.Context, productID int64, qty int) error
}

// Ledger appends sales. Append assigns the sale id.
type Ledger interface {
	Append(ctx context.Context, sale *Sale) error
}

// CommitFunc runs inside one storage transaction
type CommitFunc func(ctx context.Context, inv Inventory, ledger Ledger) error

// UnitOfWork runs a CommitFunc atomically: every effect is applied or none is
type UnitOfWork interface {
	Commit(ctx context.Context, fn CommitFunc) error
}

// SaleFilter narrows sale listings
type SaleFilter struct {
	shared.Filter
	From *time.Time
	To   *time.Time
}

// CustomerStat aggregates sales by customer contact
type CustomerStat struct {
	Contact          string
	TransactionCount int
	LifetimeValue    decimal.Decimal
}

// Repository reads the sale ledger
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Sale, error)
	List(ctx context.Context, filter SaleFilter) ([]Sale, int64, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]Sale, error)
	RepeatCustomers(ctx context.Context) ([]CustomerStat, error)
	CustomerContacts(ctx context.Context) ([]string, error)
}
