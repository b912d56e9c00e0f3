package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocklink/pos/internal/domain/shared"
)

// DefaultReorderThreshold is the stock level at or below which a product
// is reported as needing a reorder
const DefaultReorderThreshold = 10

// Product is a sellable item with its live price and stock
type Product struct {
	ID               int64
	Name             string
	Category         string
	Image            string
	Price            decimal.Decimal
	CostPrice        decimal.Decimal
	Stock            int
	ReorderThreshold int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProductDetails holds the editable fields of a product
type ProductDetails struct {
	Name             string
	Category         string
	Image            string
	Price            decimal.Decimal
	CostPrice        decimal.Decimal
	Stock            int
	ReorderThreshold *int
}

// Product errors
var (
	ErrProductNotFound = shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	ErrInvalidName     = shared.NewDomainError("VALIDATION_FAILED", "Product name is required and must not exceed 200 characters")
	ErrInvalidPrice    = shared.NewDomainError("VALIDATION_FAILED", "Product price cannot be negative")
	ErrInvalidStock    = shared.NewDomainError("VALIDATION_FAILED", "Product stock cannot be negative")
	ErrInvalidRestock  = shared.NewDomainError("VALIDATION_FAILED", "Restock quantity must be positive")
)

// NewProduct creates a new product from the given details
func NewProduct(d ProductDetails) (*Product, error) {
	p := &Product{ReorderThreshold: DefaultReorderThreshold}
	if err := p.Apply(d); err != nil {
		return nil, err
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

// Apply validates and copies the details onto the product
func (p *Product) Apply(d ProductDetails) error {
	name := strings.TrimSpace(d.Name)
	if name == "" || len(name) > 200 {
		return ErrInvalidName
	}
	if d.Price.IsNegative() || d.CostPrice.IsNegative() {
		return ErrInvalidPrice
	}
	if d.Stock < 0 {
		return ErrInvalidStock
	}
	if d.ReorderThreshold != nil {
		if *d.ReorderThreshold < 0 {
			return shared.NewDomainError("VALIDATION_FAILED", "Reorder threshold cannot be negative")
		}
		p.ReorderThreshold = *d.ReorderThreshold
	}

	p.Name = name
	p.Category = strings.TrimSpace(d.Category)
	p.Image = d.Image
	p.Price = d.Price
	p.CostPrice = d.CostPrice
	p.Stock = d.Stock
	p.UpdatedAt = time.Now()
	return nil
}

// NeedsReorder reports whether stock has fallen to the reorder threshold
func (p *Product) NeedsReorder() bool {
	return p.Stock <= p.ReorderThreshold
}

// ProductNotFound returns ErrProductNotFound annotated with the product id
func ProductNotFound(id int64) error {
	return shared.NewDomainErrorf("PRODUCT_NOT_FOUND", "Product %d not found", id).
		WithDetail("productId", id)
}
