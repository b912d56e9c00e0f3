package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocklink/pos/internal/domain/catalog"
)

// CreateProductRequest creates a product
type CreateProductRequest struct {
	Name             string          `json:"name" binding:"required,max=200"`
	Category         string          `json:"category" binding:"max=100"`
	Image            string          `json:"image" binding:"max=1024"`
	Price            decimal.Decimal `json:"price"`
	CostPrice        decimal.Decimal `json:"costPrice"`
	Stock            int             `json:"stock" binding:"gte=0"`
	ReorderThreshold *int            `json:"reorderThreshold" binding:"omitempty,gte=0"`
}

// UpdateProductRequest replaces the editable fields of a product. Omitted
// fields keep their current value.
type UpdateProductRequest struct {
	Name             *string          `json:"name" binding:"omitempty,max=200"`
	Category         *string          `json:"category" binding:"omitempty,max=100"`
	Image            *string          `json:"image" binding:"omitempty,max=1024"`
	Price            *decimal.Decimal `json:"price"`
	CostPrice        *decimal.Decimal `json:"costPrice"`
	Stock            *int             `json:"stock" binding:"omitempty,gte=0"`
	ReorderThreshold *int             `json:"reorderThreshold" binding:"omitempty,gte=0"`
}

// RestockRequest adds units to a product
type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// ProductResponse is a product in API responses
type ProductResponse struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	Image            string          `json:"image,omitempty"`
	Price            decimal.Decimal `json:"price"`
	CostPrice        decimal.Decimal `json:"costPrice"`
	Stock            int             `json:"stock"`
	ReorderThreshold int             `json:"reorderThreshold"`
	NeedsReorder     bool            `json:"needsReorder"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// ToProductResponse converts a product to its API view
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:               p.ID,
		Name:             p.Name,
		Category:         p.Category,
		Image:            p.Image,
		Price:            p.Price,
		CostPrice:        p.CostPrice,
		Stock:            p.Stock,
		ReorderThreshold: p.ReorderThreshold,
		NeedsReorder:     p.NeedsReorder(),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// ToProductResponses converts a product list
func ToProductResponses(products []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = ToProductResponse(&products[i])
	}
	return out
}
