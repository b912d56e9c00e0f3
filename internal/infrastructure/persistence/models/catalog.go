package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocklink/pos/internal/domain/catalog"
)

// ProductModel is the persistence model for catalog.Product
type ProductModel struct {
	BaseModel
	Name             string          `gorm:"type:varchar(200);not null"`
	Category         string          `gorm:"type:varchar(100);index"`
	Image            string          `gorm:"type:text"`
	Price            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CostPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Stock            int             `gorm:"not null;default:0;check:chk_products_stock,stock >= 0"`
	ReorderThreshold int             `gorm:"not null;default:10"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		ID:               m.ID,
		Name:             m.Name,
		Category:         m.Category,
		Image:            m.Image,
		Price:            m.Price,
		CostPrice:        m.CostPrice,
		Stock:            m.Stock,
		ReorderThreshold: m.ReorderThreshold,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.ID = p.ID
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
	m.Name = p.Name
	m.Category = p.Category
	m.Image = p.Image
	m.Price = p.Price
	m.CostPrice = p.CostPrice
	m.Stock = p.Stock
	m.ReorderThreshold = p.ReorderThreshold
}

// DiscountModel is the persistence model for catalog.Discount
type DiscountModel struct {
	ID              int64           `gorm:"primaryKey;autoIncrement"`
	ProductID       int64           `gorm:"not null;index"`
	Product         *ProductModel   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	StartDate       time.Time       `gorm:"not null;index"`
	EndDate         time.Time       `gorm:"not null;index"`
	CreatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DiscountModel) TableName() string {
	return "discounts"
}

// ToDomain converts the persistence model to a domain Discount
func (m *DiscountModel) ToDomain() *catalog.Discount {
	return &catalog.Discount{
		ID:        m.ID,
		ProductID: m.ProductID,
		Percent:   m.DiscountPercent,
		StartDate: m.StartDate,
		EndDate:   m.EndDate,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain Discount
func (m *DiscountModel) FromDomain(d *catalog.Discount) {
	m.ID = d.ID
	m.ProductID = d.ProductID
	m.DiscountPercent = d.Percent
	m.StartDate = d.StartDate.UTC()
	m.EndDate = d.EndDate.UTC()
	m.CreatedAt = d.CreatedAt
}
