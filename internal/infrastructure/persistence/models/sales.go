package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocklink/pos/internal/domain/sales"
)

// SaleItemJSON is one line of the frozen item snapshot stored with a sale.
// The key names match the legacy ledger rows.
type SaleItemJSON struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
	Total     decimal.Decimal `json:"total"`
}

// SaleModel is the persistence model for sales.Sale. Rows are append-only.
type SaleModel struct {
	ID               int64            `gorm:"primaryKey;autoIncrement"`
	Items            []SaleItemJSON   `gorm:"type:text;serializer:json;not null"`
	Total            decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	PaymentMethod    string           `gorm:"type:varchar(30);not null;index"`
	CustomerContact  string           `gorm:"type:varchar(200);index"`
	AmountTendered   *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Change           decimal.Decimal  `gorm:"column:change_due;type:decimal(18,4);not null;default:0"`
	PaymentReference string           `gorm:"type:varchar(100)"`
	Cashier          string           `gorm:"type:varchar(100)"`
	CreatedAt        time.Time        `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// ToDomain converts the persistence model to a domain Sale
func (m *SaleModel) ToDomain() *sales.Sale {
	items := make([]sales.SaleItem, len(m.Items))
	for i, it := range m.Items {
		items[i] = sales.SaleItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.Price,
			Quantity:  it.Qty,
			LineTotal: it.Total,
		}
	}
	return &sales.Sale{
		ID:               m.ID,
		Items:            items,
		Total:            m.Total,
		PaymentMethod:    sales.PaymentMethod(m.PaymentMethod),
		CustomerContact:  m.CustomerContact,
		AmountTendered:   m.AmountTendered,
		Change:           m.Change,
		PaymentReference: m.PaymentReference,
		Cashier:          m.Cashier,
		CreatedAt:        m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain Sale
func (m *SaleModel) FromDomain(s *sales.Sale) {
	m.ID = s.ID
	m.Items = make([]SaleItemJSON, len(s.Items))
	for i, it := range s.Items {
		m.Items[i] = SaleItemJSON{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.UnitPrice,
			Qty:       it.Quantity,
			Total:     it.LineTotal,
		}
	}
	m.Total = s.Total
	m.PaymentMethod = string(s.PaymentMethod)
	m.CustomerContact = s.CustomerContact
	m.AmountTendered = s.AmountTendered
	m.Change = s.Change
	m.PaymentReference = s.PaymentReference
	m.Cashier = s.Cashier
	m.CreatedAt = s.CreatedAt
}
