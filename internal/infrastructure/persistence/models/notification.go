package models

import (
	"github.com/stocklink/pos/internal/domain/notification"
)

// DeliveryModel is the persistence model for notification.Delivery
type DeliveryModel struct {
	BaseModel
	SaleID      int64      `gorm:"not null;uniqueIndex:idx_delivery_sale_method,priority:1"`
	Sale        *SaleModel `gorm:"foreignKey:SaleID"`
	Method      string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_delivery_sale_method,priority:2"`
	Destination string     `gorm:"type:varchar(200);not null;uniqueIndex:idx_delivery_sale_method,priority:3"`
	Status      string     `gorm:"type:varchar(20);not null;index"`
	Attempts    int        `gorm:"not null;default:0"`
	LastError   string     `gorm:"type:text"`
	Fingerprint string     `gorm:"type:varchar(64)"`
}

// TableName returns the table name for GORM
func (DeliveryModel) TableName() string {
	return "receipt_deliveries"
}

// ToDomain converts the persistence model to a domain Delivery
func (m *DeliveryModel) ToDomain() *notification.Delivery {
	return &notification.Delivery{
		ID:          m.ID,
		SaleID:      m.SaleID,
		Method:      notification.Method(m.Method),
		Destination: m.Destination,
		Status:      notification.Status(m.Status),
		Attempts:    m.Attempts,
		LastError:   m.LastError,
		Fingerprint: m.Fingerprint,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Delivery
func (m *DeliveryModel) FromDomain(d *notification.Delivery) {
	m.ID = d.ID
	m.CreatedAt = d.CreatedAt
	m.UpdatedAt = d.UpdatedAt
	m.SaleID = d.SaleID
	m.Method = string(d.Method)
	m.Destination = d.Destination
	m.Status = string(d.Status)
	m.Attempts = d.Attempts
	m.LastError = d.LastError
	m.Fingerprint = d.Fingerprint
}
