// Package models holds the GORM persistence models and their mapping to
// domain types.
package models

import "time"

// BaseModel provides the integer key and timestamps every table carries
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// All returns every model managed by AutoMigrate
func All() []any {
	return []any{
		&ProductModel{},
		&SaleModel{},
		&UserModel{},
		&DiscountModel{},
		&DeliveryModel{},
	}
}
