package models

import (
	"time"

	"github.com/stocklink/pos/internal/domain/identity"
)

// UserModel is the persistence model for identity.User
type UserModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	Email        string    `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password;type:varchar(255);not null"`
	Role         string    `gorm:"type:varchar(20);not null;default:'cashier'"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         identity.Role(m.Role),
		CreatedAt:    m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain User
func (m *UserModel) FromDomain(u *identity.User) {
	m.ID = u.ID
	m.Username = u.Username
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.Role = string(u.Role)
	m.CreatedAt = u.CreatedAt
}
