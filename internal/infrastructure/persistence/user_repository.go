package persistence

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/stocklink/pos/internal/domain/identity"
	"github.com/stocklink/pos/internal/infrastructure/persistence/models"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

var _ identity.UserRepository = (*GormUserRepository)(nil)

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a user. Duplicate usernames or emails map to ErrUserExists.
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	var m models.UserModel
	m.FromDomain(user)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return identity.ErrUserExists
		}
		return storageError("create user", err)
	}
	user.ID = m.ID
	return nil
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var m models.UserModel
	if err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, storageError("find user", err)
	}
	return m.ToDomain(), nil
}

// FindByID finds a user by id
func (r *GormUserRepository) FindByID(ctx context.Context, id int64) (*identity.User, error) {
	var m models.UserModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, storageError("find user", err)
	}
	return m.ToDomain(), nil
}

// UpdatePasswordHash replaces the stored hash for the user with email
func (r *GormUserRepository) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	result := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Update("password", hash)
	if result.Error != nil {
		return storageError("update password", result.Error)
	}
	if result.RowsAffected == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// isUniqueViolation recognises unique constraint errors from drivers that
// gorm does not translate
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
