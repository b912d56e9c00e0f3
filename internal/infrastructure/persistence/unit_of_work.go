package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/domain/shared"
	"github.com/stocklink/pos/internal/infrastructure/persistence/models"
)

// GormUnitOfWork commits a sale inside one database transaction
type GormUnitOfWork struct {
	db *gorm.DB
}

var _ sales.UnitOfWork = (*GormUnitOfWork)(nil)

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Commit runs fn in a transaction. Any error rolls back every stock
// decrement and the ledger row together.
func (u *GormUnitOfWork) Commit(ctx context.Context, fn sales.CommitFunc) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txInventory{tx: tx}, &txLedger{tx: tx})
	})
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return storageError("commit sale", err)
}

type txInventory struct {
	tx *gorm.DB
}

func (i *txInventory) GetProducts(ctx context.Context, ids []int64) (map[int64]*catalog.Product, error) {
	return findProducts(i.tx.WithContext(ctx), ids)
}

// DecrementStock applies a conditional update so two commits racing for the
// last unit cannot both succeed
func (i *txInventory) DecrementStock(ctx context.Context, productID int64, qty int) error {
	if qty <= 0 {
		return sales.ErrInvalidLine
	}
	db := i.tx.WithContext(ctx)
	result := db.Model(&models.ProductModel{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumns(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return storageError("decrement stock", result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := db.Model(&models.ProductModel{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return storageError("decrement stock", err)
	}
	if count == 0 {
		return catalog.ProductNotFound(productID)
	}
	return sales.InsufficientStock(productID)
}

type txLedger struct {
	tx *gorm.DB
}

func (l *txLedger) Append(ctx context.Context, sale *sales.Sale) error {
	var m models.SaleModel
	m.FromDomain(sale)
	m.ID = 0
	if err := l.tx.WithContext(ctx).Create(&m).Error; err != nil {
		return storageError("append sale", err)
	}
	sale.ID = m.ID
	return nil
}
