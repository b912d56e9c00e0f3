package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/domain/shared"
	"github.com/stocklink/pos/internal/infrastructure/persistence/models"
)

// GormDiscountRepository implements catalog.DiscountRepository using GORM
type GormDiscountRepository struct {
	db *gorm.DB
}

var _ catalog.DiscountRepository = (*GormDiscountRepository)(nil)

// NewGormDiscountRepository creates a new GormDiscountRepository
func NewGormDiscountRepository(db *gorm.DB) *GormDiscountRepository {
	return &GormDiscountRepository{db: db}
}

// Create inserts a discount for an existing product
func (r *GormDiscountRepository) Create(ctx context.Context, discount *catalog.Discount) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.ProductModel
		if err := tx.Select("id").First(&product, "id = ?", discount.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.ProductNotFound(discount.ProductID)
			}
			return storageError("create discount", err)
		}

		var m models.DiscountModel
		m.FromDomain(discount)
		if err := tx.Omit("Product").Create(&m).Error; err != nil {
			return storageError("create discount", err)
		}
		discount.ID = m.ID
		discount.CreatedAt = m.CreatedAt
		return nil
	})
	return err
}

// FindAll returns discounts newest first
func (r *GormDiscountRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Discount, error) {
	var rows []models.DiscountModel
	if err := r.db.WithContext(ctx).
		Order("start_date " + ValidateSortOrder(filter.OrderDir)).
		Order("id DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, storageError("list discounts", err)
	}
	return toDiscounts(rows), nil
}

// FindActive returns the discounts whose date range covers day. The query
// narrows the scan with a day of slack on each side and Discount.ActiveOn
// decides.
func (r *GormDiscountRepository) FindActive(ctx context.Context, day time.Time) ([]catalog.Discount, error) {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	upper := midnight.AddDate(0, 0, 2).UTC()
	lower := midnight.AddDate(0, 0, -1).UTC()

	var rows []models.DiscountModel
	if err := r.db.WithContext(ctx).
		Where("start_date < ? AND end_date >= ?", upper, lower).
		Order("product_id ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, storageError("list active discounts", err)
	}

	out := make([]catalog.Discount, 0, len(rows))
	for i := range rows {
		d := rows[i].ToDomain()
		if d.ActiveOn(day) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func toDiscounts(rows []models.DiscountModel) []catalog.Discount {
	out := make([]catalog.Discount, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}
