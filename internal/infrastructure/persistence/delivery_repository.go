package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/infrastructure/persistence/models"
)

// GormDeliveryRepository implements notification.DeliveryRepository using GORM
type GormDeliveryRepository struct {
	db *gorm.DB
}

var _ notification.DeliveryRepository = (*GormDeliveryRepository)(nil)

// NewGormDeliveryRepository creates a new GormDeliveryRepository
func NewGormDeliveryRepository(db *gorm.DB) *GormDeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

// Save upserts the delivery row for (sale, method, destination). A new
// delivery for an existing key takes over that row and keeps its history.
func (r *GormDeliveryRepository) Save(ctx context.Context, d *notification.Delivery) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.DeliveryModel
		m.FromDomain(d)

		if m.ID == 0 {
			var existing models.DeliveryModel
			err := tx.Where("sale_id = ? AND method = ? AND destination = ?", d.SaleID, string(d.Method), d.Destination).
				First(&existing).Error
			switch {
			case err == nil:
				m.ID = existing.ID
				m.CreatedAt = existing.CreatedAt
				m.Attempts += existing.Attempts
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return storageError("save delivery", err)
			}
		}

		if err := tx.Omit("Sale").Save(&m).Error; err != nil {
			return storageError("save delivery", err)
		}
		d.ID = m.ID
		d.Attempts = m.Attempts
		d.CreatedAt = m.CreatedAt
		return nil
	})
}

// FindBySale lists deliveries for a sale oldest first
func (r *GormDeliveryRepository) FindBySale(ctx context.Context, saleID int64) ([]notification.Delivery, error) {
	var rows []models.DeliveryModel
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, storageError("list deliveries", err)
	}
	out := make([]notification.Delivery, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}
