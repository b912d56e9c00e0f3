package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/infrastructure/persistence/models"
)

// GormSaleRepository reads the sale ledger. Writes only happen through
// GormUnitOfWork.
type GormSaleRepository struct {
	db *gorm.DB
}

var _ sales.Repository = (*GormSaleRepository)(nil)

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID finds a sale by its ID
func (r *GormSaleRepository) FindByID(ctx context.Context, id int64) (*sales.Sale, error) {
	var m models.SaleModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sales.ErrSaleNotFound.WithDetail("saleId", id)
		}
		return nil, storageError("find sale", err)
	}
	return m.ToDomain(), nil
}

// List returns one page of sales and the total matching count
func (r *GormSaleRepository) List(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.SaleModel{}).
		Scopes(saleFilterScope(filter)).
		Count(&total).Error; err != nil {
		return nil, 0, storageError("count sales", err)
	}

	dir := ValidateSortOrder(filter.OrderDir)
	var rows []models.SaleModel
	if err := r.db.WithContext(ctx).
		Scopes(saleFilterScope(filter)).
		Order("created_at " + dir).
		Order("id " + dir).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, storageError("list sales", err)
	}
	return toSales(rows), total, nil
}

func saleFilterScope(filter sales.SaleFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.From != nil {
			db = db.Where("created_at >= ?", filter.From.UTC())
		}
		if filter.To != nil {
			db = db.Where("created_at < ?", filter.To.UTC())
		}
		if filter.Search != "" {
			db = db.Where("customer_contact LIKE ?", "%"+filter.Search+"%")
		}
		return db
	}
}

// ListBetween returns all sales in [from, to) oldest first
func (r *GormSaleRepository) ListBetween(ctx context.Context, from, to time.Time) ([]sales.Sale, error) {
	var rows []models.SaleModel
	if err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, storageError("list sales between", err)
	}
	return toSales(rows), nil
}

// RepeatCustomers returns contacts with more than one sale, busiest first
func (r *GormSaleRepository) RepeatCustomers(ctx context.Context) ([]sales.CustomerStat, error) {
	var rows []struct {
		Contact          string
		TransactionCount int
		LifetimeValue    decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.SaleModel{}).
		Select("customer_contact AS contact, COUNT(*) AS transaction_count, SUM(total) AS lifetime_value").
		Where("customer_contact <> ''").
		Group("customer_contact").
		Having("COUNT(*) > 1").
		Order("transaction_count DESC, contact ASC").
		Scan(&rows).Error; err != nil {
		return nil, storageError("repeat customers", err)
	}

	out := make([]sales.CustomerStat, len(rows))
	for i, row := range rows {
		out[i] = sales.CustomerStat{
			Contact:          row.Contact,
			TransactionCount: row.TransactionCount,
			LifetimeValue:    row.LifetimeValue.Round(2),
		}
	}
	return out, nil
}

// CustomerContacts returns every distinct non-empty customer contact
func (r *GormSaleRepository) CustomerContacts(ctx context.Context) ([]string, error) {
	var contacts []string
	if err := r.db.WithContext(ctx).
		Model(&models.SaleModel{}).
		Where("customer_contact <> ''").
		Distinct("customer_contact").
		Order("customer_contact ASC").
		Pluck("customer_contact", &contacts).Error; err != nil {
		return nil, storageError("customer contacts", err)
	}
	return contacts, nil
}

func toSales(rows []models.SaleModel) []sales.Sale {
	out := make([]sales.Sale, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}
