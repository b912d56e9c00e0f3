package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/infrastructure/persistence/models"
)

const productBatchSize = 100

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id int64) (*catalog.Product, error) {
	return findProduct(r.db.WithContext(ctx), id)
}

// FindByIDs loads the given products keyed by id. Unknown ids are absent
// from the result.
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]*catalog.Product, error) {
	return findProducts(r.db.WithContext(ctx), ids)
}

// FindAll returns every product ordered by id
func (r *GormProductRepository) FindAll(ctx context.Context) ([]catalog.Product, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, storageError("list products", err)
	}
	return toProducts(rows), nil
}

// FindBelowReorder returns products at or under their reorder threshold
func (r *GormProductRepository) FindBelowReorder(ctx context.Context) ([]catalog.Product, error) {
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("stock <= reorder_threshold").
		Order("stock ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, storageError("list low stock products", err)
	}
	return toProducts(rows), nil
}

// CountLowStock counts products at or under their reorder threshold
func (r *GormProductRepository) CountLowStock(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("stock <= reorder_threshold").
		Count(&n).Error; err != nil {
		return 0, storageError("count low stock products", err)
	}
	return n, nil
}

// Create inserts a product and assigns its id
func (r *GormProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	var m models.ProductModel
	m.FromDomain(product)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return storageError("create product", err)
	}
	product.ID = m.ID
	product.CreatedAt = m.CreatedAt
	product.UpdatedAt = m.UpdatedAt
	return nil
}

// CreateBatch inserts products in one transaction
func (r *GormProductRepository) CreateBatch(ctx context.Context, products []*catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	rows := make([]models.ProductModel, len(products))
	for i, p := range products {
		rows[i].FromDomain(p)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, productBatchSize).Error
	})
	if err != nil {
		return storageError("create products", err)
	}
	for i, p := range products {
		p.ID = rows[i].ID
		p.CreatedAt = rows[i].CreatedAt
		p.UpdatedAt = rows[i].UpdatedAt
	}
	return nil
}

// Update overwrites the editable product columns
func (r *GormProductRepository) Update(ctx context.Context, product *catalog.Product) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"name":              product.Name,
			"category":          product.Category,
			"image":             product.Image,
			"price":             product.Price,
			"cost_price":        product.CostPrice,
			"stock":             product.Stock,
			"reorder_threshold": product.ReorderThreshold,
			"updated_at":        product.UpdatedAt,
		})
	if result.Error != nil {
		return storageError("update product", result.Error)
	}
	if result.RowsAffected == 0 {
		return catalog.ProductNotFound(product.ID)
	}
	return nil
}

// Delete removes a product
func (r *GormProductRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.ProductModel{}, id)
	if result.Error != nil {
		return storageError("delete product", result.Error)
	}
	if result.RowsAffected == 0 {
		return catalog.ProductNotFound(id)
	}
	return nil
}

// IncrementStock adds qty to the stock in one statement so concurrent sales
// and restocks never lose an update
func (r *GormProductRepository) IncrementStock(ctx context.Context, id int64, qty int) (*catalog.Product, error) {
	if qty <= 0 {
		return nil, catalog.ErrInvalidRestock
	}

	var product *catalog.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ProductModel{}).
			Where("id = ?", id).
			UpdateColumns(map[string]any{
				"stock":      gorm.Expr("stock + ?", qty),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return storageError("restock product", result.Error)
		}
		if result.RowsAffected == 0 {
			return catalog.ProductNotFound(id)
		}

		var err error
		product, err = findProduct(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func findProduct(db *gorm.DB, id int64) (*catalog.Product, error) {
	var m models.ProductModel
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ProductNotFound(id)
		}
		return nil, storageError("find product", err)
	}
	return m.ToDomain(), nil
}

func findProducts(db *gorm.DB, ids []int64) (map[int64]*catalog.Product, error) {
	out := make(map[int64]*catalog.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.ProductModel
	if err := db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, storageError("load products", err)
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].ToDomain()
	}
	return out, nil
}

func toProducts(rows []models.ProductModel) []catalog.Product {
	out := make([]catalog.Product, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}
