// Package catalog manages products and serves the cached product list to
// the till.
package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/infrastructure/logger"
)

// ProductService handles product CRUD and restocking. Every mutation bumps
// the product list cache version before returning.
type ProductService struct {
	products catalog.ProductRepository
	cache    catalog.ProductListCache
	logger   *zap.Logger
}

// NewProductService creates a ProductService. cache may be nil.
func NewProductService(products catalog.ProductRepository, cache catalog.ProductListCache, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{products: products, cache: cache, logger: logger}
}

// Create creates a product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	p, err := catalog.NewProduct(catalog.ProductDetails{
		Name:             req.Name,
		Category:         req.Category,
		Image:            req.Image,
		Price:            req.Price,
		CostPrice:        req.CostPrice,
		Stock:            req.Stock,
		ReorderThreshold: req.ReorderThreshold,
	})
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	logger.Enrich(ctx, s.logger).Info("Product created", zap.Int64("product_id", p.ID), zap.String("name", p.Name))
	resp := ToProductResponse(p)
	return &resp, nil
}

// Get returns one product read from storage
func (s *ProductService) Get(ctx context.Context, id int64) (*ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(p)
	return &resp, nil
}

// List returns every product, served from the cache when it holds the
// current version
func (s *ProductService) List(ctx context.Context) ([]ProductResponse, error) {
	if s.cache == nil {
		products, err := s.products.FindAll(ctx)
		if err != nil {
			return nil, err
		}
		return ToProductResponses(products), nil
	}

	products, version, ok := s.cache.Get(ctx)
	if ok {
		return ToProductResponses(products), nil
	}

	products, err := s.products.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, version, products); err != nil {
		logger.Enrich(ctx, s.logger).Warn("Failed to cache product list", zap.Error(err))
	}
	return ToProductResponses(products), nil
}

// Update applies the given fields to a product
func (s *ProductService) Update(ctx context.Context, id int64, req UpdateProductRequest) (*ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	d := catalog.ProductDetails{
		Name:             p.Name,
		Category:         p.Category,
		Image:            p.Image,
		Price:            p.Price,
		CostPrice:        p.CostPrice,
		Stock:            p.Stock,
		ReorderThreshold: req.ReorderThreshold,
	}
	if req.Name != nil {
		d.Name = *req.Name
	}
	if req.Category != nil {
		d.Category = *req.Category
	}
	if req.Image != nil {
		d.Image = *req.Image
	}
	if req.Price != nil {
		d.Price = *req.Price
	}
	if req.CostPrice != nil {
		d.CostPrice = *req.CostPrice
	}
	if req.Stock != nil {
		d.Stock = *req.Stock
	}

	if err := p.Apply(d); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	resp := ToProductResponse(p)
	return &resp, nil
}

// Delete removes a product. Sales keep their item snapshots.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	logger.Enrich(ctx, s.logger).Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

// Restock adds qty units to a product in one statement
func (s *ProductService) Restock(ctx context.Context, id int64, req RestockRequest) (*ProductResponse, error) {
	if req.Quantity <= 0 {
		return nil, catalog.ErrInvalidRestock
	}
	p, err := s.products.IncrementStock(ctx, id, req.Quantity)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	logger.Enrich(ctx, s.logger).Info("Product restocked",
		zap.Int64("product_id", id),
		zap.Int("quantity", req.Quantity),
		zap.Int("stock", p.Stock),
	)
	resp := ToProductResponse(p)
	return &resp, nil
}

// LowStock returns products at or below their reorder threshold
func (s *ProductService) LowStock(ctx context.Context) ([]ProductResponse, error) {
	products, err := s.products.FindBelowReorder(ctx)
	if err != nil {
		return nil, err
	}
	return ToProductResponses(products), nil
}

func (s *ProductService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
		logger.Enrich(ctx, s.logger).Warn("Failed to invalidate product cache", zap.Error(err))
	}
}
