package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklink/pos/internal/domain/catalog"
)

func TestGormProductRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	pen := seedProduct(t, db, "Pen", "50", 10)
	seedProduct(t, db, "Notebook", "120.50", 3)
	require.NotZero(t, pen.ID)

	t.Run("finds by id", func(t *testing.T) {
		got, err := repo.FindByID(ctx, pen.ID)
		require.NoError(t, err)
		assert.Equal(t, "Pen", got.Name)
		assert.True(t, decimal.NewFromInt(50).Equal(got.Price))
		assert.Equal(t, 10, got.Stock)
	})

	t.Run("missing product reports PRODUCT_NOT_FOUND", func(t *testing.T) {
		_, err := repo.FindByID(ctx, 999)
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})

	t.Run("finds by ids skipping unknown ones", func(t *testing.T) {
		got, err := repo.FindByIDs(ctx, []int64{pen.ID, 999})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Contains(t, got, pen.ID)
	})

	t.Run("lists products in id order", func(t *testing.T) {
		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Pen", all[0].Name)
		assert.Equal(t, "Notebook", all[1].Name)
	})

	t.Run("lists products needing reorder", func(t *testing.T) {
		low, err := repo.FindBelowReorder(ctx)
		require.NoError(t, err)
		require.Len(t, low, 2)
		assert.Equal(t, "Notebook", low[0].Name)

		n, err := repo.CountLowStock(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("updates a product", func(t *testing.T) {
		got, err := repo.FindByID(ctx, pen.ID)
		require.NoError(t, err)
		require.NoError(t, got.Apply(catalog.ProductDetails{
			Name:  "Blue Pen",
			Price: decimal.RequireFromString("55.00"),
			Stock: 12,
		}))
		require.NoError(t, repo.Update(ctx, got))

		reloaded, err := repo.FindByID(ctx, pen.ID)
		require.NoError(t, err)
		assert.Equal(t, "Blue Pen", reloaded.Name)
		assert.Equal(t, 12, reloaded.Stock)
	})

	t.Run("update of missing product fails", func(t *testing.T) {
		err := repo.Update(ctx, &catalog.Product{ID: 999, Name: "Ghost"})
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})

	t.Run("deletes a product", func(t *testing.T) {
		tmp := seedProduct(t, db, "Eraser", "10", 1)
		require.NoError(t, repo.Delete(ctx, tmp.ID))
		assert.ErrorIs(t, repo.Delete(ctx, tmp.ID), catalog.ErrProductNotFound)
	})
}

func TestGormProductRepository_CreateBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	t.Run("inserts every product and assigns ids", func(t *testing.T) {
		a, err := catalog.NewProduct(catalog.ProductDetails{Name: "Ruler", Price: decimal.NewFromInt(30), Stock: 4})
		require.NoError(t, err)
		b, err := catalog.NewProduct(catalog.ProductDetails{Name: "Glue", Price: decimal.NewFromInt(80), Stock: 9})
		require.NoError(t, err)

		require.NoError(t, repo.CreateBatch(ctx, []*catalog.Product{a, b}))
		assert.NotZero(t, a.ID)
		assert.NotZero(t, b.ID)
		assert.NotEqual(t, a.ID, b.ID)

		got, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Glue", got.Name)
		assert.Equal(t, 9, got.Stock)
	})

	t.Run("accepts an empty batch", func(t *testing.T) {
		assert.NoError(t, repo.CreateBatch(ctx, nil))
	})
}

func TestGormProductRepository_IncrementStock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, "Stapler", "300", 2)

	t.Run("adds to stock", func(t *testing.T) {
		got, err := repo.IncrementStock(ctx, p.ID, 5)
		require.NoError(t, err)
		assert.Equal(t, 7, got.Stock)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := repo.IncrementStock(ctx, p.ID, 0)
		assert.ErrorIs(t, err, catalog.ErrInvalidRestock)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := repo.IncrementStock(ctx, 999, 1)
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})

	t.Run("concurrent restocks never lose updates", func(t *testing.T) {
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.IncrementStock(ctx, p.ID, 1)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 17, got.Stock)
	})
}
