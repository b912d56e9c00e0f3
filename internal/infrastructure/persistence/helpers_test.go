package persistence

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/stocklink/pos/internal/domain/catalog"
)

// setupTestDB opens a private in-memory database. One connection keeps the
// schema alive and serialises transactions the way the sqlite file does.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *catalog.Product {
	t.Helper()

	p, err := catalog.NewProduct(catalog.ProductDetails{
		Name:      name,
		Category:  "stationery",
		Price:     decimal.RequireFromString(price),
		CostPrice: decimal.Zero,
		Stock:     stock,
	})
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db).Create(context.Background(), p))
	return p
}
