package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/domain/shared"
)

func appendSale(t *testing.T, db *gorm.DB, contact string, total string, at time.Time) *sales.Sale {
	t.Helper()

	amount := decimal.RequireFromString(total)
	sale, err := sales.NewSale([]sales.SaleItem{{
		ProductID: 1,
		Name:      "Pen",
		UnitPrice: amount,
		Quantity:  1,
		LineTotal: amount,
	}}, sales.Draft{
		PaymentMethod:   sales.PaymentMobileMoney,
		CustomerContact: contact,
		Cashier:         "Welt Admin",
	}, at)
	require.NoError(t, err)

	require.NoError(t, NewGormUnitOfWork(db).Commit(context.Background(),
		func(ctx context.Context, _ sales.Inventory, ledger sales.Ledger) error {
			return ledger.Append(ctx, sale)
		}))
	return sale
}

func TestGormSaleRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSaleRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	first := appendSale(t, db, "amina@example.com", "100", day)
	appendSale(t, db, "amina@example.com", "50.50", day.Add(time.Hour))
	appendSale(t, db, "0712345678", "20", day.Add(2*time.Hour))
	appendSale(t, db, "", "10", day.AddDate(0, 0, 1))

	t.Run("finds by id with frozen items", func(t *testing.T) {
		got, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, sales.PaymentMobileMoney, got.PaymentMethod)
		assert.Nil(t, got.AmountTendered)
		assert.True(t, got.Change.IsZero())
		require.Len(t, got.Items, 1)
		assert.Equal(t, "Pen", got.Items[0].Name)
		assert.True(t, day.Equal(got.CreatedAt))
	})

	t.Run("missing sale", func(t *testing.T) {
		_, err := repo.FindByID(ctx, 999)
		assert.ErrorIs(t, err, sales.ErrSaleNotFound)
	})

	t.Run("lists newest first with total count", func(t *testing.T) {
		list, total, err := repo.List(ctx, sales.SaleFilter{Filter: shared.Filter{Page: 1, PageSize: 2}})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, list, 2)
		assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))
	})

	t.Run("filters by date range and contact", func(t *testing.T) {
		from := day
		to := day.AddDate(0, 0, 1)
		list, total, err := repo.List(ctx, sales.SaleFilter{
			Filter: shared.Filter{Search: "amina"},
			From:   &from,
			To:     &to,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, list, 2)
	})

	t.Run("lists between bounds oldest first", func(t *testing.T) {
		list, err := repo.ListBetween(ctx, day, day.AddDate(0, 0, 1))
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, first.ID, list[0].ID)
	})

	t.Run("repeat customers", func(t *testing.T) {
		stats, err := repo.RepeatCustomers(ctx)
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, "amina@example.com", stats[0].Contact)
		assert.Equal(t, 2, stats[0].TransactionCount)
		assert.Equal(t, "150.50", stats[0].LifetimeValue.StringFixed(2))
	})

	t.Run("distinct contacts", func(t *testing.T) {
		contacts, err := repo.CustomerContacts(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"0712345678", "amina@example.com"}, contacts)
	})
}
