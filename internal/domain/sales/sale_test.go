package sales

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/domain/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestParsePaymentMethod(t *testing.T) {
	for in, want := range map[string]PaymentMethod{
		"cash":         PaymentCash,
		" CASH ":       PaymentCash,
		"mobile-money": PaymentMobileMoney,
		"mpesa":        PaymentMobileMoney,
		"M-Pesa":       PaymentMobileMoney,
	} {
		got, err := ParsePaymentMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePaymentMethod("card")
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestNormalizeCart(t *testing.T) {
	t.Run("should reject an empty cart", func(t *testing.T) {
		_, err := NormalizeCart(nil)
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("should reject zero and negative quantities", func(t *testing.T) {
		_, err := NormalizeCart([]CartLine{{ProductID: 1, Quantity: 0}})
		assert.ErrorIs(t, err, ErrInvalidLine)

		_, err = NormalizeCart([]CartLine{{ProductID: 1, Quantity: -2}})
		assert.ErrorIs(t, err, ErrInvalidLine)
	})

	t.Run("should reject merged lines that overflow the quantity", func(t *testing.T) {
		_, err := NormalizeCart([]CartLine{
			{ProductID: 1, Quantity: math.MaxInt},
			{ProductID: 1, Quantity: math.MaxInt},
		})
		assert.ErrorIs(t, err, ErrInvalidLine)

		_, err = NormalizeCart([]CartLine{
			{ProductID: 1, Quantity: math.MaxInt},
			{ProductID: 1, Quantity: 1},
		})
		assert.ErrorIs(t, err, ErrInvalidLine)
	})

	t.Run("should reject a missing product id", func(t *testing.T) {
		_, err := NormalizeCart([]CartLine{{ProductID: 0, Quantity: 1}})
		assert.ErrorIs(t, err, ErrInvalidLine)
	})

	t.Run("should merge repeated products in first-seen order", func(t *testing.T) {
		lines, err := NormalizeCart([]CartLine{
			{ProductID: 3, Quantity: 1},
			{ProductID: 1, Quantity: 2},
			{ProductID: 3, Quantity: 4},
		})
		require.NoError(t, err)
		assert.Equal(t, []CartLine{{ProductID: 3, Quantity: 5}, {ProductID: 1, Quantity: 2}}, lines)
	})
}

func TestPriceCart(t *testing.T) {
	products := map[int64]*catalog.Product{
		1: {ID: 1, Name: "Notebook", Price: dec("50.00")},
		2: {ID: 2, Name: "Pen", Price: dec("12.50")},
	}

	t.Run("should compute line totals and cart total", func(t *testing.T) {
		items, total, err := PriceCart([]CartLine{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 3}}, products)
		require.NoError(t, err)
		require.Len(t, items, 2)

		assert.Equal(t, "Notebook", items[0].Name)
		assert.Equal(t, "100.00", items[0].LineTotal.StringFixed(2))
		assert.Equal(t, "37.50", items[1].LineTotal.StringFixed(2))
		assert.Equal(t, "137.50", total.StringFixed(2))
	})

	t.Run("should report the missing product id", func(t *testing.T) {
		_, _, err := PriceCart([]CartLine{{ProductID: 9, Quantity: 1}}, products)
		require.ErrorIs(t, err, catalog.ErrProductNotFound)

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, int64(9), de.Details["productId"])
	})
}

func TestCheckDeclaredTotal(t *testing.T) {
	computed := dec("100.00")

	assert.NoError(t, CheckDeclaredTotal(computed, nil))
	assert.NoError(t, CheckDeclaredTotal(computed, decPtr("100.00")))
	assert.NoError(t, CheckDeclaredTotal(computed, decPtr("100.01")))
	assert.NoError(t, CheckDeclaredTotal(computed, decPtr("99.99")))

	err := CheckDeclaredTotal(computed, decPtr("99.98"))
	require.ErrorIs(t, err, ErrTotalMismatch)

	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "100.00", de.Details["expected"])
	assert.Equal(t, "99.98", de.Details["actual"])
}

func TestComputeChange(t *testing.T) {
	t.Run("should return change for cash", func(t *testing.T) {
		change, err := ComputeChange(PaymentCash, dec("100.00"), decPtr("150.00"))
		require.NoError(t, err)
		assert.Equal(t, "50.00", change.StringFixed(2))
	})

	t.Run("should round change to cents", func(t *testing.T) {
		change, err := ComputeChange(PaymentCash, dec("10.333"), decPtr("20"))
		require.NoError(t, err)
		assert.Equal(t, "9.67", change.String())
	})

	t.Run("should reject an insufficient tender", func(t *testing.T) {
		_, err := ComputeChange(PaymentCash, dec("100.00"), decPtr("80.00"))
		assert.ErrorIs(t, err, ErrAmountTenderedInsufficient)
	})

	t.Run("should give no change without a tender or for mobile money", func(t *testing.T) {
		change, err := ComputeChange(PaymentCash, dec("100.00"), nil)
		require.NoError(t, err)
		assert.True(t, change.IsZero())

		change, err = ComputeChange(PaymentMobileMoney, dec("100.00"), decPtr("500"))
		require.NoError(t, err)
		assert.True(t, change.IsZero())
	})
}

func TestNewSale(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 30, 0, 0, time.FixedZone("EAT", 3*3600))
	items := []SaleItem{
		{ProductID: 1, Name: "Notebook", UnitPrice: dec("50.00"), Quantity: 2, LineTotal: dec("100.00")},
	}

	t.Run("should build a cash sale with change", func(t *testing.T) {
		sale, err := NewSale(items, Draft{
			PaymentMethod:   PaymentCash,
			CustomerContact: " buyer@example.com ",
			AmountTendered:  decPtr("150"),
			Cashier:         "amina",
		}, now)
		require.NoError(t, err)

		assert.Equal(t, "100.00", sale.Total.StringFixed(2))
		assert.Equal(t, "50.00", sale.Change.StringFixed(2))
		assert.Equal(t, "buyer@example.com", sale.CustomerContact)
		assert.Equal(t, time.UTC, sale.CreatedAt.Location())
		assert.Equal(t, 2, sale.ItemCount())
	})

	t.Run("should drop the tender for mobile money", func(t *testing.T) {
		sale, err := NewSale(items, Draft{PaymentMethod: PaymentMobileMoney, AmountTendered: decPtr("10")}, now)
		require.NoError(t, err)
		assert.Nil(t, sale.AmountTendered)
		assert.True(t, sale.Change.IsZero())
	})

	t.Run("should copy items so later edits do not leak in", func(t *testing.T) {
		src := append([]SaleItem(nil), items...)
		sale, err := NewSale(src, Draft{PaymentMethod: PaymentCash}, now)
		require.NoError(t, err)

		src[0].UnitPrice = dec("75.00")
		assert.Equal(t, "50.00", sale.Items[0].UnitPrice.StringFixed(2))
	})

	t.Run("should reject insufficient cash", func(t *testing.T) {
		_, err := NewSale(items, Draft{PaymentMethod: PaymentCash, AmountTendered: decPtr("80")}, now)
		assert.ErrorIs(t, err, ErrAmountTenderedInsufficient)
	})
}

func TestNewSaleCommittedEvent(t *testing.T) {
	e := NewSaleCommittedEvent(&Sale{ID: 17}, "email", "a@b.co")

	assert.Equal(t, EventTypeSaleCommitted, e.EventType())
	assert.Equal(t, "17", e.AggregateID())
	assert.Equal(t, int64(17), e.SaleID)
	assert.NotEqual(t, [16]byte{}, [16]byte(e.EventID()))
}

func TestLockOrder(t *testing.T) {
	lines := []CartLine{{ProductID: 9, Quantity: 1}, {ProductID: 2, Quantity: 3}, {ProductID: 5, Quantity: 2}}

	got := LockOrder(lines)

	assert.Equal(t, []CartLine{{ProductID: 2, Quantity: 3}, {ProductID: 5, Quantity: 2}, {ProductID: 9, Quantity: 1}}, got)
	assert.Equal(t, int64(9), lines[0].ProductID, "input keeps cart order")
}

func TestPaymentUnconfirmed(t *testing.T) {
	t.Run("should chain further details onto the reason", func(t *testing.T) {
		err := PaymentUnconfirmed("timeout").WithDetail("paymentReference", "ws_CO_1")

		assert.ErrorIs(t, err, ErrPaymentUnconfirmed)
		assert.Equal(t, "timeout", err.Details["reason"])
		assert.Equal(t, "ws_CO_1", err.Details["paymentReference"])
		assert.Nil(t, ErrPaymentUnconfirmed.Details)
	})
}
