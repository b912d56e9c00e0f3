package printing

import (
	"errors"
	stdhtml "html"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/infrastructure/config"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testRenderer(t *testing.T) *ReceiptRenderer {
	t.Helper()
	opts, err := OptionsFromConfig(config.ReceiptConfig{
		IssuerName:     "WELT TALLIS GROUP",
		Tagline:        "Where Creativity Meets Innovation",
		Address:        "Nairobi, Kenya",
		Email:          "infowelttallis@gmail.com",
		Phone:          "+254740045355",
		Website:        "www.welt-tallis-group.co.ke",
		CurrencySymbol: "Ksh",
		DefaultCashier: "Welt Admin",
		Timezone:       "Africa/Nairobi",
	})
	require.NoError(t, err)
	r, err := NewReceiptRenderer(opts)
	require.NoError(t, err)
	return r
}

func cashSale() *sales.Sale {
	tendered := dec("1500")
	return &sales.Sale{
		ID: 42,
		Items: []sales.SaleItem{
			{ProductID: 1, Name: "Notebook", UnitPrice: dec("50"), Quantity: 2, LineTotal: dec("100")},
			{ProductID: 7, Name: "Desk Lamp", UnitPrice: dec("1234.56"), Quantity: 1, LineTotal: dec("1234.56")},
		},
		Total:          dec("1334.56"),
		PaymentMethod:  sales.PaymentCash,
		AmountTendered: &tendered,
		Change:         dec("165.44"),
		CreatedAt:      time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func renderString(t *testing.T, r *ReceiptRenderer, sale *sales.Sale) string {
	t.Helper()
	out, err := r.Render(sale)
	require.NoError(t, err)
	return string(out)
}

func TestReceiptRenderer_Render(t *testing.T) {
	r := testRenderer(t)

	t.Run("should be deterministic", func(t *testing.T) {
		first, err := r.Render(cashSale())
		require.NoError(t, err)
		second, err := r.Render(cashSale())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("should lay out sections in order", func(t *testing.T) {
		html := stdhtml.UnescapeString(renderString(t, r, cashSale()))

		markers := []string{
			"WELT TALLIS GROUP",
			"Where Creativity Meets Innovation",
			"Nairobi, Kenya",
			"Tel: +254740045355",
			"Receipt No:",
			"Cashier:",
			"Payment Method:",
			"Notebook",
			"Desk Lamp",
			"TOTAL:",
			"Tendered:",
			"Change:",
			"SCAN QR CODE FOR DIGITAL RECEIPT",
			"Thank you",
		}
		last := -1
		for _, m := range markers {
			idx := strings.Index(html, m)
			require.GreaterOrEqual(t, idx, 0, "missing %q", m)
			assert.Greater(t, idx, last, "%q out of order", m)
			last = idx
		}
	})

	t.Run("should format money and metadata", func(t *testing.T) {
		html := renderString(t, r, cashSale())

		assert.Contains(t, html, "Ksh 1,234.56")
		assert.Contains(t, html, "Ksh 1,334.56")
		assert.Contains(t, html, "Ksh 1,500.00")
		assert.Contains(t, html, "Ksh 165.44")
		assert.Contains(t, html, "14 Mar 2026 12:30")
		assert.Contains(t, html, "Welt Admin")
		assert.Contains(t, html, "CASH")
		assert.Contains(t, html, "Valid until 2027")
	})

	t.Run("should escape the issuer phone", func(t *testing.T) {
		html := renderString(t, r, cashSale())
		assert.Contains(t, html, "Tel: &#43;254740045355")
	})

	t.Run("should embed QR and barcode images", func(t *testing.T) {
		html := renderString(t, r, cashSale())
		assert.Equal(t, 2, strings.Count(html, `src="data:image/png;base64,`))
	})

	t.Run("should omit tender lines for mobile money", func(t *testing.T) {
		sale := cashSale()
		sale.PaymentMethod = sales.PaymentMobileMoney
		sale.AmountTendered = nil
		sale.Change = decimal.Zero
		sale.PaymentReference = "MM-TOKEN-1"
		sale.Cashier = "jane"

		html := renderString(t, r, sale)
		assert.NotContains(t, html, "Tendered:")
		assert.Contains(t, html, "MOBILE-MONEY")
		assert.Contains(t, html, "MM-TOKEN-1")
		assert.Contains(t, html, "jane")
	})

	t.Run("should escape item names", func(t *testing.T) {
		sale := cashSale()
		sale.Items[0].Name = "<script>x</script>"

		html := renderString(t, r, sale)
		assert.NotContains(t, html, "<script>x</script>")
		assert.Contains(t, html, "&lt;script&gt;")
	})

	t.Run("should render large carts", func(t *testing.T) {
		sale := cashSale()
		sale.Items = nil
		for i := range 120 {
			sale.Items = append(sale.Items, sales.SaleItem{
				ProductID: int64(i + 1),
				Name:      strings.Repeat("Long product name ", 3),
				UnitPrice: dec("10"),
				Quantity:  1,
				LineTotal: dec("10"),
			})
		}
		_, err := r.Render(sale)
		assert.NoError(t, err)
	})
}

func TestReceiptRenderer_RejectsIncompleteSales(t *testing.T) {
	r := testRenderer(t)

	cases := map[string]*sales.Sale{
		"nil sale":   nil,
		"missing id": {Items: cashSale().Items},
		"no items":   {ID: 3},
	}
	for name, sale := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := r.Render(sale)
			assert.Nil(t, out)

			var renderErr *RenderError
			require.True(t, errors.As(err, &renderErr))
			assert.Equal(t, ErrCodeInvalidSale, renderErr.Code)
		})
	}
}

func TestOptionsFromConfig_BadTimezone(t *testing.T) {
	_, err := OptionsFromConfig(config.ReceiptConfig{Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}
