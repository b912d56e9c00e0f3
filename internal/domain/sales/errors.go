package sales

import (
	"github.com/shopspring/decimal"

	"github.com/stocklink/pos/internal/domain/shared"
)

// TotalTolerance is the largest difference between a declared and a
// computed total that is still accepted
var TotalTolerance = decimal.RequireFromString("0.01")

// Sale errors. Parameterised errors are built by the helper functions below
// and still match these sentinels through errors.Is.
var (
	ErrEmptyCart                  = shared.NewDomainError("VALIDATION_FAILED", "Cart must contain at least one item")
	ErrInvalidLine                = shared.NewDomainError("VALIDATION_FAILED", "Every cart line needs a product id and a positive quantity")
	ErrInvalidPaymentMethod       = shared.NewDomainError("VALIDATION_FAILED", "Payment method must be cash or mobile-money")
	ErrInvalidTender              = shared.NewDomainError("VALIDATION_FAILED", "Amount tendered cannot be negative")
	ErrInsufficientStock          = shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrTotalMismatch              = shared.NewDomainError("TOTAL_MISMATCH", "Declared total does not match computed total")
	ErrAmountTenderedInsufficient = shared.NewDomainError("AMOUNT_TENDERED_INSUFFICIENT", "Amount tendered is less than the sale total")
	ErrPaymentUnconfirmed         = shared.NewDomainError("PAYMENT_UNCONFIRMED", "Mobile money payment was not confirmed")
	ErrSaleNotFound               = shared.NewDomainError("SALE_NOT_FOUND", "Sale not found")
)

// InsufficientStock reports a shortfall on one product
func InsufficientStock(productID int64) error {
	return shared.NewDomainErrorf("INSUFFICIENT_STOCK", "Insufficient stock for product %d", productID).
		WithDetail("productId", productID)
}

// TotalMismatch reports the server-computed total against the declared one
func TotalMismatch(expected, actual decimal.Decimal) error {
	return shared.NewDomainErrorf("TOTAL_MISMATCH", "Total mismatch: expected %s, got %s",
		expected.StringFixed(2), actual.StringFixed(2)).
		WithDetail("expected", expected.StringFixed(2)).
		WithDetail("actual", actual.StringFixed(2))
}

// AmountTenderedInsufficient reports a cash tender below the total
func AmountTenderedInsufficient(total, tendered decimal.Decimal) error {
	return ErrAmountTenderedInsufficient.
		WithDetail("total", total.StringFixed(2)).
		WithDetail("amountTendered", tendered.StringFixed(2))
}

// PaymentUnconfirmed reports a mobile money leg that did not confirm
func PaymentUnconfirmed(reason string) *shared.DomainError {
	return ErrPaymentUnconfirmed.WithDetail("reason", reason)
}
