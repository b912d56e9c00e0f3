package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocklink/pos/internal/domain/shared"
)

// Discount is a time-boxed percentage off a product's price
type Discount struct {
	ID        int64
	ProductID int64
	Percent   decimal.Decimal
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

var hundred = decimal.NewFromInt(100)

// NewDiscount validates and creates a discount
func NewDiscount(productID int64, percent decimal.Decimal, start, end time.Time) (*Discount, error) {
	if productID <= 0 {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Discount requires a product")
	}
	if percent.LessThanOrEqual(decimal.Zero) || percent.GreaterThan(hundred) {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Discount percent must be in (0, 100]")
	}
	if end.Before(start) {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Discount end date is before its start date")
	}
	return &Discount{
		ProductID: productID,
		Percent:   percent,
		StartDate: start,
		EndDate:   end,
		CreatedAt: time.Now(),
	}, nil
}

// ActiveOn reports whether the discount applies on the given day.
// Both bounds are inclusive at day granularity.
func (d *Discount) ActiveOn(day time.Time) bool {
	y, m, dd := day.Date()
	start := time.Date(d.StartDate.Year(), d.StartDate.Month(), d.StartDate.Day(), 0, 0, 0, 0, day.Location())
	end := time.Date(d.EndDate.Year(), d.EndDate.Month(), d.EndDate.Day(), 0, 0, 0, 0, day.Location())
	today := time.Date(y, m, dd, 0, 0, 0, 0, day.Location())
	return !today.Before(start) && !today.After(end)
}

// Apply returns the discounted price, rounded to cents
func (d *Discount) Apply(price decimal.Decimal) decimal.Decimal {
	factor := hundred.Sub(d.Percent).Div(hundred)
	return price.Mul(factor).Round(2)
}
