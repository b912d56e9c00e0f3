package sales

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocklink/pos/internal/domain/catalog"
)

// PaymentMethod is how a sale was paid
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentMobileMoney PaymentMethod = "mobile-money"
)

// ParsePaymentMethod accepts the canonical names plus the aliases the
// till front-end sends
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cash":
		return PaymentCash, nil
	case "mobile-money", "mobile_money", "mobilemoney", "mpesa", "m-pesa":
		return PaymentMobileMoney, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// CartLine is one requested line of a checkout
type CartLine struct {
	ProductID int64
	Quantity  int
}

// SaleItem is the frozen snapshot of a product at the moment of sale
type SaleItem struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
}

// Sale is a committed checkout. It is never mutated after creation.
type Sale struct {
	ID               int64
	Items            []SaleItem
	Total            decimal.Decimal
	PaymentMethod    PaymentMethod
	CustomerContact  string
	AmountTendered   *decimal.Decimal
	Change           decimal.Decimal
	PaymentReference string
	Cashier          string
	CreatedAt        time.Time
}

// NormalizeCart validates cart lines and merges repeated products,
// keeping the position of each product's first line
func NormalizeCart(lines []CartLine) ([]CartLine, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	index := make(map[int64]int, len(lines))
	out := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		if l.ProductID <= 0 || l.Quantity <= 0 {
			return nil, ErrInvalidLine
		}
		if i, ok := index[l.ProductID]; ok {
			if l.Quantity > math.MaxInt-out[i].Quantity {
				return nil, ErrInvalidLine
			}
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

// LockOrder returns a copy of the lines sorted by product id. Stock rows are
// updated in this order so concurrent carts lock them consistently.
func LockOrder(lines []CartLine) []CartLine {
	out := make([]CartLine, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// PriceCart snapshots every line against the given products and returns
// the items with the cart total
func PriceCart(lines []CartLine, products map[int64]*catalog.Product) ([]SaleItem, decimal.Decimal, error) {
	items := make([]SaleItem, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok || p == nil {
			return nil, decimal.Zero, catalog.ProductNotFound(l.ProductID)
		}
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		items = append(items, SaleItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  l.Quantity,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return items, total.Round(2), nil
}

// CheckDeclaredTotal rejects a client total that is off by more than
// TotalTolerance. A nil declared total is not checked.
func CheckDeclaredTotal(computed decimal.Decimal, declared *decimal.Decimal) error {
	if declared == nil {
		return nil
	}
	if computed.Sub(*declared).Abs().GreaterThan(TotalTolerance) {
		return TotalMismatch(computed, *declared)
	}
	return nil
}

// ComputeChange returns the change due for a payment. Only cash with a
// tender produces change; a tender below the total is rejected.
func ComputeChange(method PaymentMethod, total decimal.Decimal, tendered *decimal.Decimal) (decimal.Decimal, error) {
	if tendered == nil || method != PaymentCash {
		return decimal.Zero, nil
	}
	if tendered.IsNegative() {
		return decimal.Zero, ErrInvalidTender
	}
	if tendered.LessThan(total) {
		return decimal.Zero, AmountTenderedInsufficient(total, *tendered)
	}
	return tendered.Sub(total).Round(2), nil
}

// Draft holds everything needed to create a sale except the priced items
type Draft struct {
	PaymentMethod    PaymentMethod
	CustomerContact  string
	AmountTendered   *decimal.Decimal
	PaymentReference string
	Cashier          string
}

// NewSale builds an uncommitted sale from priced items
func NewSale(items []SaleItem, d Draft, now time.Time) (*Sale, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	total = total.Round(2)

	change, err := ComputeChange(d.PaymentMethod, total, d.AmountTendered)
	if err != nil {
		return nil, err
	}

	tendered := d.AmountTendered
	if d.PaymentMethod != PaymentCash {
		tendered = nil
	}

	frozen := make([]SaleItem, len(items))
	copy(frozen, items)

	return &Sale{
		Items:            frozen,
		Total:            total,
		PaymentMethod:    d.PaymentMethod,
		CustomerContact:  strings.TrimSpace(d.CustomerContact),
		AmountTendered:   tendered,
		Change:           change,
		PaymentReference: d.PaymentReference,
		Cashier:          d.Cashier,
		CreatedAt:        now.UTC(),
	}, nil
}

// ItemCount returns the number of units sold
func (s *Sale) ItemCount() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}
