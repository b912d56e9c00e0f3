package printing

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ReceiptDateLayout is how sale timestamps appear on receipts
const ReceiptDateLayout = "02 Jan 2006 15:04"

// FormatMoney renders an amount as "<symbol> 1,234.56". Digits are grouped
// on the exact decimal string.
func FormatMoney(symbol string, amount decimal.Decimal) string {
	formatted := groupThousands(amount.StringFixed(2))
	if symbol == "" {
		return formatted
	}
	return symbol + " " + formatted
}

func groupThousands(fixed string) string {
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// FormatQuantity renders a unit count
func FormatQuantity(qty int) string {
	return strconv.Itoa(qty)
}

// FormatDate renders t in loc using ReceiptDateLayout
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(ReceiptDateLayout)
}

// UpperLabel upper-cases a label such as a payment method
func UpperLabel(s string) string {
	return cases.Upper(language.English).String(s)
}
