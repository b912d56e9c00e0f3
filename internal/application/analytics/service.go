// Package analytics computes read-only rollups over the sale ledger.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/infrastructure/logger"
	"github.com/stocklink/pos/internal/infrastructure/telemetry"
)

// TopProductsLimit is the number of best sellers in a summary
const TopProductsLimit = 5

// TopProduct is a best seller of the day
type TopProduct struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"totalQuantity"`
	Revenue   decimal.Decimal `json:"totalRevenue"`
}

// PaymentMethodStat aggregates the day's sales by payment method
type PaymentMethodStat struct {
	Method  string          `json:"paymentMethod"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"totalRevenue"`
}

// RepeatCustomer is a contact with more than one sale
type RepeatCustomer struct {
	Contact          string          `json:"customerContact"`
	TransactionCount int             `json:"transactionCount"`
	LifetimeValue    decimal.Decimal `json:"lifetimeValue"`
}

// LowStockProduct is a product at or below its reorder threshold
type LowStockProduct struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Stock            int    `json:"stock"`
	ReorderThreshold int    `json:"reorderThreshold"`
}

// Summary is the dashboard rollup for one day
type Summary struct {
	Day               string              `json:"day"`
	TotalSales        decimal.Decimal     `json:"totalSales"`
	TransactionCount  int                 `json:"transactionCount"`
	TotalItemsSold    int                 `json:"totalItemsSold"`
	AverageSale       decimal.Decimal     `json:"averageSale"`
	TopProducts       []TopProduct        `json:"topProducts"`
	PaymentMethods    []PaymentMethodStat `json:"paymentMethods"`
	RepeatCustomers   []RepeatCustomer    `json:"repeatCustomers"`
	LowStockProducts  []LowStockProduct   `json:"lowStockProducts"`
	LowStockThreshold int                 `json:"defaultReorderThreshold"`
}

// Service builds analytics summaries
type Service struct {
	sales    sales.Repository
	products catalog.ProductRepository
	loc      *time.Location
	logger   *zap.Logger
}

// NewService creates a Service. Days are cut at midnight in loc.
func NewService(saleRepo sales.Repository, products catalog.ProductRepository, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sales: saleRepo, products: products, loc: loc, logger: logger}
}

// Summary rolls up the sales of the day containing day together with the
// all-time repeat customers and the current low stock list
func (s *Service) Summary(ctx context.Context, day time.Time) (*Summary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "analytics", "summary")
	defer span.End()

	local := day.In(s.loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 1)

	var (
		daily   []sales.Sale
		repeats []sales.CustomerStat
		low     []catalog.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		daily, err = s.sales.ListBetween(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		repeats, err = s.sales.RepeatCustomers(gctx)
		return err
	})
	g.Go(func() (err error) {
		low, err = s.products.FindBelowReorder(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	out := rollup(daily)
	out.Day = from.Format("2006-01-02")
	out.LowStockThreshold = catalog.DefaultReorderThreshold

	out.RepeatCustomers = make([]RepeatCustomer, 0, len(repeats))
	for _, r := range repeats {
		out.RepeatCustomers = append(out.RepeatCustomers, RepeatCustomer{
			Contact:          r.Contact,
			TransactionCount: r.TransactionCount,
			LifetimeValue:    r.LifetimeValue,
		})
	}

	out.LowStockProducts = make([]LowStockProduct, 0, len(low))
	for _, p := range low {
		out.LowStockProducts = append(out.LowStockProducts, LowStockProduct{
			ID:               p.ID,
			Name:             p.Name,
			Stock:            p.Stock,
			ReorderThreshold: p.ReorderThreshold,
		})
	}

	telemetry.SetOK(span)
	logger.Enrich(ctx, s.logger).Debug("Analytics summary computed",
		zap.String("day", out.Day),
		zap.Int("transactions", out.TransactionCount),
	)
	return out, nil
}

// rollup aggregates one day of sales. Top products break quantity ties by
// revenue and then by product id.
func rollup(daily []sales.Sale) *Summary {
	out := &Summary{
		TotalSales:     decimal.Zero,
		AverageSale:    decimal.Zero,
		TopProducts:    []TopProduct{},
		PaymentMethods: []PaymentMethodStat{},
	}

	products := make(map[int64]*TopProduct)
	methods := make(map[string]*PaymentMethodStat)
	for i := range daily {
		sale := &daily[i]
		out.TotalSales = out.TotalSales.Add(sale.Total)
		out.TransactionCount++
		out.TotalItemsSold += sale.ItemCount()

		m, ok := methods[string(sale.PaymentMethod)]
		if !ok {
			m = &PaymentMethodStat{Method: string(sale.PaymentMethod), Revenue: decimal.Zero}
			methods[m.Method] = m
		}
		m.Count++
		m.Revenue = m.Revenue.Add(sale.Total)

		for _, it := range sale.Items {
			tp, ok := products[it.ProductID]
			if !ok {
				tp = &TopProduct{ProductID: it.ProductID, Name: it.Name, Revenue: decimal.Zero}
				products[it.ProductID] = tp
			}
			tp.Quantity += it.Quantity
			tp.Revenue = tp.Revenue.Add(it.LineTotal)
		}
	}

	if out.TransactionCount > 0 {
		out.AverageSale = out.TotalSales.Div(decimal.NewFromInt(int64(out.TransactionCount))).Round(2)
	}

	for _, tp := range products {
		out.TopProducts = append(out.TopProducts, *tp)
	}
	sort.Slice(out.TopProducts, func(i, j int) bool {
		a, b := out.TopProducts[i], out.TopProducts[j]
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		if c := a.Revenue.Cmp(b.Revenue); c != 0 {
			return c > 0
		}
		return a.ProductID < b.ProductID
	})
	if len(out.TopProducts) > TopProductsLimit {
		out.TopProducts = out.TopProducts[:TopProductsLimit]
	}

	for _, m := range methods {
		out.PaymentMethods = append(out.PaymentMethods, *m)
	}
	sort.Slice(out.PaymentMethods, func(i, j int) bool {
		return out.PaymentMethods[i].Method < out.PaymentMethods[j].Method
	})
	return out
}
