package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a meter is required but missing
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LowStockCounter reports how many products sit at or below their reorder threshold
type LowStockCounter interface {
	CountLowStock(ctx context.Context) (int64, error)
}

// SaleMetrics records what the till does: committed and rejected sales,
// revenue, commit latency, receipt rendering and delivery outcomes, and
// the low stock count.
type SaleMetrics struct {
	logger *zap.Logger

	salesCommitted  *Counter
	salesRejected   *Counter
	revenueCents    *Counter
	itemsSold       *Counter
	commitDuration  *Histogram
	renderDuration  *Histogram
	receiptOutcomes *Counter
	lowStock        metric.Int64Gauge

	lowStockSource LowStockCounter
	stopChan       chan struct{}
	stopOnce       sync.Once
	collectOnce    sync.Once
}

// NewSaleMetrics creates the sale instruments on meter
func NewSaleMetrics(meter metric.Meter, lowStock LowStockCounter, logger *zap.Logger) (*SaleMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &SaleMetrics{logger: logger, lowStockSource: lowStock, stopChan: make(chan struct{})}

	var err error
	if m.salesCommitted, err = NewCounter(meter, "pos_sales_committed_total", "Sales committed to the ledger", "{sales}"); err != nil {
		return nil, err
	}
	if m.salesRejected, err = NewCounter(meter, "pos_sales_rejected_total", "Sale attempts rejected before or during commit", "{sales}"); err != nil {
		return nil, err
	}
	if m.revenueCents, err = NewCounter(meter, "pos_sales_revenue_cents_total", "Revenue of committed sales in cents", "{cents}"); err != nil {
		return nil, err
	}
	if m.itemsSold, err = NewCounter(meter, "pos_items_sold_total", "Units sold", "{units}"); err != nil {
		return nil, err
	}
	if m.commitDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "pos_sale_commit_duration_seconds",
		Description: "Time from request to committed sale, including the mobile money wait",
		Unit:        "s",
		Boundaries:  CommitDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.renderDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "pos_receipt_render_duration_seconds",
		Description: "Receipt rendering and PDF conversion time",
		Unit:        "s",
		Boundaries:  RenderDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.receiptOutcomes, err = NewCounter(meter, "pos_receipt_deliveries_total", "Receipt delivery attempts by method and status", "{deliveries}"); err != nil {
		return nil, err
	}
	if m.lowStock, err = meter.Int64Gauge("pos_products_low_stock",
		metric.WithDescription("Products at or below their reorder threshold"),
		metric.WithUnit("{products}"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordSaleCommitted records a committed sale
func (m *SaleMetrics) RecordSaleCommitted(ctx context.Context, paymentMethod string, total decimal.Decimal, units int, elapsed time.Duration) {
	attr := AttrPaymentMethod.String(paymentMethod)
	m.salesCommitted.Inc(ctx, attr)
	m.revenueCents.Add(ctx, total.Shift(2).IntPart(), attr)
	m.itemsSold.Add(ctx, int64(units), attr)
	m.commitDuration.RecordDuration(ctx, elapsed, attr, AttrOutcome.String("committed"))
}

// RecordSaleRejected records a sale attempt that failed with code
func (m *SaleMetrics) RecordSaleRejected(ctx context.Context, paymentMethod, code string, elapsed time.Duration) {
	m.salesRejected.Inc(ctx, AttrPaymentMethod.String(paymentMethod), AttrErrorCode.String(code))
	m.commitDuration.RecordDuration(ctx, elapsed, AttrPaymentMethod.String(paymentMethod), AttrOutcome.String("rejected"))
}

// RecordReceiptRendered records how long rendering a receipt took
func (m *SaleMetrics) RecordReceiptRendered(ctx context.Context, format string, elapsed time.Duration) {
	m.renderDuration.RecordDuration(ctx, elapsed, AttrOutcome.String(format))
}

// RecordReceiptDelivery records one delivery attempt
func (m *SaleMetrics) RecordReceiptDelivery(ctx context.Context, method, status string) {
	m.receiptOutcomes.Inc(ctx, AttrReceiptMethod.String(method), AttrDeliveryStatus.String(status))
}

// RecordLowStock records the current low stock count
func (m *SaleMetrics) RecordLowStock(ctx context.Context, count int64) {
	m.lowStock.Record(ctx, count)
}

// StartPeriodicCollection samples the low stock count every interval
// (default 5 minutes) until Stop or ctx is done. It is non-blocking.
func (m *SaleMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if m.lowStockSource == nil {
		return
	}
	m.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go m.runPeriodicCollection(ctx, interval)
	})
}

func (m *SaleMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.collectLowStock(ctx)
	for {
		select {
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectLowStock(ctx)
		}
	}
}

func (m *SaleMetrics) collectLowStock(ctx context.Context) {
	count, err := m.lowStockSource.CountLowStock(ctx)
	if err != nil {
		m.logger.Warn("Failed to count low stock products", zap.Error(err))
		return
	}
	m.RecordLowStock(ctx, count)
}

// Stop stops the periodic collection.
func (m *SaleMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}
