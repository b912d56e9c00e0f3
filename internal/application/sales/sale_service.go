// Package sales coordinates the checkout of a cart into a committed sale:
// validation, quoting, the mobile money gate, the atomic stock and ledger
// commit, and the post-commit handoff to receipt work.
package sales

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/catalog"
	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/domain/payment"
	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/domain/shared"
	"github.com/stocklink/pos/internal/infrastructure/logger"
	"github.com/stocklink/pos/internal/infrastructure/telemetry"
)

var validate = validator.New()

// Checkout errors
var (
	ErrInvalidContact   = shared.NewDomainError("VALIDATION_FAILED", "Customer contact must be a valid email address")
	ErrPhoneRequired    = shared.NewDomainError("VALIDATION_FAILED", "Mobile money needs a phone number or a payment reference")
	ErrReceiptsDisabled = shared.NewDomainError("DELIVERY_UNAVAILABLE", "Receipt rendering is not configured")
)

// Receipt outcome reasons
var (
	ErrNoReceiptContact  = errors.New("no customer contact for an email receipt")
	ErrReceiptQueueUnset = errors.New("receipt queue is not configured")
)

// Receipts renders and redelivers receipts of stored sales
type Receipts interface {
	Document(ctx context.Context, sale *sales.Sale, format string) (*notification.Document, error)
	Redeliver(ctx context.Context, saleID int64, method notification.Method, destination string) (*notification.Delivery, error)
}

// Config tunes the mobile money wait
type Config struct {
	PollInterval        time.Duration
	ConfirmationTimeout time.Duration
}

// SaleService commits carts into sales
type SaleService struct {
	products   catalog.ProductRepository
	sales      sales.Repository
	uow        sales.UnitOfWork
	cache      catalog.ProductListCache
	publisher  shared.EventPublisher
	payments   payment.MobileMoneyCollaborator
	receipts   Receipts
	deliveries notification.DeliveryRepository
	cfg        Config
	logger     *zap.Logger
	metrics    *telemetry.SaleMetrics
	now        func() time.Time
}

// NewSaleService creates a SaleService
func NewSaleService(
	products catalog.ProductRepository,
	saleRepo sales.Repository,
	uow sales.UnitOfWork,
	cache catalog.ProductListCache,
	cfg Config,
	logger *zap.Logger,
) *SaleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = 90 * time.Second
	}
	return &SaleService{
		products: products,
		sales:    saleRepo,
		uow:      uow,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// SetEventPublisher sets the publisher that receives SaleCommitted
func (s *SaleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetPaymentCollaborator sets the mobile money collaborator. Without one
// every mobile money sale is rejected as unconfirmed.
func (s *SaleService) SetPaymentCollaborator(c payment.MobileMoneyCollaborator) {
	s.payments = c
}

// SetReceipts wires receipt rendering and the delivery ledger
func (s *SaleService) SetReceipts(receipts Receipts, deliveries notification.DeliveryRepository) {
	s.receipts = receipts
	s.deliveries = deliveries
}

// SetMetrics sets the metrics recorder
func (s *SaleService) SetMetrics(m *telemetry.SaleMetrics) {
	s.metrics = m
}

type checkout struct {
	lines         []sales.CartLine
	method        sales.PaymentMethod
	contact       string
	receiptMethod notification.Method
	req           CommitSaleRequest
}

// CommitSale validates, prices and commits a cart. Stock decrements and the
// ledger row are written in one transaction; receipt work is queued after
// the commit and its problems are reported in the result, never as an error.
func (s *SaleService) CommitSale(ctx context.Context, req CommitSaleRequest) (*CommitSaleResult, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "sale", "commit",
		attribute.String("payment_method", req.PaymentMethod),
		attribute.Int("cart_lines", len(req.Items)),
	)
	defer span.End()

	result, err := s.commit(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		s.recordRejected(ctx, req.PaymentMethod, err, time.Since(start))
		logger.Enrich(ctx, s.logger).Info("Sale rejected",
			zap.String("payment_method", req.PaymentMethod),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("sale_id", result.Sale.ID))
	telemetry.SetOK(span)
	if s.metrics != nil {
		s.metrics.RecordSaleCommitted(ctx, string(result.Sale.PaymentMethod), result.Sale.Total, result.Sale.ItemCount(), time.Since(start))
	}
	logger.Enrich(ctx, s.logger).Info("Sale committed",
		zap.Int64("sale_id", result.Sale.ID),
		zap.String("total", result.Sale.Total.StringFixed(2)),
		zap.String("payment_method", string(result.Sale.PaymentMethod)),
		zap.String("receipt", string(result.Receipt.Status)),
	)
	return result, nil
}

func (s *SaleService) commit(ctx context.Context, req CommitSaleRequest) (*CommitSaleResult, error) {
	co, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	quoted, err := s.quote(ctx, co)
	if err != nil {
		return nil, err
	}

	reference := strings.TrimSpace(req.PaymentReference)
	if co.method == sales.PaymentMobileMoney {
		reference, err = s.confirmPayment(ctx, req, quoted)
		if err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	draft := sales.Draft{
		PaymentMethod:    co.method,
		CustomerContact:  co.contact,
		AmountTendered:   req.AmountTendered,
		PaymentReference: reference,
		Cashier:          req.Cashier,
	}
	ids := productIDs(co.lines)

	var sale *sales.Sale
	err = s.uow.Commit(context.WithoutCancel(ctx), func(ctx context.Context, inv sales.Inventory, ledger sales.Ledger) error {
		products, err := inv.GetProducts(ctx, ids)
		if err != nil {
			return err
		}
		items, total, err := sales.PriceCart(co.lines, products)
		if err != nil {
			return err
		}
		if !total.Equal(quoted) {
			return sales.TotalMismatch(total, quoted)
		}
		for _, l := range sales.LockOrder(co.lines) {
			if err := inv.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		sale, err = sales.NewSale(items, draft, s.now())
		if err != nil {
			return err
		}
		return ledger.Append(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	postCtx := context.WithoutCancel(ctx)
	if s.cache != nil {
		if err := s.cache.Invalidate(postCtx); err != nil {
			logger.Enrich(ctx, s.logger).Warn("Failed to invalidate product cache", zap.Error(err))
		}
	}

	return &CommitSaleResult{
		Sale:    sale,
		Change:  sale.Change,
		Receipt: s.queueReceipt(postCtx, sale, co.receiptMethod),
	}, nil
}

func (s *SaleService) prepare(req CommitSaleRequest) (*checkout, error) {
	raw := make([]sales.CartLine, len(req.Items))
	for i, it := range req.Items {
		raw[i] = sales.CartLine{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	lines, err := sales.NormalizeCart(raw)
	if err != nil {
		return nil, err
	}

	method, err := sales.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	contact := strings.TrimSpace(req.CustomerContact)
	if contact != "" && validate.Var(contact, "email") != nil {
		return nil, ErrInvalidContact.WithDetail("customerContact", contact)
	}

	if req.AmountTendered != nil && req.AmountTendered.IsNegative() {
		return nil, sales.ErrInvalidTender
	}

	if method == sales.PaymentMobileMoney &&
		strings.TrimSpace(req.PaymentReference) == "" &&
		strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, ErrPhoneRequired
	}

	receiptMethod, err := notification.ParseMethod(req.ReceiptMethod)
	if err != nil {
		return nil, err
	}

	return &checkout{
		lines:         lines,
		method:        method,
		contact:       contact,
		receiptMethod: receiptMethod,
		req:           req,
	}, nil
}

// quote prices the cart against current rows outside any transaction. The
// stock check here is advisory; the commit re-checks atomically.
func (s *SaleService) quote(ctx context.Context, co *checkout) (decimal.Decimal, error) {
	products, err := s.products.FindByIDs(ctx, productIDs(co.lines))
	if err != nil {
		return decimal.Zero, err
	}
	_, total, err := sales.PriceCart(co.lines, products)
	if err != nil {
		return decimal.Zero, err
	}
	if err := sales.CheckDeclaredTotal(total, co.req.Total); err != nil {
		return decimal.Zero, err
	}
	if _, err := sales.ComputeChange(co.method, total, co.req.AmountTendered); err != nil {
		return decimal.Zero, err
	}
	for _, l := range co.lines {
		if products[l.ProductID].Stock < l.Quantity {
			return decimal.Zero, sales.InsufficientStock(l.ProductID)
		}
	}
	return total, nil
}

// confirmPayment waits for the mobile money leg to confirm. No transaction
// is open while it runs.
func (s *SaleService) confirmPayment(ctx context.Context, req CommitSaleRequest, total decimal.Decimal) (string, error) {
	if s.payments == nil {
		return "", sales.PaymentUnconfirmed("mobile money is not configured")
	}

	token := strings.TrimSpace(req.PaymentReference)
	if token == "" {
		var err error
		token, err = s.payments.RequestConfirmation(ctx, strings.TrimSpace(req.PhoneNumber), total)
		if err != nil {
			return "", sales.PaymentUnconfirmed(err.Error())
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmationTimeout)
	defer cancel()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	log := logger.Enrich(ctx, s.logger).With(zap.String("payment_reference", token))
	for {
		c, err := s.payments.PollConfirmation(waitCtx, token)
		switch {
		case err != nil || c == nil:
			log.Debug("Payment poll failed", zap.Error(err))
		case c.Status == payment.StatusConfirmed:
			if !c.Amount.IsZero() && c.Amount.LessThan(total) {
				return "", sales.PaymentUnconfirmed("confirmed amount is below the sale total").
					WithDetail("paymentReference", token)
			}
			return token, nil
		case c.Status == payment.StatusFailed:
			reason := c.Reason
			if reason == "" {
				reason = "payment failed"
			}
			return "", sales.PaymentUnconfirmed(reason).WithDetail("paymentReference", token)
		}

		select {
		case <-waitCtx.Done():
			return "", sales.PaymentUnconfirmed("confirmation timed out").WithDetail("paymentReference", token)
		case <-ticker.C:
		}
	}
}

// queueReceipt hands the receipt to the worker queue. A queue problem is
// reported, the sale stays committed.
func (s *SaleService) queueReceipt(ctx context.Context, sale *sales.Sale, method notification.Method) ReceiptOutcome {
	destination := ""
	skipped := ReceiptOutcome{Status: ReceiptSkipped}
	if method == notification.MethodEmail {
		destination = sale.CustomerContact
		if destination == "" {
			method = notification.MethodNone
			skipped.Error = ErrNoReceiptContact.Error()
		}
	}

	if s.publisher == nil {
		if method == notification.MethodNone {
			return skipped
		}
		return ReceiptOutcome{Status: ReceiptFailed, Error: ErrReceiptQueueUnset.Error()}
	}

	event := sales.NewSaleCommittedEvent(sale, string(method), destination)
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Enrich(ctx, s.logger).Warn("Failed to queue receipt",
			zap.Int64("sale_id", sale.ID),
			zap.Error(err),
		)
		if method == notification.MethodNone {
			return skipped
		}
		return ReceiptOutcome{Status: ReceiptFailed, Error: err.Error()}
	}
	if method == notification.MethodNone {
		return skipped
	}
	return ReceiptOutcome{Status: ReceiptQueued}
}

func (s *SaleService) recordRejected(ctx context.Context, method string, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	code := "INTERNAL_ERROR"
	var de *shared.DomainError
	if errors.As(err, &de) {
		code = de.Code
	} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code = "CANCELLED"
	}
	s.metrics.RecordSaleRejected(ctx, method, code, elapsed)
}

// GetSale returns a committed sale
func (s *SaleService) GetSale(ctx context.Context, id int64) (*SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// ListSales returns a page of sales, newest first. To is inclusive of the
// whole day.
func (s *SaleService) ListSales(ctx context.Context, filter ListSalesFilter) ([]SaleResponse, int64, error) {
	f := sales.SaleFilter{Filter: shared.DefaultFilter(), From: filter.From}
	if filter.To != nil {
		end := filter.To.AddDate(0, 0, 1)
		f.To = &end
	}
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}

	rows, total, err := s.sales.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	out := make([]SaleResponse, len(rows))
	for i := range rows {
		out[i] = ToSaleResponse(&rows[i])
	}
	return out, total, nil
}

// RenderReceipt regenerates the receipt of a stored sale
func (s *SaleService) RenderReceipt(ctx context.Context, id int64, format string) (*notification.Document, error) {
	if s.receipts == nil {
		return nil, ErrReceiptsDisabled
	}
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.receipts.Document(ctx, sale, format)
}

// RedeliverReceipt sends the receipt of a stored sale again and returns the
// recorded delivery
func (s *SaleService) RedeliverReceipt(ctx context.Context, id int64, req RedeliverRequest) (*DeliveryResponse, error) {
	if s.receipts == nil {
		return nil, ErrReceiptsDisabled
	}
	method, err := notification.ParseMethod(req.Method)
	if err != nil {
		return nil, err
	}
	delivery, err := s.receipts.Redeliver(ctx, id, method, req.Destination)
	if err != nil {
		return nil, err
	}
	resp := ToDeliveryResponse(delivery)
	return &resp, nil
}

// ListDeliveries returns the delivery ledger of a sale
func (s *SaleService) ListDeliveries(ctx context.Context, id int64) ([]DeliveryResponse, error) {
	if s.deliveries == nil {
		return nil, ErrReceiptsDisabled
	}
	if _, err := s.sales.FindByID(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.deliveries.FindBySale(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]DeliveryResponse, len(rows))
	for i := range rows {
		out[i] = ToDeliveryResponse(&rows[i])
	}
	return out, nil
}

func productIDs(lines []sales.CartLine) []int64 {
	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	return ids
}
