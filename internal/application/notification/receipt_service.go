package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/domain/shared"
	"github.com/stocklink/pos/internal/infrastructure/logger"
	"github.com/stocklink/pos/internal/infrastructure/telemetry"
)

// Receipt formats accepted by Document
const (
	FormatHTML = "html"
	FormatPDF  = "pdf"
)

// Receipt service errors
var (
	ErrInvalidFormat  = shared.NewDomainError("VALIDATION_FAILED", "Receipt format must be html or pdf")
	ErrPDFUnavailable = shared.NewDomainError("DELIVERY_UNAVAILABLE", "PDF receipts are not enabled")
)

// ReceiptService renders receipts for committed sales, archives a copy and
// delivers them. It is also the queue handler for SaleCommitted.
type ReceiptService struct {
	sales      sales.Repository
	renderer   notification.ReceiptRenderer
	converter  notification.DocumentConverter
	archive    notification.ReceiptArchive
	dispatcher *Dispatcher
	logger     *zap.Logger
	metrics    *telemetry.SaleMetrics
}

var _ shared.EventHandler = (*ReceiptService)(nil)

// NewReceiptService creates a ReceiptService. converter and archive are
// optional: without a converter receipts are delivered as HTML, without an
// archive no copy is kept.
func NewReceiptService(
	saleRepo sales.Repository,
	renderer notification.ReceiptRenderer,
	converter notification.DocumentConverter,
	archive notification.ReceiptArchive,
	dispatcher *Dispatcher,
	logger *zap.Logger,
) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{
		sales:      saleRepo,
		renderer:   renderer,
		converter:  converter,
		archive:    archive,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SetMetrics sets the metrics recorder
func (s *ReceiptService) SetMetrics(m *telemetry.SaleMetrics) {
	s.metrics = m
}

// EventTypes returns the events the service consumes
func (s *ReceiptService) EventTypes() []string {
	return []string{sales.EventTypeSaleCommitted}
}

// Handle produces and delivers the receipt of a committed sale. Email
// failures are returned for the queue to retry; print failures, unknown
// sales and unrenderable receipts are permanent.
func (s *ReceiptService) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*sales.SaleCommittedEvent)
	if !ok {
		return shared.Permanent(fmt.Errorf("unexpected event %T", event))
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "handle")
	defer span.End()

	sale, err := s.sales.FindByID(ctx, e.SaleID)
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, sales.ErrSaleNotFound) {
			return shared.Permanent(err)
		}
		return err
	}

	doc, err := s.Document(ctx, sale, "")
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Permanent(err)
	}
	s.archiveCopy(ctx, sale, doc)

	method, err := notification.ParseMethod(e.ReceiptMethod)
	if err != nil {
		return shared.Permanent(err)
	}
	if method == notification.MethodNone {
		telemetry.SetOK(span)
		return nil
	}

	delivery, err := s.deliver(ctx, sale, doc, method, e.Destination)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Permanent(err)
	}
	if delivery.Status == notification.StatusFailed {
		failure := fmt.Errorf("%w: %s", notification.ErrTransportFailed, delivery.LastError)
		telemetry.RecordError(span, failure)
		if method == notification.MethodPrint {
			return shared.Permanent(failure)
		}
		return failure
	}

	telemetry.SetOK(span)
	return nil
}

// Document renders the receipt of sale. An empty format picks PDF when a
// converter is configured and HTML otherwise.
func (s *ReceiptService) Document(ctx context.Context, sale *sales.Sale, format string) (*notification.Document, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatHTML
		if s.converter != nil {
			format = FormatPDF
		}
	}
	if format != FormatHTML && format != FormatPDF {
		return nil, ErrInvalidFormat
	}
	if format == FormatPDF && s.converter == nil {
		return nil, ErrPDFUnavailable
	}

	start := time.Now()
	html, err := s.renderer.Render(sale)
	if err != nil {
		return nil, err
	}
	doc := &notification.Document{
		SaleID:      sale.ID,
		Data:        html,
		ContentType: notification.ContentTypeHTML,
		Ext:         FormatHTML,
	}

	if format == FormatPDF {
		pdf, err := s.converter.Convert(ctx, html)
		if err != nil {
			return nil, err
		}
		doc.Data = pdf
		doc.ContentType = notification.ContentTypePDF
		doc.Ext = FormatPDF
	}

	if s.metrics != nil {
		s.metrics.RecordReceiptRendered(ctx, format, time.Since(start))
	}
	return doc, nil
}

// Redeliver renders the receipt of a stored sale again and delivers it
// synchronously
func (s *ReceiptService) Redeliver(ctx context.Context, saleID int64, method notification.Method, destination string) (*notification.Delivery, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "redeliver")
	defer span.End()

	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if method == notification.MethodNone {
		return nil, notification.ErrInvalidMethod
	}
	doc, err := s.Document(ctx, sale, "")
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return s.deliver(ctx, sale, doc, method, destination)
}

func (s *ReceiptService) deliver(ctx context.Context, sale *sales.Sale, doc *notification.Document, method notification.Method, destination string) (*notification.Delivery, error) {
	if method == notification.MethodEmail && strings.TrimSpace(destination) == "" {
		destination = sale.CustomerContact
	}
	return s.dispatcher.Deliver(ctx, DeliveryRequest{
		SaleID:      sale.ID,
		Total:       sale.Total,
		Document:    *doc,
		Method:      method,
		Destination: destination,
	})
}

func (s *ReceiptService) archiveCopy(ctx context.Context, sale *sales.Sale, doc *notification.Document) {
	if s.archive == nil {
		return
	}
	stored, err := s.archive.Store(ctx, sale.ID, sale.CreatedAt, doc.Ext, doc.ContentType, doc.Data)
	log := logger.Enrich(ctx, s.logger).With(zap.Int64("sale_id", sale.ID))
	if err != nil {
		log.Warn("Failed to archive receipt", zap.Error(err))
		return
	}
	log.Debug("Receipt archived", zap.String("key", stored.Key), zap.String("location", stored.Location))
}

// JobKey identifies one receipt job for duplicate suppression
func JobKey(event shared.DomainEvent) string {
	if e, ok := event.(*sales.SaleCommittedEvent); ok {
		return fmt.Sprintf("receipt:%d:%s:%s:%s", e.SaleID, e.ReceiptMethod, e.Destination, e.EventID())
	}
	return "receipt:" + event.EventID().String()
}
