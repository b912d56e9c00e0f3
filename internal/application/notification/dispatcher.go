// Package notification produces receipt documents for committed sales and
// hands them to customers by email or printer. Nothing here can unwind a
// sale: failures end up in the delivery ledger.
package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/infrastructure/logger"
	"github.com/stocklink/pos/internal/infrastructure/printing"
	"github.com/stocklink/pos/internal/infrastructure/telemetry"
)

var validate = validator.New()

// DispatcherConfig identifies the store on outgoing mail
type DispatcherConfig struct {
	IssuerName      string
	CurrencySymbol  string
	MessageIDDomain string
}

// DeliveryRequest asks for one document to reach one destination
type DeliveryRequest struct {
	SaleID      int64
	Total       decimal.Decimal
	Document    notification.Document
	Method      notification.Method
	Destination string
}

// Dispatcher delivers receipt documents and records every attempt in the
// delivery ledger. A nil mailer or spooler disables that channel.
type Dispatcher struct {
	mailer  notification.Mailer
	spooler notification.Spooler
	ledger  notification.DeliveryRepository
	cfg     DispatcherConfig
	logger  *zap.Logger
	metrics *telemetry.SaleMetrics
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(
	mailer notification.Mailer,
	spooler notification.Spooler,
	ledger notification.DeliveryRepository,
	cfg DispatcherConfig,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MessageIDDomain == "" {
		cfg.MessageIDDomain = "stocklink.pos"
	}
	return &Dispatcher{
		mailer:  mailer,
		spooler: spooler,
		ledger:  ledger,
		cfg:     cfg,
		logger:  logger,
	}
}

// SetMetrics sets the metrics recorder
func (d *Dispatcher) SetMetrics(m *telemetry.SaleMetrics) {
	d.metrics = m
}

// Deliver sends req and returns the recorded delivery. A transport failure
// is not an error: the delivery comes back with StatusFailed. Errors are
// reserved for requests that can never succeed as given.
func (d *Dispatcher) Deliver(ctx context.Context, req DeliveryRequest) (*notification.Delivery, error) {
	if len(req.Document.Data) == 0 {
		return nil, notification.ErrEmptyDocument
	}
	dest := strings.TrimSpace(req.Destination)

	switch req.Method {
	case notification.MethodEmail:
		if err := validate.Var(dest, "required,email"); err != nil {
			return nil, notification.ErrInvalidDestination.WithDetail("destination", dest)
		}
		if d.mailer == nil {
			return nil, notification.ErrNotConfigured.WithDetail("method", string(req.Method))
		}
	case notification.MethodPrint:
		if d.spooler == nil {
			return nil, notification.ErrNotConfigured.WithDetail("method", string(req.Method))
		}
	default:
		return nil, notification.ErrInvalidMethod
	}

	fp := notification.Fingerprint(req.Document.Data)
	delivery := notification.NewDelivery(req.SaleID, req.Method, dest)

	var sendErr error
	switch req.Method {
	case notification.MethodEmail:
		sendErr = d.mailer.Send(ctx, d.email(req, dest, fp))
	case notification.MethodPrint:
		sendErr = d.spooler.Print(ctx, notification.PrintJob{
			Name:        JobName(req.SaleID, fp),
			Printer:     dest,
			ContentType: req.Document.ContentType,
			Document:    req.Document.Data,
		})
	}

	log := logger.Enrich(ctx, d.logger).With(
		zap.Int64("sale_id", req.SaleID),
		zap.String("method", string(req.Method)),
		zap.String("fingerprint", fp),
	)
	if sendErr != nil {
		delivery.Fail(fp, sendErr)
		log.Warn("Receipt delivery failed", zap.Error(sendErr))
	} else {
		delivery.Succeed(fp)
		log.Info("Receipt delivered")
	}

	if err := d.ledger.Save(context.WithoutCancel(ctx), delivery); err != nil {
		log.Error("Failed to record receipt delivery", zap.Error(err))
	}
	if d.metrics != nil {
		d.metrics.RecordReceiptDelivery(ctx, string(req.Method), string(delivery.Status))
	}
	return delivery, nil
}

func (d *Dispatcher) email(req DeliveryRequest, to, fingerprint string) notification.Email {
	total := printing.FormatMoney(d.cfg.CurrencySymbol, req.Total)
	issuer := d.cfg.IssuerName
	if issuer == "" {
		issuer = "us"
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Thank you for shopping with %s.\n\n", issuer)
	fmt.Fprintf(&body, "Receipt No: %d\n", req.SaleID)
	fmt.Fprintf(&body, "Total: %s\n\n", total)
	body.WriteString("Your receipt is attached to this email.\n")

	return notification.Email{
		MessageID: MessageID(req.SaleID, fingerprint, d.cfg.MessageIDDomain),
		To:        to,
		Subject:   fmt.Sprintf("Your Purchase Receipt #%d", req.SaleID),
		TextBody:  body.String(),
		Attachments: []notification.Attachment{{
			Name:        req.Document.FileName(),
			ContentType: req.Document.ContentType,
			Data:        req.Document.Data,
		}},
	}
}

// MessageID derives the email Message-ID from the sale and document, so a
// redelivered receipt is recognisably the same message
func MessageID(saleID int64, fingerprint, domain string) string {
	return fmt.Sprintf("receipt-%d-%s@%s", saleID, shortFingerprint(fingerprint), domain)
}

// JobName derives the print job name from the sale and document
func JobName(saleID int64, fingerprint string) string {
	return fmt.Sprintf("receipt-%d-%s", saleID, shortFingerprint(fingerprint))
}

func shortFingerprint(fp string) string {
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}
