package notification

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/phin1x/go-ipp"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/infrastructure/config"
)

// IPPSpooler submits receipts to an IPP/CUPS printer queue
type IPPSpooler struct {
	client  *ipp.IPPClient
	printer string
	logger  *zap.Logger
}

var _ notification.Spooler = (*IPPSpooler)(nil)

// NewIPPSpooler creates a spooler for cfg
func NewIPPSpooler(cfg config.PrinterConfig, logger *zap.Logger) *IPPSpooler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IPPSpooler{
		client:  ipp.NewIPPClient(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.UseTLS),
		printer: cfg.Printer,
		logger:  logger,
	}
}

// SpoolerFromConfig returns an IPP spooler when cfg enables a printer host, or nil.
func SpoolerFromConfig(cfg config.PrinterConfig, logger *zap.Logger) notification.Spooler {
	if !cfg.Enabled || cfg.Host == "" {
		return nil
	}
	return NewIPPSpooler(cfg, logger)
}

// Print submits job. job.Printer overrides the configured queue.
func (s *IPPSpooler) Print(ctx context.Context, job notification.PrintJob) error {
	printer := strings.TrimSpace(job.Printer)
	if printer == "" {
		printer = s.printer
	}
	if printer == "" {
		return fmt.Errorf("%w: no printer queue", notification.ErrNotConfigured)
	}
	if len(job.Document) == 0 {
		return notification.ErrEmptyDocument
	}

	doc := ipp.Document{
		Document: bytes.NewReader(job.Document),
		Size:     len(job.Document),
		Name:     job.Name,
		MimeType: mimeType(job.ContentType),
	}

	type result struct {
		id  int
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := s.client.PrintJob(doc, printer, nil)
		done <- result{id: id, err: err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", notification.ErrTransportFailed, ctx.Err())
	case res := <-done:
		if res.err != nil {
			s.logger.Warn("print job failed", zap.String("printer", printer), zap.Error(res.err))
			return fmt.Errorf("%w: %w", notification.ErrTransportFailed, res.err)
		}
		s.logger.Info("receipt spooled",
			zap.String("printer", printer),
			zap.String("job_name", job.Name),
			zap.Int("job_id", res.id),
		)
		return nil
	}
}

func mimeType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if contentType = strings.TrimSpace(contentType); contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
