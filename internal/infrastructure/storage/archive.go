// Package storage keeps archive copies of rendered receipts.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/notification"
	infraconfig "github.com/stocklink/pos/internal/infrastructure/config"
)

// ReceiptKey returns the archive key of a receipt:
// receipts/<yyyy>/<mm>/receipt-<id>.<ext>
func ReceiptKey(saleID int64, issuedAt time.Time, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "html"
	}
	t := issuedAt.UTC()
	return fmt.Sprintf("receipts/%04d/%02d/receipt-%d.%s", t.Year(), int(t.Month()), saleID, ext)
}

// NewReceiptArchive builds the archive selected by cfg.Driver. The none
// driver returns a nil archive.
func NewReceiptArchive(ctx context.Context, cfg infraconfig.StorageConfig, logger *zap.Logger) (notification.ReceiptArchive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "local":
		return NewLocalArchive(cfg.LocalPath, logger)
	case "s3":
		archive, err := NewS3Archive(ctx, &cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return archive, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
