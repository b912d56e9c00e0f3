package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/notification"
)

// LocalArchive writes receipts below a directory on disk
type LocalArchive struct {
	root   string
	logger *zap.Logger
}

var _ notification.ReceiptArchive = (*LocalArchive)(nil)

// NewLocalArchive creates root if needed
func NewLocalArchive(root string, logger *zap.Logger) (*LocalArchive, error) {
	if root == "" {
		return nil, errors.New("storage local path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalArchive{root: root, logger: logger}, nil
}

// Store writes data atomically, replacing an earlier copy of the same receipt
func (a *LocalArchive) Store(ctx context.Context, saleID int64, issuedAt time.Time, ext, contentType string, data []byte) (*notification.ArchivedReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, notification.ErrEmptyDocument
	}

	key := ReceiptKey(saleID, issuedAt, ext)
	path := filepath.Join(a.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".receipt-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close receipt: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("move receipt into place: %w", err)
	}

	a.logger.Debug("receipt archived", zap.String("path", path))
	return &notification.ArchivedReceipt{Key: key, Location: path, Size: int64(len(data))}, nil
}
