package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/notification"
)

const (
	defaultChromeTimeout = 30 * time.Second
	receiptPaperWidthMM  = 80
	receiptPageHeightMM  = 297
	receiptMarginMM      = 4
)

// ChromedpConfig contains configuration for the chromedp converter
type ChromedpConfig struct {
	// Timeout bounds one conversion
	Timeout time.Duration
	// RemoteURL is a DevTools websocket of a running Chrome. If empty a
	// headless browser is launched.
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	Logger    *zap.Logger
}

// ChromedpConverter prints HTML receipts to PDF on 80mm paper through the
// Chrome DevTools Protocol
type ChromedpConverter struct {
	config      ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

var _ notification.DocumentConverter = (*ChromedpConverter)(nil)

// NewChromedpConverter creates the browser allocator. No browser is
// started until the first conversion.
func NewChromedpConverter(cfg ChromedpConfig) *ChromedpConverter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultChromeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &ChromedpConverter{config: cfg, logger: logger}
	if cfg.RemoteURL != "" {
		c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), c.allocatorOptions()...)
	}
	return c
}

func (c *ChromedpConverter) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if c.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return opts
}

// receiptPrintParams returns the PDF parameters for receipt paper
func receiptPrintParams() *page.PrintToPDFParams {
	margin := mmToInches(receiptMarginMM)
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(mmToInches(receiptPaperWidthMM)).
		WithPaperHeight(mmToInches(receiptPageHeightMM)).
		WithMarginTop(margin).
		WithMarginBottom(margin).
		WithMarginLeft(margin).
		WithMarginRight(margin).
		WithScale(1.0)
}

// Convert renders html in a fresh browser tab and prints it to PDF
func (c *ChromedpConverter) Convert(ctx context.Context, html []byte) ([]byte, error) {
	if len(bytes.TrimSpace(html)) == 0 {
		return nil, NewRenderError(ErrCodeInvalidHTML, "HTML content is empty", nil)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			c.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer tabCancel()

	// stop the tab when the caller's deadline passes
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := receiptPrintParams().Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled) {
			return nil, NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("PDF conversion stopped after %v", time.Since(start).Round(time.Millisecond)), err)
		}
		c.logger.Error("chromedp conversion failed", zap.Error(err))
		return nil, NewRenderError(ErrCodeRenderFailed, "chromedp execution failed", err)
	}
	if len(pdf) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	c.logger.Debug("receipt converted to PDF",
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)))
	return pdf, nil
}

// Close releases the browser allocator
func (c *ChromedpConverter) Close() error {
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}
