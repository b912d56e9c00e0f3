package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/stocklink/pos/internal/domain/sales"
)

// Content types of receipt documents
const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypePDF  = "application/pdf"
)

// Document is a rendered receipt ready to be delivered or archived
type Document struct {
	SaleID      int64
	Data        []byte
	ContentType string
	Ext         string
}

// FileName is the attachment name of the document
func (d Document) FileName() string {
	return fmt.Sprintf("receipt-%d.%s", d.SaleID, d.Ext)
}

// ReceiptRenderer turns a sale into a receipt document. Rendering the same
// sale twice yields identical bytes.
type ReceiptRenderer interface {
	Render(sale *sales.Sale) ([]byte, error)
}

// DocumentConverter converts a rendered HTML receipt to PDF
type DocumentConverter interface {
	Convert(ctx context.Context, html []byte) ([]byte, error)
}

// Attachment is a file attached to an email
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Email is an outgoing message
type Email struct {
	MessageID   string
	To          string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Mailer sends email
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// PrintJob is a document bound for a printer queue
type PrintJob struct {
	Name        string
	Printer     string
	ContentType string
	Document    []byte
}

// Spooler hands documents to a printer
type Spooler interface {
	Print(ctx context.Context, job PrintJob) error
}

// ArchivedReceipt describes a stored receipt copy
type ArchivedReceipt struct {
	Key      string
	Location string
	Size     int64
}

// ReceiptArchive keeps copies of rendered receipts. The copy is never a
// source of truth.
type ReceiptArchive interface {
	Store(ctx context.Context, saleID int64, issuedAt time.Time, ext, contentType string, data []byte) (*ArchivedReceipt, error)
}
