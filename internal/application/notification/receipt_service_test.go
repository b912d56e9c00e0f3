package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/domain/shared"
)

type receiptFixture struct {
	sales     *MockSaleRepository
	renderer  *MockRenderer
	converter *MockConverter
	archive   *MockArchive
	mailer    *MockMailer
	spooler   *MockSpooler
	ledger    *MockDeliveryRepository
}

func newReceiptFixture() *receiptFixture {
	return &receiptFixture{
		sales:     new(MockSaleRepository),
		renderer:  new(MockRenderer),
		converter: new(MockConverter),
		archive:   new(MockArchive),
		mailer:    new(MockMailer),
		spooler:   new(MockSpooler),
		ledger:    new(MockDeliveryRepository),
	}
}

func (f *receiptFixture) service(withConverter bool) *ReceiptService {
	d := NewDispatcher(f.mailer, f.spooler, f.ledger, DispatcherConfig{CurrencySymbol: "Ksh"}, nil)
	var conv notification.DocumentConverter
	if withConverter {
		conv = f.converter
	}
	return NewReceiptService(f.sales, f.renderer, conv, f.archive, d, nil)
}

func committedSale() *sales.Sale {
	return &sales.Sale{
		ID:              42,
		Items:           []sales.SaleItem{{ProductID: 1, Name: "Chair", UnitPrice: decimal.NewFromInt(50), Quantity: 2, LineTotal: decimal.NewFromInt(100)}},
		Total:           decimal.NewFromInt(100),
		PaymentMethod:   sales.PaymentCash,
		CustomerContact: "buyer@example.com",
		CreatedAt:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestReceiptService_Handle(t *testing.T) {
	ctx := context.Background()
	html := []byte("<html>42</html>")

	t.Run("should archive and stop when no receipt was requested", func(t *testing.T) {
		f := newReceiptFixture()
		sale := committedSale()
		f.sales.On("FindByID", mock.Anything, int64(42)).Return(sale, nil)
		f.renderer.On("Render", sale).Return(html, nil)
		f.archive.On("Store", mock.Anything, int64(42), sale.CreatedAt, "html", notification.ContentTypeHTML, html).
			Return(&notification.ArchivedReceipt{Key: "k"}, nil)

		err := f.service(false).Handle(ctx, sales.NewSaleCommittedEvent(sale, "none", ""))
		require.NoError(t, err)
		f.archive.AssertExpectations(t)
		f.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("should email a pdf to the sale contact", func(t *testing.T) {
		f := newReceiptFixture()
		sale := committedSale()
		pdf := []byte("%PDF-1.7")
		f.sales.On("FindByID", mock.Anything, int64(42)).Return(sale, nil)
		f.renderer.On("Render", sale).Return(html, nil)
		f.converter.On("Convert", mock.Anything, html).Return(pdf, nil)
		f.archive.On("Store", mock.Anything, int64(42), sale.CreatedAt, "pdf", notification.ContentTypePDF, pdf).
			Return(&notification.ArchivedReceipt{Key: "k"}, nil)
		f.mailer.On("Send", mock.Anything, mock.MatchedBy(func(e notification.Email) bool {
			return e.To == "buyer@example.com" && e.Attachments[0].Name == "receipt-42.pdf"
		})).Return(nil)
		f.ledger.On("Save", mock.Anything, mock.Anything).Return(nil)

		err := f.service(true).Handle(ctx, sales.NewSaleCommittedEvent(sale, "email", ""))
		require.NoError(t, err)
		f.mailer.AssertExpectations(t)
	})

	t.Run("should return a retryable error when email fails", func(t *testing.T) {
		f := newReceiptFixture()
		sale := committedSale()
		f.sales.On("FindByID", mock.Anything, int64(42)).Return(sale, nil)
		f.renderer.On("Render", sale).Return(html, nil)
		f.archive.On("Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("bucket gone"))
		f.mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
		f.ledger.On("Save", mock.Anything, mock.Anything).Return(nil)

		err := f.service(false).Handle(ctx, sales.NewSaleCommittedEvent(sale, "email", "other@example.com"))
		require.Error(t, err)
		assert.ErrorIs(t, err, notification.ErrTransportFailed)
		assert.False(t, shared.IsPermanent(err))
	})

	t.Run("should not retry a failed print", func(t *testing.T) {
		f := newReceiptFixture()
		sale := committedSale()
		f.sales.On("FindByID", mock.Anything, int64(42)).Return(sale, nil)
		f.renderer.On("Render", sale).Return(html, nil)
		f.archive.On("Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&notification.ArchivedReceipt{}, nil)
		f.spooler.On("Print", mock.Anything, mock.Anything).Return(errors.New("paper jam"))
		f.ledger.On("Save", mock.Anything, mock.Anything).Return(nil)

		err := f.service(false).Handle(ctx, sales.NewSaleCommittedEvent(sale, "print", "front-desk"))
		require.Error(t, err)
		assert.True(t, shared.IsPermanent(err))
	})

	t.Run("should treat an unknown sale as permanent", func(t *testing.T) {
		f := newReceiptFixture()
		f.sales.On("FindByID", mock.Anything, int64(9)).Return(nil, sales.ErrSaleNotFound)

		err := f.service(false).Handle(ctx, sales.NewSaleCommittedEvent(&sales.Sale{ID: 9}, "email", ""))
		assert.True(t, shared.IsPermanent(err))
		assert.ErrorIs(t, err, sales.ErrSaleNotFound)
	})

	t.Run("should retry when the ledger cannot be read", func(t *testing.T) {
		f := newReceiptFixture()
		f.sales.On("FindByID", mock.Anything, int64(9)).Return(nil, shared.ErrPersistence)

		err := f.service(false).Handle(ctx, sales.NewSaleCommittedEvent(&sales.Sale{ID: 9}, "email", ""))
		require.Error(t, err)
		assert.False(t, shared.IsPermanent(err))
	})

	t.Run("should reject foreign events", func(t *testing.T) {
		f := newReceiptFixture()
		ev := shared.NewBaseDomainEvent("ProductUpdated", "Product", "1")
		err := f.service(false).Handle(ctx, &ev)
		assert.True(t, shared.IsPermanent(err))
	})
}

func TestReceiptService_Document(t *testing.T) {
	ctx := context.Background()
	sale := committedSale()

	t.Run("should default to html without a converter", func(t *testing.T) {
		f := newReceiptFixture()
		f.renderer.On("Render", sale).Return([]byte("<p/>"), nil)

		doc, err := f.service(false).Document(ctx, sale, "")
		require.NoError(t, err)
		assert.Equal(t, notification.ContentTypeHTML, doc.ContentType)
		assert.Equal(t, "receipt-42.html", doc.FileName())
	})

	t.Run("should refuse pdf without a converter", func(t *testing.T) {
		f := newReceiptFixture()
		_, err := f.service(false).Document(ctx, sale, "PDF")
		assert.ErrorIs(t, err, ErrPDFUnavailable)
	})

	t.Run("should reject unknown formats", func(t *testing.T) {
		f := newReceiptFixture()
		_, err := f.service(true).Document(ctx, sale, "docx")
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("should return html on request even with a converter", func(t *testing.T) {
		f := newReceiptFixture()
		f.renderer.On("Render", sale).Return([]byte("<p/>"), nil)

		doc, err := f.service(true).Document(ctx, sale, "html")
		require.NoError(t, err)
		assert.Equal(t, "html", doc.Ext)
		f.converter.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything)
	})
}

func TestReceiptService_Redeliver(t *testing.T) {
	ctx := context.Background()

	t.Run("should deliver the stored sale synchronously", func(t *testing.T) {
		f := newReceiptFixture()
		sale := committedSale()
		f.sales.On("FindByID", mock.Anything, int64(42)).Return(sale, nil)
		f.renderer.On("Render", sale).Return([]byte("<p/>"), nil)
		f.mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
		f.ledger.On("Save", mock.Anything, mock.Anything).Return(nil)

		d, err := f.service(false).Redeliver(ctx, 42, notification.MethodEmail, "new@example.com")
		require.NoError(t, err)
		assert.Equal(t, notification.StatusDelivered, d.Status)
		assert.Equal(t, "new@example.com", d.Destination)
		assert.Empty(t, f.archive.Calls)
	})

	t.Run("should reject method none", func(t *testing.T) {
		f := newReceiptFixture()
		f.sales.On("FindByID", mock.Anything, int64(42)).Return(committedSale(), nil)

		_, err := f.service(false).Redeliver(ctx, 42, notification.MethodNone, "")
		assert.ErrorIs(t, err, notification.ErrInvalidMethod)
	})

	t.Run("should surface a missing sale", func(t *testing.T) {
		f := newReceiptFixture()
		f.sales.On("FindByID", mock.Anything, int64(5)).Return(nil, sales.ErrSaleNotFound)

		_, err := f.service(false).Redeliver(ctx, 5, notification.MethodPrint, "p")
		assert.ErrorIs(t, err, sales.ErrSaleNotFound)
	})
}

func TestJobKey(t *testing.T) {
	sale := &sales.Sale{ID: 3}
	a := sales.NewSaleCommittedEvent(sale, "email", "a@b.co")
	b := sales.NewSaleCommittedEvent(sale, "email", "a@b.co")

	assert.Equal(t, JobKey(a), JobKey(a))
	assert.NotEqual(t, JobKey(a), JobKey(b), "distinct events are distinct jobs")
	assert.Contains(t, JobKey(a), "receipt:3:email:a@b.co:")
}
