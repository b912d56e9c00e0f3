package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stocklink/pos/internal/domain/notification"
)

func htmlDoc(saleID int64) notification.Document {
	return notification.Document{
		SaleID:      saleID,
		Data:        []byte("<html>receipt</html>"),
		ContentType: notification.ContentTypeHTML,
		Ext:         "html",
	}
}

func TestDispatcher_Email(t *testing.T) {
	ctx := context.Background()
	doc := htmlDoc(42)
	fp := notification.Fingerprint(doc.Data)

	t.Run("should send the receipt and record a delivered attempt", func(t *testing.T) {
		mailer := new(MockMailer)
		ledger := new(MockDeliveryRepository)
		d := NewDispatcher(mailer, nil, ledger, DispatcherConfig{IssuerName: "WELT TALLIS GROUP", CurrencySymbol: "Ksh"}, nil)

		mailer.On("Send", mock.Anything, mock.MatchedBy(func(e notification.Email) bool {
			return e.To == "buyer@example.com" &&
				e.Subject == "Your Purchase Receipt #42" &&
				e.MessageID == MessageID(42, fp, "stocklink.pos") &&
				len(e.Attachments) == 1 &&
				e.Attachments[0].Name == "receipt-42.html"
		})).Return(nil)
		ledger.On("Save", mock.Anything, mock.AnythingOfType("*notification.Delivery")).Return(nil)

		out, err := d.Deliver(ctx, DeliveryRequest{
			SaleID:      42,
			Total:       decimal.RequireFromString("1234.5"),
			Document:    doc,
			Method:      notification.MethodEmail,
			Destination: " buyer@example.com ",
		})
		require.NoError(t, err)
		assert.Equal(t, notification.StatusDelivered, out.Status)
		assert.Equal(t, fp, out.Fingerprint)
		assert.Equal(t, "buyer@example.com", out.Destination)

		sent := mailer.Calls[0].Arguments.Get(1).(notification.Email)
		assert.Contains(t, sent.TextBody, "Receipt No: 42")
		assert.Contains(t, sent.TextBody, "Ksh 1,234.50")
		ledger.AssertExpectations(t)
	})

	t.Run("should report a transport failure as a failed delivery", func(t *testing.T) {
		mailer := new(MockMailer)
		ledger := new(MockDeliveryRepository)
		d := NewDispatcher(mailer, nil, ledger, DispatcherConfig{}, nil)

		mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
		ledger.On("Save", mock.Anything, mock.Anything).Return(nil)

		out, err := d.Deliver(ctx, DeliveryRequest{SaleID: 42, Document: doc, Method: notification.MethodEmail, Destination: "a@b.co"})
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, out.Status)
		assert.Equal(t, "smtp down", out.LastError)
		assert.Equal(t, 1, out.Attempts)
	})

	t.Run("should reject an invalid address without sending", func(t *testing.T) {
		mailer := new(MockMailer)
		d := NewDispatcher(mailer, nil, new(MockDeliveryRepository), DispatcherConfig{}, nil)

		_, err := d.Deliver(ctx, DeliveryRequest{SaleID: 42, Document: doc, Method: notification.MethodEmail, Destination: "not-an-email"})
		assert.ErrorIs(t, err, notification.ErrInvalidDestination)
		mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("should fail when email is not configured", func(t *testing.T) {
		d := NewDispatcher(nil, nil, new(MockDeliveryRepository), DispatcherConfig{}, nil)
		_, err := d.Deliver(ctx, DeliveryRequest{SaleID: 42, Document: doc, Method: notification.MethodEmail, Destination: "a@b.co"})
		assert.ErrorIs(t, err, notification.ErrNotConfigured)
	})

	t.Run("should keep the outcome when the ledger write fails", func(t *testing.T) {
		mailer := new(MockMailer)
		ledger := new(MockDeliveryRepository)
		d := NewDispatcher(mailer, nil, ledger, DispatcherConfig{}, nil)

		mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
		ledger.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))

		out, err := d.Deliver(ctx, DeliveryRequest{SaleID: 42, Document: doc, Method: notification.MethodEmail, Destination: "a@b.co"})
		require.NoError(t, err)
		assert.Equal(t, notification.StatusDelivered, out.Status)
	})
}

func TestDispatcher_Print(t *testing.T) {
	ctx := context.Background()
	doc := htmlDoc(7)
	fp := notification.Fingerprint(doc.Data)

	spooler := new(MockSpooler)
	ledger := new(MockDeliveryRepository)
	d := NewDispatcher(nil, spooler, ledger, DispatcherConfig{}, nil)

	spooler.On("Print", mock.Anything, notification.PrintJob{
		Name:        JobName(7, fp),
		Printer:     "front-desk",
		ContentType: notification.ContentTypeHTML,
		Document:    doc.Data,
	}).Return(nil)
	ledger.On("Save", mock.Anything, mock.Anything).Return(nil)

	out, err := d.Deliver(ctx, DeliveryRequest{SaleID: 7, Document: doc, Method: notification.MethodPrint, Destination: "front-desk"})
	require.NoError(t, err)
	assert.Equal(t, notification.StatusDelivered, out.Status)
	spooler.AssertExpectations(t)
}

func TestDispatcher_RejectsBadRequests(t *testing.T) {
	d := NewDispatcher(new(MockMailer), new(MockSpooler), new(MockDeliveryRepository), DispatcherConfig{}, nil)

	_, err := d.Deliver(context.Background(), DeliveryRequest{SaleID: 1, Method: notification.MethodPrint})
	assert.ErrorIs(t, err, notification.ErrEmptyDocument)

	_, err = d.Deliver(context.Background(), DeliveryRequest{SaleID: 1, Document: htmlDoc(1), Method: notification.MethodNone})
	assert.ErrorIs(t, err, notification.ErrInvalidMethod)
}

func TestDerivedIdentifiers(t *testing.T) {
	fp := notification.Fingerprint([]byte("doc"))

	assert.Equal(t, MessageID(3, fp, "shop.test"), MessageID(3, fp, "shop.test"))
	assert.NotEqual(t, MessageID(3, fp, "shop.test"), MessageID(4, fp, "shop.test"))
	assert.Equal(t, "receipt-3-"+fp[:16], JobName(3, fp))
	assert.Equal(t, "receipt-3-abc", JobName(3, "abc"))
}
