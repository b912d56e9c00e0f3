package printing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocklink/pos/internal/domain/sales"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "Ksh 0.00"},
		{"50", "Ksh 50.00"},
		{"1234.56", "Ksh 1,234.56"},
		{"1000000", "Ksh 1,000,000.00"},
		{"99.999", "Ksh 100.00"},
		{"999.995", "Ksh 1,000.00"},
		{"-1234.5", "Ksh -1,234.50"},
		{"123456789012345678.91", "Ksh 123,456,789,012,345,678.91"},
		{"0.005", "Ksh 0.01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMoney("Ksh", dec(tt.in)), tt.in)
	}
	assert.Equal(t, "12.50", FormatMoney("", dec("12.5")))
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2026, 1, 2, 21, 5, 0, 0, time.UTC)
	assert.Equal(t, "02 Jan 2026 21:05", FormatDate(ts, nil))

	nairobi, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)
	assert.Equal(t, "03 Jan 2026 00:05", FormatDate(ts, nairobi))
}

func TestUpperLabel(t *testing.T) {
	assert.Equal(t, "MOBILE-MONEY", UpperLabel(string(sales.PaymentMobileMoney)))
	assert.Equal(t, "3", FormatQuantity(3))
}

func decodeDataURI(t *testing.T, uri string) []byte {
	t.Helper()
	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(uri, prefix))
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	require.NoError(t, err)
	return data
}

func TestQRDataURI(t *testing.T) {
	uri, err := QRDataURI(`{"receiptId":42}`)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(decodeDataURI(t, string(uri))))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds().Dx(), img.Bounds().Dy())

	again, err := QRDataURI(`{"receiptId":42}`)
	require.NoError(t, err)
	assert.Equal(t, uri, again)
}

func TestQRDataURI_TooLarge(t *testing.T) {
	_, err := QRDataURI(strings.Repeat("x", 8000))
	assert.Error(t, err)
}

func TestCode128DataURI(t *testing.T) {
	uri, err := Code128DataURI("42")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(decodeDataURI(t, string(uri))))
	require.NoError(t, err)
	assert.Equal(t, barcodeHeight, img.Bounds().Dy())
}

func TestRenderError(t *testing.T) {
	cause := errors.New("chrome crashed")
	err := NewRenderError(ErrCodeRenderFailed, "conversion failed", cause)

	assert.Equal(t, "conversion failed: chrome crashed", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "no items", NewRenderError(ErrCodeInvalidSale, "no items", nil).Error())
}
