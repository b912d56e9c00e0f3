package notification

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodNone, m)

	m, err = ParseMethod(" EMAIL ")
	require.NoError(t, err)
	assert.Equal(t, MethodEmail, m)

	_, err = ParseMethod("fax")
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("receipt"))
	b := Fingerprint([]byte("receipt"))
	c := Fingerprint([]byte("receipt2"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestDelivery_Lifecycle(t *testing.T) {
	d := NewDelivery(7, MethodPrint, "front-desk")
	assert.Equal(t, StatusPending, d.Status)

	d.Fail("abc", errors.New("printer offline"))
	assert.Equal(t, StatusFailed, d.Status)
	assert.Equal(t, 1, d.Attempts)
	assert.Equal(t, "printer offline", d.LastError)

	d.Succeed("abc")
	assert.Equal(t, StatusDelivered, d.Status)
	assert.Equal(t, 2, d.Attempts)
	assert.Empty(t, d.LastError)
}

func TestDocument_FileName(t *testing.T) {
	assert.Equal(t, "receipt-12.pdf", Document{SaleID: 12, Ext: "pdf"}.FileName())
}
