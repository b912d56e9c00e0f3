package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptPrintParams(t *testing.T) {
	params := receiptPrintParams()

	assert.InDelta(t, 80/25.4, params.PaperWidth, 0.001)
	assert.InDelta(t, 297/25.4, params.PaperHeight, 0.001)
	assert.InDelta(t, 4/25.4, params.MarginLeft, 0.001)
	assert.True(t, params.PrintBackground)
	assert.False(t, params.Landscape)
}

func TestNewChromedpConverter_Defaults(t *testing.T) {
	c := NewChromedpConverter(ChromedpConfig{})
	defer c.Close()

	assert.Equal(t, defaultChromeTimeout, c.config.Timeout)
	assert.NotNil(t, c.logger)
}

func TestChromedpConverter_RejectsEmptyHTML(t *testing.T) {
	c := NewChromedpConverter(ChromedpConfig{Timeout: time.Second})
	defer c.Close()

	_, err := c.Convert(context.Background(), []byte("   "))

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, ErrCodeInvalidHTML, renderErr.Code)
}

func TestChromedpConverter_AllocatorOptions(t *testing.T) {
	plain := &ChromedpConverter{}
	sandboxless := &ChromedpConverter{config: ChromedpConfig{NoSandbox: true}}

	assert.Len(t, sandboxless.allocatorOptions(), len(plain.allocatorOptions())+1)
}
