package printing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
)

const (
	qrModulePixels  = 4
	barModulePixels = 2
	barcodeHeight   = 60
)

// QRDataURI encodes content as a QR code PNG data URI. Large payloads fall
// back to a lower error correction level.
func QRDataURI(content string) (template.URL, error) {
	var (
		code barcode.Barcode
		err  error
	)
	for _, level := range []qr.ErrorCorrectionLevel{qr.H, qr.L} {
		code, err = qr.Encode(content, level, qr.Auto)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("qr encode: %w", err)
	}

	size := code.Bounds().Dx() * qrModulePixels
	return pngDataURI(code, size, size)
}

// Code128DataURI encodes content as a code128 barcode PNG data URI
func Code128DataURI(content string) (template.URL, error) {
	code, err := code128.Encode(content)
	if err != nil {
		return "", fmt.Errorf("code128 encode: %w", err)
	}
	return pngDataURI(code, code.Bounds().Dx()*barModulePixels, barcodeHeight)
}

func pngDataURI(code barcode.Barcode, width, height int) (template.URL, error) {
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return "", fmt.Errorf("scale barcode: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}
