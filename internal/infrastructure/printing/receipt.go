package printing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/domain/sales"
	"github.com/stocklink/pos/internal/infrastructure/config"
)

// Issuer identifies the business printed on every receipt
type Issuer struct {
	Name    string
	Tagline string
	Address string
	Email   string
	Phone   string
	Website string
}

// ReceiptOptions configures a ReceiptRenderer
type ReceiptOptions struct {
	Issuer         Issuer
	CurrencySymbol string
	DefaultCashier string
	Location       *time.Location
}

// OptionsFromConfig builds renderer options from the receipt section
func OptionsFromConfig(cfg config.ReceiptConfig) (ReceiptOptions, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return ReceiptOptions{}, fmt.Errorf("load receipt timezone %q: %w", cfg.Timezone, err)
	}
	return ReceiptOptions{
		Issuer: Issuer{
			Name:    cfg.IssuerName,
			Tagline: cfg.Tagline,
			Address: cfg.Address,
			Email:   cfg.Email,
			Phone:   cfg.Phone,
			Website: cfg.Website,
		},
		CurrencySymbol: cfg.CurrencySymbol,
		DefaultCashier: cfg.DefaultCashier,
		Location:       loc,
	}, nil
}

// ReceiptRenderer renders sales as self-contained HTML receipts. Output
// depends only on the sale and the options.
type ReceiptRenderer struct {
	opts ReceiptOptions
	tmpl *template.Template
}

var _ notification.ReceiptRenderer = (*ReceiptRenderer)(nil)

// NewReceiptRenderer parses the receipt layout
func NewReceiptRenderer(opts ReceiptOptions) (*ReceiptRenderer, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	tmpl, err := template.New("receipt").Parse(receiptTemplate)
	if err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to parse receipt template", err)
	}
	return &ReceiptRenderer{opts: opts, tmpl: tmpl}, nil
}

type receiptItemView struct {
	Name  string
	Qty   string
	Price string
	Total string
}

type receiptView struct {
	Issuer           Issuer
	ReceiptNo        string
	Date             string
	Cashier          string
	PaymentMethod    string
	PaymentReference string
	Items            []receiptItemView
	Total            string
	ShowTender       bool
	Tendered         string
	Change           string
	QRCode           template.URL
	Barcode          template.URL
	ValidUntil       string
}

// qrItem mirrors the stored item snapshot
type qrItem struct {
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	Price     json.Number `json:"price"`
	Qty       int         `json:"qty"`
	Total     json.Number `json:"total"`
}

type qrPayload struct {
	ReceiptID     int64       `json:"receiptId"`
	Timestamp     string      `json:"timestamp"`
	Items         []qrItem    `json:"items"`
	Total         json.Number `json:"total"`
	PaymentMethod string      `json:"paymentMethod"`
}

// Render produces the receipt document for sale
func (r *ReceiptRenderer) Render(sale *sales.Sale) ([]byte, error) {
	if sale == nil || sale.ID <= 0 {
		return nil, NewRenderError(ErrCodeInvalidSale, "missing receipt id", nil)
	}
	if len(sale.Items) == 0 {
		return nil, NewRenderError(ErrCodeInvalidSale, "no items in sale", nil)
	}

	receiptNo := strconv.FormatInt(sale.ID, 10)

	qrCode, err := r.qrCode(sale)
	if err != nil {
		return nil, NewRenderError(ErrCodeEncodeFailed, "failed to encode QR code", err)
	}
	barcode, err := Code128DataURI(receiptNo)
	if err != nil {
		return nil, NewRenderError(ErrCodeEncodeFailed, "failed to encode barcode", err)
	}

	view := receiptView{
		Issuer:           r.opts.Issuer,
		ReceiptNo:        receiptNo,
		Date:             FormatDate(sale.CreatedAt, r.opts.Location),
		Cashier:          r.cashier(sale),
		PaymentMethod:    UpperLabel(string(sale.PaymentMethod)),
		PaymentReference: sale.PaymentReference,
		Items:            make([]receiptItemView, 0, len(sale.Items)),
		Total:            r.money(sale.Total),
		QRCode:           qrCode,
		Barcode:          barcode,
		ValidUntil:       strconv.Itoa(sale.CreatedAt.In(r.opts.Location).Year() + 1),
	}
	for _, it := range sale.Items {
		view.Items = append(view.Items, receiptItemView{
			Name:  it.Name,
			Qty:   FormatQuantity(it.Quantity),
			Price: r.money(it.UnitPrice),
			Total: r.money(it.LineTotal),
		})
	}
	if sale.PaymentMethod == sales.PaymentCash && sale.AmountTendered != nil {
		view.ShowTender = true
		view.Tendered = r.money(*sale.AmountTendered)
		view.Change = r.money(sale.Change)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to execute receipt template", err)
	}
	return buf.Bytes(), nil
}

func (r *ReceiptRenderer) cashier(sale *sales.Sale) string {
	if sale.Cashier != "" {
		return sale.Cashier
	}
	return r.opts.DefaultCashier
}

func (r *ReceiptRenderer) money(amount decimal.Decimal) string {
	return FormatMoney(r.opts.CurrencySymbol, amount)
}

// qrCode encodes the sale payload. Carts too large for a QR symbol are
// encoded without their item list.
func (r *ReceiptRenderer) qrCode(sale *sales.Sale) (template.URL, error) {
	content, err := r.qrContent(sale, true)
	if err != nil {
		return "", err
	}
	uri, err := QRDataURI(content)
	if err == nil {
		return uri, nil
	}
	if content, err = r.qrContent(sale, false); err != nil {
		return "", err
	}
	return QRDataURI(content)
}

func (r *ReceiptRenderer) qrContent(sale *sales.Sale, withItems bool) (string, error) {
	payload := qrPayload{
		ReceiptID:     sale.ID,
		Timestamp:     sale.CreatedAt.In(r.opts.Location).Format(time.RFC3339),
		Items:         make([]qrItem, 0, len(sale.Items)),
		Total:         json.Number(sale.Total.StringFixed(2)),
		PaymentMethod: string(sale.PaymentMethod),
	}
	for _, it := range sale.Items {
		if !withItems {
			break
		}
		payload.Items = append(payload.Items, qrItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     json.Number(it.UnitPrice.StringFixed(2)),
			Qty:       it.Quantity,
			Total:     json.Number(it.LineTotal.StringFixed(2)),
		})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
