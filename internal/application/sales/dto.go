package sales

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/domain/sales"
)

// CartItemInput is one requested cart line
type CartItemInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// CommitSaleRequest is a checkout submitted by the till. Totals sent by the
// client are advisory and only checked against the computed total.
type CommitSaleRequest struct {
	Items            []CartItemInput  `json:"items"`
	PaymentMethod    string           `json:"paymentMethod"`
	CustomerContact  string           `json:"customerContact,omitempty"`
	AmountTendered   *decimal.Decimal `json:"amountTendered,omitempty"`
	Total            *decimal.Decimal `json:"total,omitempty"`
	PhoneNumber      string           `json:"phoneNumber,omitempty"`
	PaymentReference string           `json:"paymentReference,omitempty"`
	ReceiptMethod    string           `json:"receiptMethod,omitempty"`
	Cashier          string           `json:"-"`
}

// ReceiptStatus reports what happened to the receipt of a committed sale
type ReceiptStatus string

const (
	ReceiptQueued  ReceiptStatus = "queued"
	ReceiptSkipped ReceiptStatus = "skipped"
	ReceiptFailed  ReceiptStatus = "failed"
)

// ReceiptOutcome is the post-commit receipt state. It never affects
// whether the sale committed.
type ReceiptOutcome struct {
	Status ReceiptStatus `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// CommitSaleResult is returned for a committed sale
type CommitSaleResult struct {
	Sale    *sales.Sale
	Change  decimal.Decimal
	Receipt ReceiptOutcome
}

// CommitSaleResponse is the API view of CommitSaleResult
type CommitSaleResponse struct {
	SaleID  int64           `json:"saleId"`
	Total   decimal.Decimal `json:"total"`
	Change  decimal.Decimal `json:"change"`
	Receipt ReceiptOutcome  `json:"receipt"`
}

// ToCommitSaleResponse converts a result to its API view
func ToCommitSaleResponse(r *CommitSaleResult) CommitSaleResponse {
	return CommitSaleResponse{
		SaleID:  r.Sale.ID,
		Total:   r.Sale.Total,
		Change:  r.Change,
		Receipt: r.Receipt,
	}
}

// SaleItemResponse is a sold line
type SaleItemResponse struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
	Total     decimal.Decimal `json:"total"`
}

// SaleResponse is a sale in API responses
type SaleResponse struct {
	ID               int64              `json:"id"`
	Items            []SaleItemResponse `json:"items"`
	Total            decimal.Decimal    `json:"total"`
	PaymentMethod    string             `json:"paymentMethod"`
	CustomerContact  string             `json:"customerContact,omitempty"`
	AmountTendered   *decimal.Decimal   `json:"amountTendered,omitempty"`
	Change           decimal.Decimal    `json:"change"`
	PaymentReference string             `json:"paymentReference,omitempty"`
	Cashier          string             `json:"cashier"`
	SaleDate         time.Time          `json:"saleDate"`
}

// ToSaleResponse converts a sale to its API view
func ToSaleResponse(s *sales.Sale) SaleResponse {
	items := make([]SaleItemResponse, len(s.Items))
	for i, it := range s.Items {
		items[i] = SaleItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.UnitPrice,
			Qty:       it.Quantity,
			Total:     it.LineTotal,
		}
	}
	return SaleResponse{
		ID:               s.ID,
		Items:            items,
		Total:            s.Total,
		PaymentMethod:    string(s.PaymentMethod),
		CustomerContact:  s.CustomerContact,
		AmountTendered:   s.AmountTendered,
		Change:           s.Change,
		PaymentReference: s.PaymentReference,
		Cashier:          s.Cashier,
		SaleDate:         s.CreatedAt,
	}
}

// ListSalesFilter selects a page of sales, newest first
type ListSalesFilter struct {
	Page     int        `form:"page"`
	PageSize int        `form:"page_size"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
}

// RedeliverRequest asks for a stored sale's receipt to be sent again
type RedeliverRequest struct {
	Method      string `json:"method" binding:"required,oneof=email print"`
	Destination string `json:"destination" binding:"max=254"`
}

// DeliveryResponse is one delivery ledger entry
type DeliveryResponse struct {
	ID          int64     `json:"id"`
	SaleID      int64     `json:"saleId"`
	Method      string    `json:"method"`
	Destination string    `json:"destination"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"lastError,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ToDeliveryResponse converts a delivery to its API view
func ToDeliveryResponse(d *notification.Delivery) DeliveryResponse {
	return DeliveryResponse{
		ID:          d.ID,
		SaleID:      d.SaleID,
		Method:      string(d.Method),
		Destination: d.Destination,
		Status:      string(d.Status),
		Attempts:    d.Attempts,
		LastError:   d.LastError,
		Fingerprint: d.Fingerprint,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
