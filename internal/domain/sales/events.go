package sales

import (
	"strconv"

	"github.com/stocklink/pos/internal/domain/shared"
)

// EventTypeSaleCommitted is published after a sale transaction commits
const EventTypeSaleCommitted = "SaleCommitted"

// SaleCommittedEvent asks for the receipt of a committed sale to be
// produced and delivered
type SaleCommittedEvent struct {
	shared.BaseDomainEvent
	SaleID        int64  `json:"sale_id"`
	ReceiptMethod string `json:"receipt_method,omitempty"`
	Destination   string `json:"destination,omitempty"`
}

// NewSaleCommittedEvent creates the event for a committed sale
func NewSaleCommittedEvent(sale *Sale, receiptMethod, destination string) *SaleCommittedEvent {
	return &SaleCommittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCommitted, "Sale", strconv.FormatInt(sale.ID, 10)),
		SaleID:          sale.ID,
		ReceiptMethod:   receiptMethod,
		Destination:     destination,
	}
}
