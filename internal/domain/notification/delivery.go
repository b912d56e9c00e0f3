package notification

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/stocklink/pos/internal/domain/shared"
)

// Method is a receipt delivery channel
type Method string

const (
	MethodEmail Method = "email"
	MethodPrint Method = "print"
	MethodNone  Method = "none"
)

// ParseMethod parses a delivery method; empty means none
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodNone:
		return MethodNone, nil
	case MethodEmail:
		return MethodEmail, nil
	case MethodPrint:
		return MethodPrint, nil
	default:
		return "", ErrInvalidMethod
	}
}

// Status is the state of one delivery
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Delivery errors
var (
	ErrInvalidMethod      = shared.NewDomainError("VALIDATION_FAILED", "Receipt method must be email, print or none")
	ErrInvalidDestination = shared.NewDomainError("INVALID_DESTINATION", "Delivery destination is invalid")
	ErrEmptyDocument      = shared.NewDomainError("VALIDATION_FAILED", "Receipt document is empty")
	ErrTransportFailed    = shared.NewDomainError("DELIVERY_FAILED", "Receipt delivery failed")
	ErrNotConfigured      = shared.NewDomainError("DELIVERY_UNAVAILABLE", "Delivery channel is not configured")
)

// Fingerprint identifies a document by content
func Fingerprint(document []byte) string {
	sum := sha256.Sum256(document)
	return hex.EncodeToString(sum[:])
}

// Delivery records one attempt to hand a receipt to a customer
type Delivery struct {
	ID          int64
	SaleID      int64
	Method      Method
	Destination string
	Status      Status
	Attempts    int
	LastError   string
	Fingerprint string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDelivery starts a pending delivery
func NewDelivery(saleID int64, method Method, destination string) *Delivery {
	now := time.Now()
	return &Delivery{
		SaleID:      saleID,
		Method:      method,
		Destination: destination,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Succeed marks the delivery as done for the given document
func (d *Delivery) Succeed(fingerprint string) {
	d.Attempts++
	d.Status = StatusDelivered
	d.Fingerprint = fingerprint
	d.LastError = ""
	d.UpdatedAt = time.Now()
}

// Fail records a failed attempt
func (d *Delivery) Fail(fingerprint string, err error) {
	d.Attempts++
	d.Status = StatusFailed
	d.Fingerprint = fingerprint
	if err != nil {
		d.LastError = err.Error()
	}
	d.UpdatedAt = time.Now()
}

// DeliveryRepository persists the delivery ledger
type DeliveryRepository interface {
	Save(ctx context.Context, d *Delivery) error
	FindBySale(ctx context.Context, saleID int64) ([]Delivery, error)
}
