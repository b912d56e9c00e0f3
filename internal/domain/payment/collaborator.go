// Package payment describes the external mobile money collaborator that
// gates commit of non-cash sales.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// ConfirmationStatus is the state of a mobile money request
type ConfirmationStatus string

const (
	StatusPending   ConfirmationStatus = "pending"
	StatusConfirmed ConfirmationStatus = "confirmed"
	StatusFailed    ConfirmationStatus = "failed"
)

// IsFinal reports whether the status will not change any more
func (s ConfirmationStatus) IsFinal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Confirmation is what the collaborator knows about a request
type Confirmation struct {
	Token  string
	Status ConfirmationStatus
	Amount decimal.Decimal
	Reason string
}

// MobileMoneyCollaborator asks a customer's phone to approve a payment and
// reports the outcome
type MobileMoneyCollaborator interface {
	RequestConfirmation(ctx context.Context, phone string, amount decimal.Decimal) (token string, err error)
	PollConfirmation(ctx context.Context, token string) (*Confirmation, error)
}
