package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/payment"
	"github.com/stocklink/pos/internal/infrastructure/config"
)

// ErrCollaborator wraps every failure to reach or understand the payment service
var ErrCollaborator = errors.New("payment collaborator error")

type confirmationRequest struct {
	Phone  string      `json:"phone"`
	Amount json.Number `json:"amount"`
}

type confirmationResponse struct {
	Token  string          `json:"token"`
	Status string          `json:"status"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorResponse) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// HTTPCollaborator talks to an external mobile money service over JSON
type HTTPCollaborator struct {
	client *resty.Client
	logger *zap.Logger
}

var _ payment.MobileMoneyCollaborator = (*HTTPCollaborator)(nil)

// NewHTTPCollaborator creates a collaborator for cfg.BaseURL
func NewHTTPCollaborator(cfg config.PaymentConfig, logger *zap.Logger) *HTTPCollaborator {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &HTTPCollaborator{client: client, logger: logger}
}

// RequestConfirmation asks the customer's phone to approve amount
func (c *HTTPCollaborator) RequestConfirmation(ctx context.Context, phone string, amount decimal.Decimal) (string, error) {
	var out confirmationResponse
	var apiErr errorResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(confirmationRequest{Phone: phone, Amount: json.Number(amount.StringFixed(2))}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/confirmations")
	if err != nil {
		return "", fmt.Errorf("%w: request confirmation: %w", ErrCollaborator, err)
	}
	if resp.IsError() {
		return "", c.statusError("request confirmation", resp, apiErr)
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: request confirmation: response has no token", ErrCollaborator)
	}

	c.logger.Info("mobile money confirmation requested",
		zap.String("token", out.Token),
		zap.String("amount", amount.StringFixed(2)),
	)
	return out.Token, nil
}

// PollConfirmation reports the current state of token
func (c *HTTPCollaborator) PollConfirmation(ctx context.Context, token string) (*payment.Confirmation, error) {
	var out confirmationResponse
	var apiErr errorResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("token", token).
		SetResult(&out).
		SetError(&apiErr).
		Get("/confirmations/{token}")
	if err != nil {
		return nil, fmt.Errorf("%w: poll confirmation: %w", ErrCollaborator, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return &payment.Confirmation{Token: token, Status: payment.StatusFailed, Reason: "unknown token"}, nil
	}
	if resp.IsError() {
		return nil, c.statusError("poll confirmation", resp, apiErr)
	}

	status, err := parseStatus(out.Status)
	if err != nil {
		return nil, err
	}
	return &payment.Confirmation{
		Token:  token,
		Status: status,
		Amount: out.Amount,
		Reason: out.Reason,
	}, nil
}

func (c *HTTPCollaborator) statusError(op string, resp *resty.Response, apiErr errorResponse) error {
	msg := apiErr.text()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	c.logger.Warn("payment collaborator rejected request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.String("message", msg),
	)
	return fmt.Errorf("%w: %s: status %d: %s", ErrCollaborator, op, resp.StatusCode(), msg)
}

func parseStatus(s string) (payment.ConfirmationStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "confirmed", "success", "completed":
		return payment.StatusConfirmed, nil
	case "failed", "cancelled", "canceled", "rejected", "expired":
		return payment.StatusFailed, nil
	case "pending", "processing", "":
		return payment.StatusPending, nil
	default:
		return "", fmt.Errorf("%w: unknown confirmation status %q", ErrCollaborator, s)
	}
}
