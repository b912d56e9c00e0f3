package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/payment"
	"github.com/stocklink/pos/internal/infrastructure/logger"
	"github.com/stocklink/pos/internal/interfaces/http/dto"
)

// MobileMoneyRequest asks a customer's phone to approve a payment
type MobileMoneyRequest struct {
	Phone  string          `json:"phone" binding:"required,max=32"`
	Amount decimal.Decimal `json:"amount"`
}

// MobileMoneyToken identifies a pending confirmation
type MobileMoneyToken struct {
	Token string `json:"token"`
}

// MobileMoneyStatus is the state of a confirmation
type MobileMoneyStatus struct {
	Token  string          `json:"token"`
	Status string          `json:"status"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}

// PaymentHandler proxies the mobile money collaborator for the till
type PaymentHandler struct {
	BaseHandler
	collaborator payment.MobileMoneyCollaborator
}

// NewPaymentHandler creates a PaymentHandler. A nil collaborator reports
// every request as unavailable.
func NewPaymentHandler(collaborator payment.MobileMoneyCollaborator) *PaymentHandler {
	return &PaymentHandler{collaborator: collaborator}
}

// Request godoc
// @Summary      Request a mobile money confirmation
// @Tags         payments
// @Router       /payments/mobile-money [post]
func (h *PaymentHandler) Request(c *gin.Context) {
	if h.collaborator == nil {
		h.unavailable(c, nil)
		return
	}
	var req MobileMoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if !req.Amount.IsPositive() {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "amount must be positive")
		return
	}
	token, err := h.collaborator.RequestConfirmation(c.Request.Context(), req.Phone, req.Amount)
	if err != nil {
		h.unavailable(c, err)
		return
	}
	h.Created(c, MobileMoneyToken{Token: token})
}

// Poll godoc
// @Summary      Poll a mobile money confirmation
// @Tags         payments
// @Router       /payments/mobile-money/{token} [get]
func (h *PaymentHandler) Poll(c *gin.Context) {
	if h.collaborator == nil {
		h.unavailable(c, nil)
		return
	}
	conf, err := h.collaborator.PollConfirmation(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.unavailable(c, err)
		return
	}
	h.Success(c, MobileMoneyStatus{
		Token:  conf.Token,
		Status: string(conf.Status),
		Amount: conf.Amount,
		Reason: conf.Reason,
	})
}

func (h *PaymentHandler) unavailable(c *gin.Context, err error) {
	if err != nil {
		logger.L(c.Request.Context()).Warn("Mobile money collaborator failed", zap.Error(err))
	}
	h.Error(c, http.StatusServiceUnavailable, dto.ErrCodePaymentUnavailable, "Mobile money payments are unavailable")
}
