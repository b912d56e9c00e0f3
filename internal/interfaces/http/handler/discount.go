package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appnotification "github.com/stocklink/pos/internal/application/notification"
	"github.com/stocklink/pos/internal/domain/shared"
)

// DiscountService is the discount surface used by DiscountHandler
type DiscountService interface {
	Create(ctx context.Context, req appnotification.CreateDiscountRequest) (*appnotification.DiscountResponse, error)
	List(ctx context.Context, filter shared.Filter) ([]appnotification.DiscountResponse, error)
	Notify(ctx context.Context, req appnotification.NotifyRequest) (*appnotification.NotifyResult, error)
}

type pageQuery struct {
	Page     int `form:"page" binding:"omitempty,gte=1"`
	PageSize int `form:"page_size" binding:"omitempty,gte=1,lte=100"`
}

// DiscountHandler handles discount endpoints
type DiscountHandler struct {
	BaseHandler
	discounts DiscountService
}

// NewDiscountHandler creates a DiscountHandler
func NewDiscountHandler(discounts DiscountService) *DiscountHandler {
	return &DiscountHandler{discounts: discounts}
}

// List godoc
// @Summary      List discounts
// @Tags         discounts
// @Param        page      query int false "Page"
// @Param        page_size query int false "Page size"
// @Router       /discounts [get]
func (h *DiscountHandler) List(c *gin.Context) {
	var query pageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	filter := shared.DefaultFilter()
	if query.Page > 0 {
		filter.Page = query.Page
	}
	if query.PageSize > 0 {
		filter.PageSize = query.PageSize
	}
	discounts, err := h.discounts.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, discounts)
}

// Create godoc
// @Summary      Create a discount
// @Tags         discounts
// @Router       /discounts [post]
func (h *DiscountHandler) Create(c *gin.Context) {
	var req appnotification.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	discount, err := h.discounts.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, discount)
}

// Notify emails the active discounts to every past customer
// @Router       /discounts/notify [post]
func (h *DiscountHandler) Notify(c *gin.Context) {
	var req appnotification.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	result, err := h.discounts.Notify(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
