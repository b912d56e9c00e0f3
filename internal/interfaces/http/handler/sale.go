package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stocklink/pos/internal/application/analytics"
	appcatalog "github.com/stocklink/pos/internal/application/catalog"
	appsales "github.com/stocklink/pos/internal/application/sales"
	"github.com/stocklink/pos/internal/domain/notification"
	"github.com/stocklink/pos/internal/interfaces/http/dto"
	"github.com/stocklink/pos/internal/interfaces/http/middleware"
)

// SaleService is the checkout surface used by SaleHandler
type SaleService interface {
	CommitSale(ctx context.Context, req appsales.CommitSaleRequest) (*appsales.CommitSaleResult, error)
	GetSale(ctx context.Context, id int64) (*appsales.SaleResponse, error)
	ListSales(ctx context.Context, filter appsales.ListSalesFilter) ([]appsales.SaleResponse, int64, error)
	RenderReceipt(ctx context.Context, id int64, format string) (*notification.Document, error)
	RedeliverReceipt(ctx context.Context, id int64, req appsales.RedeliverRequest) (*appsales.DeliveryResponse, error)
	ListDeliveries(ctx context.Context, id int64) ([]appsales.DeliveryResponse, error)
}

// AnalyticsService produces the daily dashboard
type AnalyticsService interface {
	Summary(ctx context.Context, day time.Time) (*analytics.Summary, error)
}

// Restocker adds units to a product
type Restocker interface {
	Restock(ctx context.Context, id int64, req appcatalog.RestockRequest) (*appcatalog.ProductResponse, error)
}

// SaleHandler handles the checkout and sale history endpoints
type SaleHandler struct {
	BaseHandler
	sales     SaleService
	analytics AnalyticsService
	restocker Restocker
	loc       *time.Location
	now       func() time.Time
}

// NewSaleHandler creates a SaleHandler. Analytics days are parsed in loc.
func NewSaleHandler(sales SaleService, analytics AnalyticsService, restocker Restocker, loc *time.Location) *SaleHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SaleHandler{
		sales:     sales,
		analytics: analytics,
		restocker: restocker,
		loc:       loc,
		now:       time.Now,
	}
}

// Commit godoc
// @Summary      Commit a sale
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        request body appsales.CommitSaleRequest true "Checkout"
// @Success      201 {object} dto.Response{data=appsales.CommitSaleResponse}
// @Failure      400 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /sales [post]
func (h *SaleHandler) Commit(c *gin.Context) {
	var req appsales.CommitSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Cashier = middleware.GetJWTUsername(c)

	result, err := h.sales.CommitSale(c.Request.Context(), req)
	if err != nil {
		h.HandleSaleError(c, err)
		return
	}
	h.Created(c, appsales.ToCommitSaleResponse(result))
}

// List godoc
// @Summary      List sales, newest first
// @Tags         sales
// @Produce      json
// @Param        page      query int    false "Page"
// @Param        page_size query int    false "Page size"
// @Param        from      query string false "First day (YYYY-MM-DD)"
// @Param        to        query string false "Last day, inclusive (YYYY-MM-DD)"
// @Router       /sales [get]
func (h *SaleHandler) List(c *gin.Context) {
	var filter appsales.ListSalesFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	items, total, err := h.sales.ListSales(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Get godoc
// @Summary      Get a sale
// @Tags         sales
// @Param        id path int true "Sale ID"
// @Router       /sales/{id} [get]
func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sale, err := h.sales.GetSale(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sale)
}

// Receipt renders the receipt of a stored sale
// @Summary      Render a receipt
// @Tags         sales
// @Produce      text/html,application/pdf
// @Param        id     path  int    true  "Sale ID"
// @Param        format query string false "html or pdf"
// @Router       /sales/{id}/receipt [get]
func (h *SaleHandler) Receipt(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	doc, err := h.sales.RenderReceipt(c.Request.Context(), id, c.DefaultQuery("format", "html"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+doc.FileName()+`"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

// Redeliver sends a stored receipt again
// @Router       /sales/{id}/receipt/deliver [post]
func (h *SaleHandler) Redeliver(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req appsales.RedeliverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	delivery, err := h.sales.RedeliverReceipt(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, delivery)
}

// Deliveries lists the delivery ledger of a sale
// @Router       /sales/{id}/deliveries [get]
func (h *SaleHandler) Deliveries(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	deliveries, err := h.sales.ListDeliveries(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, deliveries)
}

// Analytics returns the dashboard for ?day=YYYY-MM-DD, today by default
// @Router       /sales/analytics [get]
func (h *SaleHandler) Analytics(c *gin.Context) {
	day := h.now().In(h.loc)
	if raw := c.Query("day"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.loc)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "day must be formatted as YYYY-MM-DD")
			return
		}
		day = parsed
	}
	summary, err := h.analytics.Summary(c.Request.Context(), day)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Restock adds units to a product's stock
// @Router       /sales/stock/{id} [patch]
func (h *SaleHandler) Restock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req appcatalog.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.restocker.Restock(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}
