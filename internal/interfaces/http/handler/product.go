package handler

import (
	"context"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	appcatalog "github.com/stocklink/pos/internal/application/catalog"
)

// ProductService is the catalog surface used by ProductHandler
type ProductService interface {
	Create(ctx context.Context, req appcatalog.CreateProductRequest) (*appcatalog.ProductResponse, error)
	Get(ctx context.Context, id int64) (*appcatalog.ProductResponse, error)
	List(ctx context.Context) ([]appcatalog.ProductResponse, error)
	Update(ctx context.Context, id int64, req appcatalog.UpdateProductRequest) (*appcatalog.ProductResponse, error)
	Delete(ctx context.Context, id int64) error
	LowStock(ctx context.Context) ([]appcatalog.ProductResponse, error)
	Import(ctx context.Context, r io.Reader, dryRun bool) (*appcatalog.ImportResult, error)
}

// ProductHandler handles product endpoints
type ProductHandler struct {
	BaseHandler
	products ProductService
}

// NewProductHandler creates a ProductHandler
func NewProductHandler(products ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// List godoc
// @Summary      List products
// @Tags         products
// @Produce      json
// @Success      200 {object} dto.Response{data=[]appcatalog.ProductResponse}
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// Create godoc
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Param        request body appcatalog.CreateProductRequest true "Product"
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req appcatalog.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Get godoc
// @Summary      Get a product
// @Tags         products
// @Param        id path int true "Product ID"
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	product, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Update godoc
// @Summary      Update a product
// @Tags         products
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req appcatalog.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	product, err := h.products.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Delete godoc
// @Summary      Delete a product
// @Tags         products
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// LowStock lists products at or below their reorder threshold
func (h *ProductHandler) LowStock(c *gin.Context) {
	products, err := h.products.LowStock(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// Import godoc
// @Summary      Import products from CSV
// @Description  Accepts a multipart "file" field or a raw text/csv body. Nothing is written unless every row is valid.
// @Tags         products
// @Accept       multipart/form-data,text/csv
// @Param        dryRun query bool false "Validate only"
// @Success      200 {object} dto.Response{data=appcatalog.ImportResult}
// @Router       /products/import [post]
func (h *ProductHandler) Import(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			h.BadRequest(c, "A CSV file is required in the 'file' field")
			return
		}
		f, err := fh.Open()
		if err != nil {
			h.BadRequest(c, "Uploaded file could not be read")
			return
		}
		defer f.Close()
		body = f
	}

	result, err := h.products.Import(c.Request.Context(), body, c.Query("dryRun") == "true")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
