// Package handler holds the gin handlers of the POS HTTP API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/shared"
	"github.com/stocklink/pos/internal/infrastructure/event"
	"github.com/stocklink/pos/internal/infrastructure/logger"
	"github.com/stocklink/pos/internal/infrastructure/printing"
	"github.com/stocklink/pos/internal/interfaces/http/dto"
	"github.com/stocklink/pos/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithDetails(code, message, middleware.GetRequestID(c), nil))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// BindError reports a request that failed JSON, query or URI binding
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError translates an error into the envelope. Domain errors keep
// their code and details and take the status from the code table.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.handle(c, err, dto.GetHTTPStatus, nil)
}

// HandleSaleError is HandleError for a rejected checkout. The response
// states that nothing was committed.
func (h *BaseHandler) HandleSaleError(c *gin.Context, err error) {
	h.handle(c, err, dto.SaleErrorStatus, map[string]any{"committed": false})
}

func (h *BaseHandler) handle(c *gin.Context, err error, status func(string) int, extra map[string]any) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	requestID := middleware.GetRequestID(c)

	code, message := dto.ErrCodeInternal, "An unexpected error occurred"
	details := map[string]any{}

	var domainErr *shared.DomainError
	var renderErr *printing.RenderError
	switch {
	case errors.As(err, &domainErr):
		code, message = domainErr.Code, domainErr.Message
		for k, v := range domainErr.Details {
			details[k] = v
		}
	case errors.As(err, &renderErr):
		code, message = dto.ErrCodeRenderFailed, renderErr.Message
		if renderErr.Code == printing.ErrCodeRenderTimeout {
			code = dto.ErrCodeInternal
		}
		details["reason"] = renderErr.Code
	case errors.Is(err, event.ErrQueueFull), errors.Is(err, event.ErrQueueStopped):
		code, message = dto.ErrCodeDeliveryUnavailable, "Receipt queue is unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code, message = dto.ErrCodeBadRequest, "Request was cancelled"
	}
	for k, v := range extra {
		details[k] = v
	}

	statusCode := status(code)
	if statusCode >= http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("Request failed", zap.String("code", code), zap.Error(err))
	}
	c.JSON(statusCode, dto.NewErrorResponseWithDetails(code, message, requestID, details))
}

// parseID reads a positive int64 path parameter
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(dto.ErrCodeValidation,
			"Invalid "+name, middleware.GetRequestID(c), map[string]any{"param": name}))
		return 0, false
	}
	return id, true
}
