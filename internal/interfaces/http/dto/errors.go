package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal    = "INTERNAL_ERROR"
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeTooLarge    = "REQUEST_TOO_LARGE"
	ErrCodePersistence = "PERSISTENCE_FAILURE"
)

// Validation error codes
const (
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeInvalidDestination = "INVALID_DESTINATION"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "INVALID_TOKEN"
	ErrCodeTokenRevoked = "TOKEN_REVOKED"
)

// Resource error codes
const (
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeProductNotFound = "PRODUCT_NOT_FOUND"
	ErrCodeSaleNotFound    = "SALE_NOT_FOUND"
	ErrCodeAlreadyExists   = "ALREADY_EXISTS"
	ErrCodeConflict        = "CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInsufficientStock  = "INSUFFICIENT_STOCK"
	ErrCodeTotalMismatch      = "TOTAL_MISMATCH"
	ErrCodeTenderInsufficient = "AMOUNT_TENDERED_INSUFFICIENT"
	ErrCodePaymentUnconfirmed = "PAYMENT_UNCONFIRMED"
	ErrCodeRenderFailed       = "RENDER_FAILED"
)

// Downstream error codes
const (
	ErrCodeDeliveryFailed      = "DELIVERY_FAILED"
	ErrCodeDeliveryUnavailable = "DELIVERY_UNAVAILABLE"
	ErrCodePaymentUnavailable  = "PAYMENT_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeTooLarge:    http.StatusRequestEntityTooLarge,
	ErrCodePersistence: http.StatusServiceUnavailable,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeInvalidDestination: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeProductNotFound: http.StatusNotFound,
	ErrCodeSaleNotFound:    http.StatusNotFound,
	ErrCodeAlreadyExists:   http.StatusConflict,
	ErrCodeConflict:        http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInsufficientStock:  http.StatusUnprocessableEntity,
	ErrCodeTotalMismatch:      http.StatusUnprocessableEntity,
	ErrCodeTenderInsufficient: http.StatusUnprocessableEntity,
	ErrCodePaymentUnconfirmed: http.StatusUnprocessableEntity,
	ErrCodeRenderFailed:       http.StatusUnprocessableEntity,

	// Downstream errors
	ErrCodeDeliveryFailed:      http.StatusBadGateway,
	ErrCodeDeliveryUnavailable: http.StatusServiceUnavailable,
	ErrCodePaymentUnavailable:  http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// SaleErrorStatus is GetHTTPStatus for errors raised while committing a
// sale. A product missing from the cart rejects the sale rather than
// naming a missing resource.
func SaleErrorStatus(code string) int {
	if code == ErrCodeProductNotFound {
		return http.StatusUnprocessableEntity
	}
	return GetHTTPStatus(code)
}
