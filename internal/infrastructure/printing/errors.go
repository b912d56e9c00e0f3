package printing

// RenderError represents an error while producing a receipt document
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeInvalidSale   = "INVALID_SALE"
	ErrCodeEncodeFailed  = "ENCODE_FAILED"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeInvalidHTML   = "INVALID_HTML"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
