package csvimport

import "fmt"

// Row error codes
const (
	CodeRequired     = "REQUIRED"
	CodeInvalidType  = "INVALID_TYPE"
	CodeInvalidValue = "INVALID_VALUE"
	CodeDuplicate    = "DUPLICATE_IN_FILE"
	CodeMalformedRow = "MALFORMED_ROW"
)

// DefaultMaxErrors bounds the errors kept by a collection
const DefaultMaxErrors = 100

// RowError is a problem with one field of one row
type RowError struct {
	Line    int    `json:"line"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("line %d, column '%s': %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ErrorCollection keeps the first max errors and counts the rest
type ErrorCollection struct {
	errors []RowError
	max    int
	total  int
	lines  map[int]struct{}
}

// NewErrorCollection creates a collection. A non-positive max uses
// DefaultMaxErrors.
func NewErrorCollection(max int) *ErrorCollection {
	if max <= 0 {
		max = DefaultMaxErrors
	}
	return &ErrorCollection{max: max, lines: make(map[int]struct{})}
}

// Add records an error
func (c *ErrorCollection) Add(err RowError) {
	c.total++
	c.lines[err.Line] = struct{}{}
	if len(c.errors) < c.max {
		c.errors = append(c.errors, err)
	}
}

// Required records a missing mandatory field
func (c *ErrorCollection) Required(line int, column string) {
	c.Add(RowError{Line: line, Column: column, Code: CodeRequired,
		Message: fmt.Sprintf("field '%s' is required", column)})
}

// InvalidType records a value that does not parse as the expected type
func (c *ErrorCollection) InvalidType(line int, column, expected, value string) {
	c.Add(RowError{Line: line, Column: column, Code: CodeInvalidType,
		Message: "expected " + expected, Value: value})
}

// Errors returns the kept errors
func (c *ErrorCollection) Errors() []RowError {
	if c.errors == nil {
		return []RowError{}
	}
	return c.errors
}

// Total returns the number of errors including those not kept
func (c *ErrorCollection) Total() int {
	return c.total
}

// HasErrors reports whether any error was recorded
func (c *ErrorCollection) HasErrors() bool {
	return c.total > 0
}

// Truncated reports whether errors were dropped over the limit
func (c *ErrorCollection) Truncated() bool {
	return c.total > c.max
}

// LineFailed reports whether the line has at least one error
func (c *ErrorCollection) LineFailed(line int) bool {
	_, ok := c.lines[line]
	return ok
}

// FailedLines returns the number of distinct lines with errors
func (c *ErrorCollection) FailedLines() int {
	return len(c.lines)
}
