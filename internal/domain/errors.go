package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so a sentinel still matches after a cause has been attached with WithCause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithCause returns a copy of the error carrying err as its cause.
func (e *DomainError) WithCause(err error) *DomainError {
	return NewDomainErrorWithCause(e.Code, e.Message, err)
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeUpstream           = "UPSTREAM_ERROR"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidDocument  = NewDomainError(ErrCodeValidation, "document id and text are required")
	ErrInvalidChatInput = NewDomainError(ErrCodeValidation, "session id and message are required")
	ErrInvalidQuery     = NewDomainError(ErrCodeValidation, "query is required")
)

// Not found errors
var (
	ErrDocumentNotIndexed = NewDomainError(ErrCodeNotFound, "document not indexed")
	ErrJobNotFound        = NewDomainError(ErrCodeNotFound, "index job not found")
)

// Model capability errors
var (
	ErrServiceUnavailable    = NewDomainError(ErrCodeServiceUnavailable, "model service not configured")
	ErrEmbeddingFailed       = NewDomainError(ErrCodeUpstream, "embedding request failed")
	ErrCompletionFailed      = NewDomainError(ErrCodeUpstream, "completion request failed")
	ErrCompletionInterrupted = NewDomainError(ErrCodeUpstream, "completion stream interrupted")
)

// Internal errors
var (
	ErrDimensionMismatch = NewDomainError(ErrCodeInternalError, "embedding dimension mismatch")
	ErrStreamConsumed    = NewDomainError(ErrCodeInternalError, "completion stream already consumed")
)
