package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Authentication failures. They never reach a business handler; the
// transport resolves them into UNAUTHORIZED or FORBIDDEN envelopes.
var (
	// ErrMissingCredentials indicates that no usable bearer credential was sent
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrInvalidCredentials indicates that the credential failed verification
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden indicates an authenticated caller without the required role
	ErrForbidden = errors.New("forbidden")
)

// FieldIssue describes one failed validation rule.
type FieldIssue struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// ValidationError is a structured schema failure.
type ValidationError struct {
	Issues []FieldIssue `json:"issues"`
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+": "+is.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the paths of all failed fields in order.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		out = append(out, is.Field)
	}
	return out
}

// ProviderError is a failure reported by the external auth provider.
type ProviderError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth provider: %s (%d): %s", e.Code, e.Status, e.Message)
}

// StoreError is a failure reported by a data store. Code is a SQLSTATE or a
// PostgREST code.
type StoreError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Hint    string `json:"hint,omitempty"`
	cause   error
}

// NewStoreError creates a StoreError that keeps cause reachable through Unwrap.
func NewStoreError(code, message string, cause error) *StoreError {
	return &StoreError{Code: code, Message: message, cause: cause}
}

func (e *StoreError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("store: %s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("store: %s: %s", e.Code, e.Message)
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// NoRows returns the missing-row StoreError wrapping cause.
func NoRows(cause error) *StoreError {
	return NewStoreError(NoRowsCode, "no rows returned", cause)
}

// Error is an application error with an explicit code.
type Error struct {
	Code    Code
	Message string
	Details any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// New creates an application error. An empty message falls back to the
// code's default message when classified.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Validation creates a VALIDATION_ERROR with optional details.
func Validation(message string, details any) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

// Unauthorized creates an UNAUTHORIZED error.
func Unauthorized(message string) *Error {
	if message == "" {
		message = CodeUnauthorized.Message()
	}
	return New(CodeUnauthorized, message)
}

// Forbidden creates a FORBIDDEN error.
func Forbidden(message string) *Error {
	if message == "" {
		message = CodeForbidden.Message()
	}
	return New(CodeForbidden, message)
}

// NotFound creates a NOT_FOUND error for the named resource.
func NotFound(resource string) *Error {
	if resource == "" {
		resource = "resource"
	}
	return New(CodeNotFound, resource+" not found")
}

// Wrap wraps an error with additional context.
// If err is nil, Wrap returns nil.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	if context == "" {
		return err
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Mark attaches a sentinel to err so that errors.Is(result, sentinel) holds
// while the original error stays reachable.
func Mark(err, sentinel error) error {
	if err == nil {
		return sentinel
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
