// Package errors defines the application error taxonomy. Every failure in the
// submission pipeline is expressed as an *AppError carrying an error type, the
// user-facing message, optional internal detail, and the HTTP status it maps
// to. A single middleware at the handler boundary converts AppErrors to JSON
// responses; the Detail field is logged but never returned to the caller.
package errors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ValidationError    ErrorType = "VALIDATION_ERROR"
	OriginError        ErrorType = "ORIGIN_REJECTED"
	MethodError        ErrorType = "METHOD_NOT_ALLOWED"
	PayloadError       ErrorType = "PAYLOAD_TOO_LARGE"
	RateLimitError     ErrorType = "RATE_LIMITED"
	VerificationError  ErrorType = "VERIFICATION_FAILED"
	ConfigurationError ErrorType = "CONFIGURATION_ERROR"
	DispatchError      ErrorType = "DISPATCH_FAILURE"
	ServerError        ErrorType = "SERVER_ERROR"
	NotFoundError      ErrorType = "NOT_FOUND"
)

// AppError represents a structured application error.
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

// New creates a new AppError with the status derived from the error type.
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context. The raw error ends up in
// Detail (logged, not returned).
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// Helper constructors for the pipeline's failure modes.

// ValidationFailed covers malformed JSON, missing fields, and field-level
// rule violations. The message is user-facing and specific on purpose:
// field validation is not security-sensitive.
func ValidationFailed(message string, detail string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusBadRequest,
	}
}

// OriginNotAllowed rejects requests whose Origin header is not on the
// configured allow-list.
func OriginNotAllowed(origin string) *AppError {
	return &AppError{
		Type:       OriginError,
		Message:    "Origin not allowed",
		Detail:     fmt.Sprintf("origin: %s", origin),
		HTTPStatus: http.StatusForbidden,
	}
}

// MethodNotAllowed rejects any method other than POST or OPTIONS.
func MethodNotAllowed(method string) *AppError {
	return &AppError{
		Type:       MethodError,
		Message:    "Method not allowed",
		Detail:     fmt.Sprintf("method: %s", method),
		HTTPStatus: http.StatusMethodNotAllowed,
	}
}

// PayloadTooLarge rejects request bodies over the configured byte limit
// before they are parsed.
func PayloadTooLarge(limit int64) *AppError {
	return &AppError{
		Type:       PayloadError,
		Message:    "Request body too large",
		Detail:     fmt.Sprintf("limit: %d bytes", limit),
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
}

// RateLimitExceeded rejects submissions from clients over their window quota.
func RateLimitExceeded(retryAfterSeconds int) *AppError {
	return &AppError{
		Type:       RateLimitError,
		Message:    "Too many requests. Please try again later.",
		Detail:     fmt.Sprintf("retry after: %ds", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// VerificationFailed covers every bot-token failure mode: invalid token,
// verifier unreachable, or a non-success verifier response. The message is
// deliberately generic so callers cannot distinguish them.
func VerificationFailed(err error) *AppError {
	e := &AppError{
		Type:       VerificationError,
		Message:    "Security verification failed. Please try again.",
		HTTPStatus: http.StatusBadRequest,
		Raw:        err,
	}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// VerificationContextInvalid rejects tokens that verified successfully but
// were issued for a hostname outside the allow-list (token replay across
// unrelated sites sharing a verification secret).
func VerificationContextInvalid(hostname string) *AppError {
	return &AppError{
		Type:       VerificationError,
		Message:    "Invalid verification context.",
		Detail:     fmt.Sprintf("hostname: %s", hostname),
		HTTPStatus: http.StatusBadRequest,
	}
}

// DispatchFailed covers any email provider failure. Provider error text stays
// in Detail and is never surfaced to the caller.
func DispatchFailed(err error) *AppError {
	e := &AppError{
		Type:       DispatchError,
		Message:    "Failed to send message. Please try again later.",
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// Misconfigured signals a missing required secret, credential, or store
// binding. The caller sees only a generic server error.
func Misconfigured(detail string) *AppError {
	return &AppError{
		Type:       ConfigurationError,
		Message:    "Internal server error",
		Detail:     detail,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// InternalServerError is the catch-all for unexpected faults.
func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NotFound rejects requests for unknown routes.
func NotFound(path string) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    "Not found",
		Detail:     fmt.Sprintf("path: %s", path),
		HTTPStatus: http.StatusNotFound,
	}
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError, VerificationError:
		return http.StatusBadRequest
	case OriginError:
		return http.StatusForbidden
	case MethodError:
		return http.StatusMethodNotAllowed
	case PayloadError:
		return http.StatusRequestEntityTooLarge
	case RateLimitError:
		return http.StatusTooManyRequests
	case NotFoundError:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
