// Package apierrors provides the API-facing error taxonomy, mapping
// domain failures to the IDTA Result envelope and an HTTP status code.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is one of the IDTA Result envelope's stable error codes.
type Code string

const (
	CodeNotFound            Code = "NotFound"
	CodeConflict            Code = "Conflict"
	CodeBadRequest          Code = "BadRequest"
	CodeInvalidBase64Url    Code = "InvalidBase64Url"
	CodePreconditionFailed  Code = "PreconditionFailed"
	CodeTooManyRequests     Code = "TooManyRequests"
	CodeInternalServerError Code = "InternalServerError"
	CodeUnauthorized        Code = "Unauthorized"
	CodeForbidden           Code = "Forbidden"
)

// MessageType is the IDTA Result envelope's message severity.
type MessageType string

const (
	MessageTypeError     MessageType = "Error"
	MessageTypeWarning   MessageType = "Warning"
	MessageTypeInfo      MessageType = "Info"
	MessageTypeException MessageType = "Exception"
)

// APIError is a structured error carrying everything needed to render
// an IDTA Result envelope response.
type APIError struct {
	Code        Code
	MessageType MessageType
	Message     string
	HTTPStatus  int
	Details     map[string]interface{}
	Err         error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *APIError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a key/value pair to the error for logging.
func (e *APIError) WithDetails(key string, value interface{}) *APIError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an APIError of type Error.
func New(code Code, message string, httpStatus int) *APIError {
	return &APIError{Code: code, MessageType: MessageTypeError, Message: message, HTTPStatus: httpStatus}
}

// Wrap creates an APIError of type Exception, carrying the underlying
// cause.
func Wrap(code Code, message string, httpStatus int, err error) *APIError {
	return &APIError{Code: code, MessageType: MessageTypeException, Message: message, HTTPStatus: httpStatus, Err: err}
}

// NotFound reports a repository lookup miss.
func NotFound(resource, id string) *APIError {
	return New(CodeNotFound, "resource not found", http.StatusNotFound).
		WithDetails("resource", resource).
		WithDetails("id", id)
}

// Conflict reports a create on an id that already exists, or any other
// uniqueness violation.
func Conflict(message string) *APIError {
	return New(CodeConflict, message, http.StatusConflict)
}

// BadRequest reports a domain validation failure.
func BadRequest(message string) *APIError {
	return New(CodeBadRequest, message, http.StatusBadRequest)
}

// InvalidBase64Url reports a malformed base64url path segment.
func InvalidBase64Url(value string) *APIError {
	return New(CodeInvalidBase64Url, "invalid base64url identifier", http.StatusBadRequest).
		WithDetails("value", value)
}

// PreconditionFailed reports an If-Match mismatch.
func PreconditionFailed(expected, actual string) *APIError {
	return New(CodePreconditionFailed, "precondition failed", http.StatusPreconditionFailed).
		WithDetails("expected", expected).
		WithDetails("actual", actual)
}

// TooManyRequests reports a rate-limit rejection. retryAfterSeconds is
// surfaced by the caller as the Retry-After header.
func TooManyRequests(retryAfterSeconds int) *APIError {
	return New(CodeTooManyRequests, "rate limit exceeded", http.StatusTooManyRequests).
		WithDetails("retry_after_seconds", retryAfterSeconds)
}

// Internal wraps an uncaught or infrastructure error.
func Internal(message string, err error) *APIError {
	return Wrap(CodeInternalServerError, message, http.StatusInternalServerError, err)
}

// Unauthorized reports a missing or invalid credential.
func Unauthorized(message string) *APIError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

// Forbidden reports an authenticated caller lacking the required
// permission.
func Forbidden(message string) *APIError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

// As extracts an *APIError from err's chain, if present.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// GetHTTPStatus returns the HTTP status for err, defaulting to 500
// when err is not an *APIError.
func GetHTTPStatus(err error) int {
	if apiErr, ok := As(err); ok {
		return apiErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
