package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeForbidden          = "FORBIDDEN"

	// Validation errors
	ErrCodeInvalidInput = "INVALID_INPUT"

	// Resource errors
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// Transport errors, produced on the client side only
	ErrCodeNetwork = "NETWORK_ERROR"
	ErrCodeTimeout = "TIMEOUT"
)

// DefaultMessage is used when neither the payload nor the cause carries a message.
const DefaultMessage = "An error occurred"

// Kind classifies an APIError for retry and notification decisions.
type Kind int

const (
	KindNetwork Kind = iota
	KindUnauthorized
	KindValidation
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// APIError is the uniform error shape. The backend writes Code, Message and
// Details; the client additionally records the HTTP status and the raw body.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`

	Status  int             `json:"-"`
	Payload json.RawMessage `json:"-"`

	cause error
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap exposes the transport error, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// Kind reports which branch of the error taxonomy the error belongs to.
func (e *APIError) Kind() Kind {
	switch {
	case e.Status == 0:
		return KindNetwork
	case e.Status == http.StatusUnauthorized:
		return KindUnauthorized
	case e.Status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewAPIErrorWithDetails creates a new APIError with details
func NewAPIErrorWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// FromResponse builds an APIError from a non-2xx response body.
func FromResponse(status int, body []byte) *APIError {
	e := &APIError{Status: status, Code: codeForStatus(status)}
	if len(body) > 0 {
		e.Payload = json.RawMessage(append([]byte(nil), body...))
	}

	var decoded struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Error   string      `json:"error"`
		Details interface{} `json:"details"`
	}
	if len(body) > 0 && json.Unmarshal(body, &decoded) == nil {
		if decoded.Code != "" {
			e.Code = decoded.Code
		}
		e.Details = decoded.Details
		switch {
		case decoded.Message != "":
			e.Message = decoded.Message
		case decoded.Error != "":
			e.Message = decoded.Error
		}
	}
	if e.Message == "" {
		if text := http.StatusText(status); text != "" {
			e.Message = text
		} else {
			e.Message = DefaultMessage
		}
	}
	return e
}

// FromTransport wraps a failure that happened before any response arrived.
func FromTransport(err error, timeout bool) *APIError {
	e := &APIError{Code: ErrCodeNetwork, cause: err}
	if timeout {
		e.Code = ErrCodeTimeout
	}
	if err != nil && err.Error() != "" {
		e.Message = err.Error()
	} else {
		e.Message = DefaultMessage
	}
	return e
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case status == http.StatusForbidden:
		return ErrCodeForbidden
	case status == http.StatusNotFound:
		return ErrCodeNotFound
	case status == http.StatusConflict:
		return ErrCodeConflict
	case status == http.StatusServiceUnavailable:
		return ErrCodeServiceUnavailable
	case status >= 500:
		return ErrCodeInternalError
	default:
		return ErrCodeInvalidInput
	}
}

// As extracts an *APIError from an error chain.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is an authorization failure.
func IsUnauthorized(err error) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Kind() == KindUnauthorized
}

// IsRetryable reports whether a read may be retried: transport failures and
// 5xx responses are, authorization and validation failures are not.
func IsRetryable(err error) bool {
	apiErr, ok := As(err)
	if !ok {
		return false
	}
	kind := apiErr.Kind()
	return kind == KindNetwork || kind == KindServer
}

// Message returns the user-facing message of any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := As(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultMessage
}

// Predefined errors
var (
	ErrUnauthorized       = NewAPIError(ErrCodeUnauthorized, "Authentication required")
	ErrNotFound           = NewAPIError(ErrCodeNotFound, "Resource not found")
	ErrInvalidInput       = NewAPIError(ErrCodeInvalidInput, "Invalid request body")
	ErrInternalError      = NewAPIError(ErrCodeInternalError, "Internal server error")
	ErrServiceUnavailable = NewAPIError(ErrCodeServiceUnavailable, "Service temporarily unavailable")
)

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.AbortWithStatusJSON(statusCode, err)
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthorized, message))
}

// InvalidCredentials sends a 401 response for a failed login
func InvalidCredentials(c *gin.Context) {
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeInvalidCredentials, "Invalid email or password"))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeForbidden, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, message))
}

// BadRequestWithDetails sends a 400 response with details
func BadRequestWithDetails(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(ErrCodeInvalidInput, message, details))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "Resource conflict"
	}
	RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeConflict, message))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}
