package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeTransport represents network failures and 5xx answers from NIC endpoints
	ErrTypeTransport ErrorType = "transport"
	// ErrTypeAuth represents rejected or missing credentials and tokens
	ErrTypeAuth ErrorType = "authentication"
	// ErrTypeNoToken represents a token request made before any acquisition
	ErrTypeNoToken ErrorType = "no_token"
	// ErrTypeMalformed represents undecodable response bodies or missing fields
	ErrTypeMalformed ErrorType = "malformed_response"
	// ErrTypeAPI represents error envelopes returned by the DNS-master API
	ErrTypeAPI ErrorType = "api"
	// ErrTypeValidation represents validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeRateLimit represents rate limit errors
	ErrTypeRateLimit ErrorType = "rate_limit"
)

// DNS-master error codes the client reacts to.
const (
	CodeExpiredToken     = "4097"
	CodeServiceNotFound  = "4009"
	CodeZoneNotFound     = "4028"
	CodeInvalidRecord    = "4327"
	contextKeyStatus     = "status"
	contextKeyBody       = "body"
	maxContextBodyLength = 512
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		contextParts := make([]string, 0, len(keys))
		for _, k := range keys {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithResponse records the HTTP status and a truncated body of the response
// that produced the error.
func (e *AppError) WithResponse(status int, body []byte) *AppError {
	e.WithContext(contextKeyStatus, status)
	if len(body) > 0 {
		text := string(body)
		if len(text) > maxContextBodyLength {
			cut := maxContextBodyLength
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut] + "..."
		}
		e.WithContext(contextKeyBody, text)
	}
	return e
}

// Status returns the HTTP status stored by WithResponse, or 0.
func (e *AppError) Status() int {
	if status, ok := e.Context[contextKeyStatus].(int); ok {
		return status
	}
	return 0
}

// TransportError creates a new transport error
func TransportError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeTransport,
		Message: msg,
		Cause:   cause,
	}
}

// AuthError creates a new authentication error
func AuthError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeAuth,
		Message: msg,
	}
}

// NoTokenError creates a new error for operations that need a token when none is held
func NoTokenError() *AppError {
	return &AppError{
		Type:    ErrTypeNoToken,
		Message: "no token has been acquired",
	}
}

// MalformedResponseError creates a new malformed response error
func MalformedResponseError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeMalformed,
		Message: msg,
		Cause:   cause,
	}
}

// APIError creates a new error from a DNS-master error envelope
func APIError(code, msg string) *AppError {
	return &AppError{
		Type:    ErrTypeAPI,
		Message: msg,
		Code:    code,
	}
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// RateLimitError creates a new rate limit error
func RateLimitError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeRateLimit,
		Message: fmt.Sprintf("rate limit exceeded for %s", resource),
	}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := As(err)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}

// HasCode reports whether err is an API error with the given NIC code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == ErrTypeAPI && appErr.Code == code
}

// IsExpiredToken reports whether the API rejected the bearer token.
func IsExpiredToken(err error) bool { return HasCode(err, CodeExpiredToken) }

// IsInvalidRecord reports whether the API refused a record payload.
func IsInvalidRecord(err error) bool { return HasCode(err, CodeInvalidRecord) }

// IsServiceNotFound reports whether the API did not know the service.
func IsServiceNotFound(err error) bool { return HasCode(err, CodeServiceNotFound) }

// IsZoneNotFound reports whether the API did not know the zone.
func IsZoneNotFound(err error) bool { return HasCode(err, CodeZoneNotFound) }
