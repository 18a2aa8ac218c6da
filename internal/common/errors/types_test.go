package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name: "basic error",
			appError: &AppError{
				Type:    ErrTypeConfig,
				Message: "configuration is invalid",
			},
			want: "config: configuration is invalid",
		},
		{
			name: "error with code",
			appError: &AppError{
				Type:    ErrTypeAPI,
				Message: "zone not found",
				Code:    CodeZoneNotFound,
			},
			want: "api: zone not found: code=4028",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeTransport,
				Message: "token request failed",
				Cause:   errors.New("connection refused"),
			},
			want: "transport: token request failed: cause=connection refused",
		},
		{
			name: "error with sorted context",
			appError: &AppError{
				Type:    ErrTypeMalformed,
				Message: "bad body",
				Context: map[string]interface{}{
					"status": 200,
					"body":   "<html>",
				},
			},
			want: "malformed_response: bad body: context={body=<html>, status=200}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Error()
			if got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	appError := TransportError("request failed", cause)

	if !errors.Is(appError, cause) {
		t.Errorf("errors.Is() did not find the cause")
	}
}

func TestAppError_WithResponse(t *testing.T) {
	body := []byte(strings.Repeat("x", maxContextBodyLength+10))
	err := AuthError("rejected").WithResponse(401, body)

	if err.Status() != 401 {
		t.Errorf("Status() = %d, want 401", err.Status())
	}
	got, _ := err.Context["body"].(string)
	if len(got) != maxContextBodyLength+3 {
		t.Errorf("body length = %d, want %d", len(got), maxContextBodyLength+3)
	}
	if AuthError("x").Status() != 0 {
		t.Errorf("Status() without response should be 0")
	}
}

func TestAppError_WithResponseKeepsRunesWhole(t *testing.T) {
	// "x" shifts the two-byte runes so the limit falls inside one
	body := []byte("x" + strings.Repeat("ошибка", maxContextBodyLength))
	err := APIError(CodeZoneNotFound, "zone not found").WithResponse(404, body)

	got, _ := err.Context["body"].(string)
	if !utf8.ValidString(got) {
		t.Errorf("truncated body is not valid UTF-8: %q", got[len(got)-8:])
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated body should end with an ellipsis")
	}
	if len(got) > maxContextBodyLength+3 {
		t.Errorf("body length = %d, want at most %d", len(got), maxContextBodyLength+3)
	}
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("listing zones: %w", NoTokenError())

	tests := []struct {
		name    string
		err     error
		errType ErrorType
		want    bool
	}{
		{"nil error", nil, ErrTypeAuth, false},
		{"plain error", errors.New("boom"), ErrTypeAuth, false},
		{"matching type", AuthError("bad"), ErrTypeAuth, true},
		{"other type", AuthError("bad"), ErrTypeTransport, false},
		{"wrapped", wrapped, ErrTypeNoToken, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsType(tt.err, tt.errType); got != tt.want {
				t.Errorf("IsType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetType(t *testing.T) {
	if got := GetType(nil); got != "" {
		t.Errorf("GetType(nil) = %v, want empty", got)
	}
	if got := GetType(errors.New("plain")); got != ErrTypeInternal {
		t.Errorf("GetType(plain) = %v, want %v", got, ErrTypeInternal)
	}
	if got := GetType(MalformedResponseError("x", nil)); got != ErrTypeMalformed {
		t.Errorf("GetType() = %v, want %v", got, ErrTypeMalformed)
	}
}

func TestCodeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"expired token", APIError(CodeExpiredToken, "expired"), IsExpiredToken, true},
		{"invalid record", APIError(CodeInvalidRecord, "bad rr"), IsInvalidRecord, true},
		{"service not found", APIError(CodeServiceNotFound, "no service"), IsServiceNotFound, true},
		{"zone not found", fmt.Errorf("wrap: %w", APIError(CodeZoneNotFound, "no zone")), IsZoneNotFound, true},
		{"code on non-api error", AuthError("x").WithCode(CodeExpiredToken), IsExpiredToken, false},
		{"different code", APIError("1", "other"), IsZoneNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
