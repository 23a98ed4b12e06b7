package domain

import (
	"errors"
	"sort"
	"strings"
)

// Authentication errors
var (
	ErrInvalidLogin     = errors.New("invalid login")
	ErrInactive         = errors.New("account is inactive")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountExists    = errors.New("account already exists")
)

// OTP errors
var (
	ErrInvalidToken       = errors.New("invalid or expired otp token")
	ErrDeliveryFailed     = errors.New("otp delivery failed")
	ErrDeviceNotFound     = errors.New("otp device not found")
	ErrOTPMaxAttempts     = errors.New("maximum otp attempts exceeded")
	ErrOTPResendLimit     = errors.New("otp resend limit exceeded")
	ErrMethodNotSupported = errors.New("otp method not supported")
)

// Token errors
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("malformed token")
)

// Lookup errors
var (
	ErrEditorNotFound = errors.New("editor not found")
)

// ValidationError carries field-scoped schema failures caught before any
// domain logic runs. The empty field name holds non-field messages.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError builds a ValidationError with one message
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add appends a message for field
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], message)
}

// Empty reports whether no messages were recorded
func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// OrNil returns v as an error only when it carries messages
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		name := k
		if name == "" {
			name = "non_field_errors"
		}
		parts = append(parts, name+": "+strings.Join(v.Fields[k], "; "))
	}
	return "validation error: " + strings.Join(parts, ", ")
}

// Error codes exposed to API clients
const (
	CodeInvalidLogin     = "invalid_login"
	CodeInactive         = "inactive"
	CodeInvalidToken     = "invalid_token"
	CodePasswordMismatch = "password_mismatch"
	CodeValidation       = "validation_error"
	CodeDeliveryFailed   = "delivery_failed"
	CodeTooManyAttempts  = "too_many_attempts"
	CodeResendThrottled  = "resend_throttled"
	CodeTokenNotValid    = "token_not_valid"
	CodeInternal         = "internal_error"
)

// ErrorCode maps err to the stable code clients see
func ErrorCode(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, ErrMethodNotSupported):
		return CodeValidation
	case errors.Is(err, ErrInvalidLogin):
		return CodeInvalidLogin
	case errors.Is(err, ErrInactive):
		return CodeInactive
	case errors.Is(err, ErrInvalidToken):
		return CodeInvalidToken
	case errors.Is(err, ErrPasswordMismatch):
		return CodePasswordMismatch
	case errors.Is(err, ErrDeliveryFailed):
		return CodeDeliveryFailed
	case errors.Is(err, ErrOTPMaxAttempts):
		return CodeTooManyAttempts
	case errors.Is(err, ErrOTPResendLimit):
		return CodeResendThrottled
	case errors.Is(err, ErrTokenInvalid), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenMalformed):
		return CodeTokenNotValid
	}
	return CodeInternal
}
