package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
)

type fakeLoginFlow struct {
	SubmitCredentialsFunc func(ctx context.Context, identifier, password string, role domain.Role) (*domain.LoginStep, error)
	RequestOTPFunc        func(ctx context.Context, phone string, role domain.Role, method domain.OTPMethod) (*domain.LoginStep, error)
	SubmitOTPFunc         func(ctx context.Context, phone string, role domain.Role, code string) (*domain.LoginStep, error)
}

func (f *fakeLoginFlow) MethodChoices() []domain.MethodChoice {
	return []domain.MethodChoice{{Code: "sms", Label: "Text message"}}
}

func (f *fakeLoginFlow) SubmitCredentials(ctx context.Context, identifier, password string, role domain.Role) (*domain.LoginStep, error) {
	return f.SubmitCredentialsFunc(ctx, identifier, password, role)
}

func (f *fakeLoginFlow) RequestOTP(ctx context.Context, phone string, role domain.Role, method domain.OTPMethod) (*domain.LoginStep, error) {
	return f.RequestOTPFunc(ctx, phone, role, method)
}

func (f *fakeLoginFlow) SubmitOTP(ctx context.Context, phone string, role domain.Role, code string) (*domain.LoginStep, error) {
	return f.SubmitOTPFunc(ctx, phone, role, code)
}

type fakeResetFlow struct {
	RequestResetFunc func(ctx context.Context, email string, role domain.Role) (*domain.ChallengeResult, error)
	ConfirmResetFunc func(ctx context.Context, email string, role domain.Role, code, password, confirm string) error
}

func (f *fakeResetFlow) RequestReset(ctx context.Context, email string, role domain.Role) (*domain.ChallengeResult, error) {
	return f.RequestResetFunc(ctx, email, role)
}

func (f *fakeResetFlow) ConfirmReset(ctx context.Context, email string, role domain.Role, code, password, confirm string) error {
	return f.ConfirmResetFunc(ctx, email, role, code, password, confirm)
}

const testDigits = 6

func completed(role domain.Role) *domain.LoginStep {
	return &domain.LoginStep{
		State: domain.Completed,
		Payload: &domain.TokenPayload{
			AccessToken: "access",
			Refresh:     "refresh",
			ExpiryDate:  time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
			Profile: domain.Profile{
				Username: "jane", PhoneNumber: "+14155550100",
				Role: role, RoleDisplay: role.Display(), IsActive: true,
			},
		},
	}
}

func serve(t *testing.T, h gin.HandlerFunc, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	h(c)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func fieldMessages(body map[string]interface{}, field string) []interface{} {
	fields, _ := body["fields"].(map[string]interface{})
	msgs, _ := fields[field].([]interface{})
	return msgs
}

func TestAuthHandlers_Login(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		flowErr        error
		expectedStatus int
		expectedCode   string
		expectedError  string
		field          string
	}{
		{
			name:           "token payload",
			body:           LoginRequest{Username: "jane", Password: "s3cretpass1", Role: "client"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad credentials",
			body:           LoginRequest{Username: "jane", Password: "nope", Role: "client"},
			flowErr:        domain.ErrInvalidLogin,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.CodeInvalidLogin,
			expectedError:  msgInvalidCredentials,
			field:          nonFieldErrors,
		},
		{
			name:           "inactive",
			body:           LoginRequest{Username: "jane", Password: "s3cretpass1", Role: "client"},
			flowErr:        fmt.Errorf("lookup: %w", domain.ErrInactive),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.CodeInactive,
			expectedError:  msgInactive,
		},
		{
			name:           "unknown role",
			body:           LoginRequest{Username: "jane", Password: "s3cretpass1", Role: "guest"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.CodeValidation,
			field:          "role",
		},
		{
			name:           "missing username",
			body:           LoginRequest{Password: "s3cretpass1", Role: "client"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.CodeValidation,
			field:          "username",
		},
		{
			name:           "malformed json",
			body:           "{",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.CodeValidation,
			field:          nonFieldErrors,
		},
		{
			name:           "unexpected failure",
			body:           LoginRequest{Username: "jane", Password: "s3cretpass1", Role: "client"},
			flowErr:        fmt.Errorf("db down"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   domain.CodeInternal,
			expectedError:  msgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRole domain.Role
			flow := &fakeLoginFlow{
				SubmitCredentialsFunc: func(_ context.Context, identifier, password string, role domain.Role) (*domain.LoginStep, error) {
					gotRole = role
					if tt.flowErr != nil {
						return nil, tt.flowErr
					}
					return completed(role), nil
				},
			}
			h := NewAuthHandlers(flow, &fakeResetFlow{}, testDigits, zap.NewNop())

			w, body := serve(t, h.Login, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusCreated {
				assert.Equal(t, domain.RoleClient, gotRole)
				assert.Equal(t, "access", body["access_token"])
				assert.Equal(t, "refresh", body["refresh"])
				assert.Equal(t, "client", body["role"])
				assert.Equal(t, "Client", body["role_display"])
				assert.Equal(t, "2025-06-05T00:00:00Z", body["expiry_date"])
				return
			}
			assert.Equal(t, tt.expectedCode, body["code"])
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, body["error"])
			}
			if tt.field != "" {
				assert.NotEmpty(t, fieldMessages(body, tt.field))
			}
		})
	}
}

func TestAuthHandlers_SendOTP(t *testing.T) {
	tests := []struct {
		name           string
		body           SendOTPRequest
		flowErr        error
		expectedStatus int
		expectedCode   string
		field          string
	}{
		{
			name:           "sent",
			body:           SendOTPRequest{PhoneNumber: "+14155550100", Role: "client", Method: "SMS"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown phone for admin",
			body:           SendOTPRequest{PhoneNumber: "+14155550100", Role: "admin", Method: "sms"},
			flowErr:        domain.ErrInvalidLogin,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.CodeInvalidLogin,
			field:          nonFieldErrors,
		},
		{
			name:           "provider down",
			body:           SendOTPRequest{PhoneNumber: "+14155550100", Role: "client", Method: "sms"},
			flowErr:        fmt.Errorf("%w: twilio 500", domain.ErrDeliveryFailed),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.CodeDeliveryFailed,
		},
		{
			name:           "resend window",
			body:           SendOTPRequest{PhoneNumber: "+14155550100", Role: "client", Method: "sms"},
			flowErr:        domain.ErrOTPResendLimit,
			expectedStatus: http.StatusTooManyRequests,
			expectedCode:   domain.CodeResendThrottled,
		},
		{
			name:           "unsupported method",
			body:           SendOTPRequest{PhoneNumber: "+14155550100", Role: "client", Method: "pigeon"},
			flowErr:        domain.NewValidationError("method", "Select a valid choice. That choice is not one of the available choices."),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.CodeValidation,
			field:          "method",
		},
		{
			name:           "missing method",
			body:           SendOTPRequest{PhoneNumber: "+14155550100", Role: "client"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.CodeValidation,
			field:          "method",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotMethod domain.OTPMethod
			flow := &fakeLoginFlow{
				RequestOTPFunc: func(_ context.Context, phone string, role domain.Role, method domain.OTPMethod) (*domain.LoginStep, error) {
					gotMethod = method
					if tt.flowErr != nil {
						return nil, tt.flowErr
					}
					return &domain.LoginStep{State: domain.AwaitingOTP, Challenge: &domain.ChallengeResult{Sent: true}}, nil
				},
			}
			h := NewAuthHandlers(flow, &fakeResetFlow{}, testDigits, zap.NewNop())

			w, body := serve(t, h.SendOTP, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, domain.MethodSMS, gotMethod)
				assert.Zero(t, w.Body.Len())
				return
			}
			assert.Equal(t, tt.expectedCode, body["code"])
			if tt.field != "" {
				assert.NotEmpty(t, fieldMessages(body, tt.field))
			}
		})
	}
}

func TestAuthHandlers_VerifyOTP(t *testing.T) {
	tests := []struct {
		name           string
		flowErr        error
		expectedStatus int
		expectedCode   string
		field          string
	}{
		{name: "session", expectedStatus: http.StatusCreated},
		{name: "wrong code", flowErr: domain.ErrInvalidToken, expectedStatus: http.StatusBadRequest, expectedCode: domain.CodeInvalidToken, field: "otp_token"},
		{name: "budget exhausted", flowErr: domain.ErrOTPMaxAttempts, expectedStatus: http.StatusTooManyRequests, expectedCode: domain.CodeTooManyAttempts},
		{name: "unknown phone", flowErr: domain.ErrInvalidLogin, expectedStatus: http.StatusBadRequest, expectedCode: domain.CodeInvalidLogin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCode string
			flow := &fakeLoginFlow{
				SubmitOTPFunc: func(_ context.Context, phone string, role domain.Role, code string) (*domain.LoginStep, error) {
					gotCode = code
					if tt.flowErr != nil {
						return nil, tt.flowErr
					}
					return completed(role), nil
				},
			}
			h := NewAuthHandlers(flow, &fakeResetFlow{}, testDigits, zap.NewNop())

			w, body := serve(t, h.VerifyOTP, VerifyOTPRequest{PhoneNumber: "+14155550100", Role: "client", OTPToken: " 123456 "})
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "123456", gotCode)
			if tt.expectedStatus == http.StatusCreated {
				assert.Equal(t, "+14155550100", body["phone_number"])
				return
			}
			assert.Equal(t, tt.expectedCode, body["code"])
			if tt.field != "" {
				assert.Equal(t, []interface{}{msgInvalidToken}, fieldMessages(body, tt.field))
			}
		})
	}
}

func TestAuthHandlers_OTPTokenFormat(t *testing.T) {
	tests := []struct {
		name    string
		token   *string
		message string
	}{
		{name: "missing", message: msgRequired},
		{name: "blank", token: strPtr("   "), message: msgRequired},
		{name: "letters", token: strPtr("abc"), message: msgOTPTokenPattern},
		{name: "mixed", token: strPtr("12345x"), message: msgOTPTokenPattern},
		{name: "too short", token: strPtr("12"), message: "Ensure this field has exactly 6 digits."},
		{name: "too long", token: strPtr("1234567"), message: "Ensure this field has exactly 6 digits."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reached []string
			flow := &fakeLoginFlow{
				SubmitOTPFunc: func(_ context.Context, _ string, role domain.Role, code string) (*domain.LoginStep, error) {
					reached = append(reached, code)
					return completed(role), nil
				},
			}
			reset := &fakeResetFlow{
				ConfirmResetFunc: func(_ context.Context, _ string, _ domain.Role, code, _, _ string) error {
					reached = append(reached, code)
					return nil
				},
			}
			h := NewAuthHandlers(flow, reset, testDigits, zap.NewNop())

			verify := map[string]interface{}{"phone_number": "+14155550100", "role": "client"}
			change := map[string]interface{}{
				"email": "jane@example.com", "role": "client",
				"password": "n3wpassword", "confirm_password": "n3wpassword",
			}
			if tt.token != nil {
				verify["otp_token"] = *tt.token
				change["otp_token"] = *tt.token
			}

			for _, call := range []struct {
				handler gin.HandlerFunc
				body    map[string]interface{}
			}{{h.VerifyOTP, verify}, {h.ChangePassword, change}} {
				w, body := serve(t, call.handler, call.body)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, domain.CodeValidation, body["code"])
				assert.Equal(t, []interface{}{tt.message}, fieldMessages(body, "otp_token"))
			}
			assert.Empty(t, reached)
		})
	}
}

func strPtr(s string) *string { return &s }

func TestAuthHandlers_Methods(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandlers(&fakeLoginFlow{}, &fakeResetFlow{}, testDigits, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	h.Methods(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"code":"sms","label":"Text message"}]`, w.Body.String())
}

func TestAuthHandlers_PasswordReset(t *testing.T) {
	t.Run("reset unknown email", func(t *testing.T) {
		reset := &fakeResetFlow{
			RequestResetFunc: func(context.Context, string, domain.Role) (*domain.ChallengeResult, error) {
				return nil, domain.ErrInvalidLogin
			},
		}
		h := NewAuthHandlers(&fakeLoginFlow{}, reset, testDigits, zap.NewNop())

		w, body := serve(t, h.ResetPassword, ResetPasswordRequest{Email: "nobody@example.com", Role: "client"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, msgUnknownEmail, body["error"])
	})

	t.Run("reset sent", func(t *testing.T) {
		reset := &fakeResetFlow{
			RequestResetFunc: func(_ context.Context, email string, role domain.Role) (*domain.ChallengeResult, error) {
				assert.Equal(t, domain.RoleEditor, role)
				return &domain.ChallengeResult{Sent: true}, nil
			},
		}
		h := NewAuthHandlers(&fakeLoginFlow{}, reset, testDigits, zap.NewNop())

		w, _ := serve(t, h.ResetPassword, ResetPasswordRequest{Email: "ed@example.com", Role: "editor"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	tests := []struct {
		name           string
		body           ChangePasswordRequest
		flowErr        error
		expectedStatus int
		field          string
	}{
		{
			name:           "changed",
			body:           ChangePasswordRequest{Email: "jane@example.com", Role: "client", OTPToken: "123456", Password: "n3wpassword", ConfirmPassword: "n3wpassword"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "mismatch",
			body:           ChangePasswordRequest{Email: "jane@example.com", Role: "client", OTPToken: "123456", Password: "n3wpassword", ConfirmPassword: "other1234"},
			flowErr:        domain.ErrPasswordMismatch,
			expectedStatus: http.StatusBadRequest,
			field:          "confirm_password",
		},
		{
			name:           "weak password",
			body:           ChangePasswordRequest{Email: "jane@example.com", Role: "client", OTPToken: "123456", Password: "short", ConfirmPassword: "short"},
			flowErr:        domain.NewValidationError("password", "This password is too short. It must contain at least 8 characters."),
			expectedStatus: http.StatusBadRequest,
			field:          "password",
		},
		{
			name:           "wrong code",
			body:           ChangePasswordRequest{Email: "jane@example.com", Role: "client", OTPToken: "000000", Password: "n3wpassword", ConfirmPassword: "n3wpassword"},
			flowErr:        domain.ErrInvalidToken,
			expectedStatus: http.StatusBadRequest,
			field:          "otp_token",
		},
		{
			name:           "missing token",
			body:           ChangePasswordRequest{Email: "jane@example.com", Role: "client", Password: "n3wpassword", ConfirmPassword: "n3wpassword"},
			expectedStatus: http.StatusBadRequest,
			field:          "otp_token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset := &fakeResetFlow{
				ConfirmResetFunc: func(context.Context, string, domain.Role, string, string, string) error {
					return tt.flowErr
				},
			}
			h := NewAuthHandlers(&fakeLoginFlow{}, reset, testDigits, zap.NewNop())

			w, body := serve(t, h.ChangePassword, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.field != "" {
				assert.NotEmpty(t, fieldMessages(body, tt.field))
			}
		})
	}
}
