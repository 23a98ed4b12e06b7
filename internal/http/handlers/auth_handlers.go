package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
	"github.com/you/mediahub/internal/logger"
)

// LoginFlow drives the login wizard
type LoginFlow interface {
	MethodChoices() []domain.MethodChoice
	SubmitCredentials(ctx context.Context, identifier, password string, role domain.Role) (*domain.LoginStep, error)
	RequestOTP(ctx context.Context, phone string, role domain.Role, method domain.OTPMethod) (*domain.LoginStep, error)
	SubmitOTP(ctx context.Context, phone string, role domain.Role, code string) (*domain.LoginStep, error)
}

// PasswordResetFlow drives the email reset wizard
type PasswordResetFlow interface {
	RequestReset(ctx context.Context, email string, role domain.Role) (*domain.ChallengeResult, error)
	ConfirmReset(ctx context.Context, email string, role domain.Role, code, password, confirm string) error
}

// AuthHandlers handles the login and password reset endpoints
type AuthHandlers struct {
	login  LoginFlow
	reset  PasswordResetFlow
	digits int
	log    *zap.Logger
}

// NewAuthHandlers creates new auth handlers. digits is the length every
// submitted otp_token must have.
func NewAuthHandlers(login LoginFlow, reset PasswordResetFlow, digits int, log *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		login:  login,
		reset:  reset,
		digits: digits,
		log:    logger.OrNop(log),
	}
}

// LoginRequest represents login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// SendOTPRequest asks for a code on the given channel
type SendOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
	Method      string `json:"method"`
}

// VerifyOTPRequest represents OTP verification request
type VerifyOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
	OTPToken    string `json:"otp_token"`
}

// ResetPasswordRequest starts a password reset
type ResetPasswordRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ChangePasswordRequest completes a password reset
type ChangePasswordRequest struct {
	Email           string `json:"email"`
	Role            string `json:"role"`
	OTPToken        string `json:"otp_token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// fieldCheck collects field errors for one request body
type fieldCheck struct {
	verr domain.ValidationError
}

func (f *fieldCheck) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f.verr.Add(field, msgRequired)
	}
}

func (f *fieldCheck) role(raw string) domain.Role {
	if strings.TrimSpace(raw) == "" {
		f.verr.Add("role", msgRequired)
		return ""
	}
	role, ok := domain.ParseRole(raw)
	if !ok {
		f.verr.Add("role", fmt.Sprintf("%q is not a valid choice.", raw))
	}
	return role
}

// otpToken requires a numeric code of exactly digits characters
func (f *fieldCheck) otpToken(field, value string, digits int) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		f.verr.Add(field, msgRequired)
	case strings.Trim(value, "0123456789") != "":
		f.verr.Add(field, msgOTPTokenPattern)
	case len(value) != digits:
		f.verr.Add(field, fmt.Sprintf(msgOTPTokenLength, digits))
	}
	return value
}

func (f *fieldCheck) err() error {
	return f.verr.OrNil()
}

// Login handles username/email/phone plus password login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, credentialsView, err)
		return
	}

	var check fieldCheck
	check.required("username", req.Username)
	check.required("password", req.Password)
	role := check.role(req.Role)
	if err := check.err(); err != nil {
		respondError(c, h.log, credentialsView, err)
		return
	}

	step, err := h.login.SubmitCredentials(c.Request.Context(), req.Username, req.Password, role)
	if err != nil {
		respondError(c, h.log, credentialsView, err)
		return
	}
	c.JSON(http.StatusCreated, step.Payload)
}

// SendOTP issues a login challenge, creating the account when the role allows it
func (h *AuthHandlers) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, phoneView, err)
		return
	}

	var check fieldCheck
	check.required("phone_number", req.PhoneNumber)
	check.required("method", req.Method)
	role := check.role(req.Role)
	if err := check.err(); err != nil {
		respondError(c, h.log, phoneView, err)
		return
	}

	method := domain.OTPMethod(strings.ToLower(strings.TrimSpace(req.Method)))
	if _, err := h.login.RequestOTP(c.Request.Context(), req.PhoneNumber, role, method); err != nil {
		respondError(c, h.log, phoneView, err)
		return
	}
	c.Status(http.StatusOK)
}

// VerifyOTP checks a login code and returns a session
func (h *AuthHandlers) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, phoneView, err)
		return
	}

	var check fieldCheck
	check.required("phone_number", req.PhoneNumber)
	code := check.otpToken("otp_token", req.OTPToken, h.digits)
	role := check.role(req.Role)
	if err := check.err(); err != nil {
		respondError(c, h.log, phoneView, err)
		return
	}

	step, err := h.login.SubmitOTP(c.Request.Context(), req.PhoneNumber, role, code)
	if err != nil {
		respondError(c, h.log, phoneView, err)
		return
	}
	c.JSON(http.StatusCreated, step.Payload)
}

// Methods lists the configured OTP delivery methods
func (h *AuthHandlers) Methods(c *gin.Context) {
	c.JSON(http.StatusOK, h.login.MethodChoices())
}

// ResetPassword emails a reset code
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, emailView, err)
		return
	}

	var check fieldCheck
	check.required("email", req.Email)
	role := check.role(req.Role)
	if err := check.err(); err != nil {
		respondError(c, h.log, emailView, err)
		return
	}

	if _, err := h.reset.RequestReset(c.Request.Context(), req.Email, role); err != nil {
		respondError(c, h.log, emailView, err)
		return
	}
	c.Status(http.StatusOK)
}

// ChangePassword consumes a reset code and stores the new password
func (h *AuthHandlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, emailView, err)
		return
	}

	var check fieldCheck
	check.required("email", req.Email)
	code := check.otpToken("otp_token", req.OTPToken, h.digits)
	check.required("password", req.Password)
	check.required("confirm_password", req.ConfirmPassword)
	role := check.role(req.Role)
	if err := check.err(); err != nil {
		respondError(c, h.log, emailView, err)
		return
	}

	err := h.reset.ConfirmReset(c.Request.Context(), req.Email, role, code, req.Password, req.ConfirmPassword)
	if err != nil {
		respondError(c, h.log, emailView, err)
		return
	}
	c.Status(http.StatusOK)
}
