package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
)

const nonFieldErrors = "non_field_errors"

// Messages shown for errors that carry no field of their own
const (
	msgInvalidCredentials = "The username or password is incorrect."
	msgUnknownPhone       = "The phone number is not associated with an account."
	msgUnknownEmail       = "The email is not associated with an account."
	msgInactive           = "This account is inactive."
	msgInvalidToken       = "Invalid token. Please make sure you have entered it correctly."
	msgPasswordMismatch   = "The passwords do not match. Please enter the same password in both fields."
	msgDeliveryFailed     = "The verification code could not be delivered. Please try again later."
	msgTooManyAttempts    = "Too many attempts. Please request a new code."
	msgResendThrottled    = "A code was sent recently. Please wait before requesting another."
	msgTokenNotValid      = "Token is invalid or expired"
	msgInternal           = "Internal server error"
	msgMalformedBody      = "Malformed request body."
	msgRequired           = "This field is required."
	msgOTPTokenPattern    = "Enter a valid value."
	msgOTPTokenLength     = "Ensure this field has exactly %d digits."
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// errorView describes how one endpoint words its domain errors
type errorView struct {
	invalidLogin string
	tokenField   string
}

var (
	credentialsView = errorView{invalidLogin: msgInvalidCredentials}
	phoneView       = errorView{invalidLogin: msgUnknownPhone, tokenField: "otp_token"}
	emailView       = errorView{invalidLogin: msgUnknownEmail, tokenField: "otp_token"}
)

func statusFor(code string) int {
	switch code {
	case domain.CodeTooManyAttempts, domain.CodeResendThrottled:
		return http.StatusTooManyRequests
	case domain.CodeTokenNotValid:
		return http.StatusUnauthorized
	case domain.CodeInternal:
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func (v errorView) render(err error) ErrorResponse {
	code := domain.ErrorCode(err)
	resp := ErrorResponse{Code: code, Fields: map[string][]string{}}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		for field, msgs := range verr.Fields {
			if field == "" {
				field = nonFieldErrors
			}
			resp.Fields[field] = append(resp.Fields[field], msgs...)
		}
		resp.Error = "Invalid input."
		return resp
	case errors.Is(err, domain.ErrMethodNotSupported):
		resp.Fields["method"] = []string{"Select a valid choice. That choice is not one of the available choices."}
		resp.Error = "Invalid input."
		return resp
	}

	switch code {
	case domain.CodeInvalidLogin:
		resp.Error = v.invalidLogin
	case domain.CodeInactive:
		resp.Error = msgInactive
	case domain.CodeInvalidToken:
		resp.Error = msgInvalidToken
		if v.tokenField != "" {
			resp.Fields[v.tokenField] = []string{msgInvalidToken}
			return resp
		}
	case domain.CodePasswordMismatch:
		resp.Error = msgPasswordMismatch
		resp.Fields["confirm_password"] = []string{msgPasswordMismatch}
		return resp
	case domain.CodeDeliveryFailed:
		resp.Error = msgDeliveryFailed
	case domain.CodeTooManyAttempts:
		resp.Error = msgTooManyAttempts
	case domain.CodeResendThrottled:
		resp.Error = msgResendThrottled
	case domain.CodeTokenNotValid:
		resp.Error = msgTokenNotValid
		resp.Fields = nil
		return resp
	default:
		resp.Error = msgInternal
		resp.Fields = nil
		return resp
	}
	resp.Fields[nonFieldErrors] = []string{resp.Error}
	return resp
}

// respondError writes err in the shape and status its code calls for
func respondError(c *gin.Context, log *zap.Logger, view errorView, err error) {
	resp := view.render(err)
	status := statusFor(resp.Code)
	switch {
	case status >= http.StatusInternalServerError:
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", resp.Code),
			zap.Error(err),
		)
	case resp.Code == domain.CodeDeliveryFailed:
		// the client sees a 400, the provider error only goes to the log
		log.Warn("otp delivery failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, resp)
}

// bindJSON decodes the body into req. Field presence is checked by the
// request types themselves so the messages match the rest of the API.
func bindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return domain.NewValidationError("", msgMalformedBody)
	}
	return nil
}
