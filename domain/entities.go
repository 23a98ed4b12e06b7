package domain

import (
	"strings"
	"time"
)

// Role is the account type an identity is registered under
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
	RoleEditor Role = "editor"
)

// Roles lists every role in display order
var Roles = []Role{RoleAdmin, RoleClient, RoleEditor}

// ParseRole returns the role matching s or false
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Display returns the human label for a role
func (r Role) Display() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleClient:
		return "Client"
	case RoleEditor:
		return "Editor"
	}
	return string(r)
}

// OTPMethod is an out-of-band delivery channel for one-time codes
type OTPMethod string

const (
	MethodSMS   OTPMethod = "sms"
	MethodCall  OTPMethod = "call"
	MethodEmail OTPMethod = "email"
)

// Methods lists every delivery method the service knows how to drive
var Methods = []OTPMethod{MethodSMS, MethodCall, MethodEmail}

// ParseMethod returns the method matching s or false
func ParseMethod(s string) (OTPMethod, bool) {
	for _, m := range Methods {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Display returns the human label for a method
func (m OTPMethod) Display() string {
	switch m {
	case MethodSMS:
		return "Text message"
	case MethodCall:
		return "Phone call"
	case MethodEmail:
		return "Email"
	}
	return string(m)
}

// MethodChoice is one entry of the methods-choices enumeration
type MethodChoice struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// OTPPurpose scopes challenges and attempt budgets to one wizard
type OTPPurpose string

const (
	PurposeLogin         OTPPurpose = "login"
	PurposePasswordReset OTPPurpose = "password_reset"
)

// Account represents a login identity in the system
type Account struct {
	ID           uint
	Username     string
	Name         string
	Email        string
	PhoneNumber  string
	PasswordHash string
	Role         Role
	IsActive     bool
	IsDeleted    bool
	EditorID     *uint
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoginAllowed reports whether the account may authenticate at all
func (a *Account) LoginAllowed() bool {
	return a.IsActive && !a.IsDeleted
}

// HasUsablePassword is false for accounts created through phone login
func (a *Account) HasUsablePassword() bool {
	return a.PasswordHash != ""
}

// IsEditor reports whether the account acts on behalf of an editor organization
func (a *Account) IsEditor() bool {
	return a.Role == RoleEditor && a.EditorID != nil && a.LoginAllowed()
}

// Editor is the organization an editor account belongs to
type Editor struct {
	ID        uint
	Name      string
	Email     string
	Image     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OTPDevice is a per-account code generator bound to one delivery method.
// Token and ValidUntil hold the latest challenge; both are cleared once the
// code has been used.
type OTPDevice struct {
	ID          uint
	AccountID   uint
	Name        string
	Method      OTPMethod
	Purpose     OTPPurpose
	Destination string
	SecretKey   string
	Counter     uint64
	Token       string
	IssuedAt    *time.Time
	ValidUntil  *time.Time
	IsDefault   bool
	Confirmed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPendingChallenge reports whether a code is outstanding at now
func (d *OTPDevice) HasPendingChallenge(now time.Time) bool {
	return d.Token != "" && d.ValidUntil != nil && now.Before(*d.ValidUntil)
}

// ChallengeResult is the outcome of issuing an OTP challenge
type ChallengeResult struct {
	Sent      bool
	Bypass    bool
	Method    OTPMethod
	ExpiresAt time.Time
}

// IdentityField names the account column an identifier resolved to
type IdentityField string

const (
	FieldEmail    IdentityField = "email"
	FieldPhone    IdentityField = "phone"
	FieldUsername IdentityField = "username"
)

// Identity is a classified login identifier
type Identity struct {
	Field IdentityField
	Value string
}

// TokenPayload is the response body of a successful login
type TokenPayload struct {
	AccessToken string    `json:"access_token"`
	Refresh     string    `json:"refresh"`
	ExpiryDate  time.Time `json:"expiry_date"`
	Profile
}

// Profile is the flattened user snapshot carried in token responses
type Profile struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Role        Role   `json:"role"`
	RoleDisplay string `json:"role_display"`
	IsActive    bool   `json:"is_active"`
	Image       string `json:"image,omitempty"`
}

// NormalizeEmail lowercases and trims an address; empty stays empty
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	Role      Role   `json:"role"`
	TokenType string `json:"token_type"`
	ID        string `json:"jti"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)
