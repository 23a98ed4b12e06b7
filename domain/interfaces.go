package domain

import (
	"context"
	"time"
)

// AccountRepository defines account data access operations
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id uint) (*Account, error)
	FindByIdentity(ctx context.Context, identity Identity, role Role) (*Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdatePassword(ctx context.Context, id uint, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
}

// DeviceRepository defines OTP device data access operations
type DeviceRepository interface {
	// FindDefault returns the newest device flagged as default for the account
	FindDefault(ctx context.Context, accountID uint) (*OTPDevice, error)
	// FindByPurpose returns the newest device dedicated to purpose
	FindByPurpose(ctx context.Context, accountID uint, purpose OTPPurpose) (*OTPDevice, error)
	Create(ctx context.Context, device *OTPDevice) error
	Save(ctx context.Context, device *OTPDevice) error
}

// EditorRepository defines editor organization lookups
type EditorRepository interface {
	FindByID(ctx context.Context, id uint) (*Editor, error)
}

// Transactor runs fn inside one atomic unit against the backing store.
// Nested calls join the outer transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService defines token operations
type TokenService interface {
	GenerateAccessToken(userID uint, role Role) (string, error)
	GenerateRefreshToken(userID uint, role Role) (string, time.Time, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
	ValidateRefreshToken(token string) (*TokenClaims, error)
}

// NotificationService defines out-of-band delivery operations
type NotificationService interface {
	SendSMS(ctx context.Context, to, message string) error
	MakeCall(ctx context.Context, to, message string) error
	SendEmail(ctx context.Context, to, subject, body string) error
}

// OTPThrottle guards challenge issuance and code guessing per account
type OTPThrottle interface {
	// BeginChallenge enforces the resend window and resets the attempt budget
	BeginChallenge(ctx context.Context, accountID uint, purpose OTPPurpose) error
	// RecordAttempt consumes one verification attempt
	RecordAttempt(ctx context.Context, accountID uint, purpose OTPPurpose) error
	Clear(ctx context.Context, accountID uint, purpose OTPPurpose) error
}

// IdentityResolver classifies login identifiers
type IdentityResolver interface {
	Resolve(identifier string) Identity
	NormalizePhone(raw string) (string, error)
}

// ImageResolver turns a stored image reference into a public URL
type ImageResolver interface {
	ResolveImageURL(ref string) string
}

// EventSink receives the side effects of the login wizards
type EventSink interface {
	UserRegistered(ctx context.Context, account *Account) error
	LoginSucceeded(ctx context.Context, account *Account) error
}

// EventPublisher forwards audit events to an external broker
type EventPublisher interface {
	Publish(ctx context.Context, event *AuditEvent) error
}
