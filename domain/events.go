package domain

import (
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Account lifecycle events
	UserRegisteredEvent  AuditEventType = "USER_REGISTERED"
	UserLoggedInEvent    AuditEventType = "USER_LOGGED_IN"
	PasswordChangedEvent AuditEventType = "PASSWORD_CHANGED"
)

// MetadataChannel names the flow an event came from
const MetadataChannel = "channel"

// Queue returns the broker queue name the event is routed to
func (t AuditEventType) Queue() string {
	switch t {
	case UserRegisteredEvent:
		return "auth.user_registered"
	case UserLoggedInEvent:
		return "auth.user_logged_in"
	case PasswordChangedEvent:
		return "auth.password_changed"
	}
	return "auth.events"
}

// AuditEvent represents a business event that occurred in the system
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	UserID    uint                   `json:"user_id"`
	Username  string                 `json:"username,omitempty"`
	Email     string                 `json:"email,omitempty"`
	Phone     string                 `json:"phone,omitempty"`
	Role      Role                   `json:"role,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType, account *Account) *AuditEvent {
	e := &AuditEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
	}
	if account != nil {
		e.UserID = account.ID
		e.Username = account.Username
		e.Email = account.Email
		e.Phone = account.PhoneNumber
		e.Role = account.Role
	}
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}

// LoginState is the position of a caller inside the login wizard
type LoginState int

const (
	AwaitingCredentials LoginState = iota
	AwaitingOTP
	Completed
)

func (s LoginState) String() string {
	switch s {
	case AwaitingCredentials:
		return "awaiting_credentials"
	case AwaitingOTP:
		return "awaiting_otp"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// LoginStep is the result of one wizard transition. Challenge is set when
// the step moved to AwaitingOTP, Payload when it reached Completed.
type LoginStep struct {
	State     LoginState
	Account   *Account
	Challenge *ChallengeResult
	Payload   *TokenPayload
	Created   bool
}
