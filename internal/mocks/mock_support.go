package mocks

import (
	"context"
	"sync"

	"github.com/you/mediahub/domain"
)

// MockEditorRepository implements domain.EditorRepository interface for testing
type MockEditorRepository struct {
	FindByIDFunc func(ctx context.Context, id uint) (*domain.Editor, error)
}

// NewMockEditorRepository creates a new MockEditorRepository with default behaviors
func NewMockEditorRepository() *MockEditorRepository {
	return &MockEditorRepository{}
}

// FindByID finds an editor organization
func (m *MockEditorRepository) FindByID(ctx context.Context, id uint) (*domain.Editor, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrEditorNotFound
}

// MockTransactor implements domain.Transactor by calling fn directly
type MockTransactor struct {
	Calls int
}

// WithinTransaction runs fn without a real transaction
func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	return fn(ctx)
}

// MockOTPThrottle implements domain.OTPThrottle interface for testing
type MockOTPThrottle struct {
	BeginChallengeFunc func(ctx context.Context, accountID uint, purpose domain.OTPPurpose) error
	RecordAttemptFunc  func(ctx context.Context, accountID uint, purpose domain.OTPPurpose) error
	ClearFunc          func(ctx context.Context, accountID uint, purpose domain.OTPPurpose) error
}

// NewMockOTPThrottle creates a new MockOTPThrottle that never throttles
func NewMockOTPThrottle() *MockOTPThrottle {
	return &MockOTPThrottle{}
}

// BeginChallenge starts a challenge window
func (m *MockOTPThrottle) BeginChallenge(ctx context.Context, accountID uint, purpose domain.OTPPurpose) error {
	if m.BeginChallengeFunc != nil {
		return m.BeginChallengeFunc(ctx, accountID, purpose)
	}
	return nil
}

// RecordAttempt consumes one verification attempt
func (m *MockOTPThrottle) RecordAttempt(ctx context.Context, accountID uint, purpose domain.OTPPurpose) error {
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, accountID, purpose)
	}
	return nil
}

// Clear resets the attempt budget
func (m *MockOTPThrottle) Clear(ctx context.Context, accountID uint, purpose domain.OTPPurpose) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, accountID, purpose)
	}
	return nil
}

// MockEventSink implements domain.EventSink and records the accounts it saw
type MockEventSink struct {
	UserRegisteredFunc func(ctx context.Context, account *domain.Account) error
	LoginSucceededFunc func(ctx context.Context, account *domain.Account) error

	Registered []uint
	LoggedIn   []uint
}

// NewMockEventSink creates a new MockEventSink
func NewMockEventSink() *MockEventSink {
	return &MockEventSink{}
}

// UserRegistered records a registration
func (m *MockEventSink) UserRegistered(ctx context.Context, account *domain.Account) error {
	m.Registered = append(m.Registered, account.ID)
	if m.UserRegisteredFunc != nil {
		return m.UserRegisteredFunc(ctx, account)
	}
	return nil
}

// LoginSucceeded records a login
func (m *MockEventSink) LoginSucceeded(ctx context.Context, account *domain.Account) error {
	m.LoggedIn = append(m.LoggedIn, account.ID)
	if m.LoginSucceededFunc != nil {
		return m.LoginSucceededFunc(ctx, account)
	}
	return nil
}

// MockEventPublisher implements domain.EventPublisher and records published events
type MockEventPublisher struct {
	PublishFunc func(ctx context.Context, event *domain.AuditEvent) error

	mu     sync.Mutex
	Events []*domain.AuditEvent
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// Publish records event
func (m *MockEventPublisher) Publish(ctx context.Context, event *domain.AuditEvent) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, event); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

// Published returns a copy of the recorded events
func (m *MockEventPublisher) Published() []*domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.AuditEvent(nil), m.Events...)
}

// MockImageResolver implements domain.ImageResolver by prefixing references
type MockImageResolver struct {
	Prefix string
}

// ResolveImageURL returns Prefix + ref
func (m MockImageResolver) ResolveImageURL(ref string) string {
	if ref == "" {
		return ""
	}
	return m.Prefix + ref
}

// Compile-time interface compliance verification
var (
	_ domain.EditorRepository = (*MockEditorRepository)(nil)
	_ domain.Transactor       = (*MockTransactor)(nil)
	_ domain.OTPThrottle      = (*MockOTPThrottle)(nil)
	_ domain.EventSink        = (*MockEventSink)(nil)
	_ domain.EventPublisher   = (*MockEventPublisher)(nil)
	_ domain.ImageResolver    = MockImageResolver{}
)
