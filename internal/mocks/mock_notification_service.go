package mocks

import (
	"context"
	"sync"

	"github.com/you/mediahub/domain"
)

// SentMessage records one delivery made through MockNotificationService
type SentMessage struct {
	Channel string
	To      string
	Subject string
	Body    string
}

// MockNotificationService implements domain.NotificationService interface for testing.
// Every successful delivery is recorded in Sent.
type MockNotificationService struct {
	SendSMSFunc   func(ctx context.Context, to, message string) error
	MakeCallFunc  func(ctx context.Context, to, message string) error
	SendEmailFunc func(ctx context.Context, to, subject, body string) error

	mu   sync.Mutex
	Sent []SentMessage
}

// NewMockNotificationService creates a new MockNotificationService with default behaviors
func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

// SendSMS sends an SMS message
func (m *MockNotificationService) SendSMS(ctx context.Context, to, message string) error {
	if m.SendSMSFunc != nil {
		if err := m.SendSMSFunc(ctx, to, message); err != nil {
			return err
		}
	}
	m.record(SentMessage{Channel: "sms", To: to, Body: message})
	return nil
}

// MakeCall places a voice call
func (m *MockNotificationService) MakeCall(ctx context.Context, to, message string) error {
	if m.MakeCallFunc != nil {
		if err := m.MakeCallFunc(ctx, to, message); err != nil {
			return err
		}
	}
	m.record(SentMessage{Channel: "call", To: to, Body: message})
	return nil
}

// SendEmail sends an email message
func (m *MockNotificationService) SendEmail(ctx context.Context, to, subject, body string) error {
	if m.SendEmailFunc != nil {
		if err := m.SendEmailFunc(ctx, to, subject, body); err != nil {
			return err
		}
	}
	m.record(SentMessage{Channel: "email", To: to, Subject: subject, Body: body})
	return nil
}

// Last returns the most recent delivery
func (m *MockNotificationService) Last() (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return SentMessage{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

// Count returns the number of deliveries
func (m *MockNotificationService) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

func (m *MockNotificationService) record(msg SentMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
}

// Compile-time interface compliance verification
var _ domain.NotificationService = (*MockNotificationService)(nil)
