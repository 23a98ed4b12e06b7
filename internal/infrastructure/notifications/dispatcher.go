package notifications

import (
	"context"

	"github.com/you/mediahub/domain"
)

// SMSSender delivers text messages
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// CallSender places voice calls
type CallSender interface {
	MakeCall(ctx context.Context, to, message string) error
}

// EmailSender delivers email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Dispatcher implements domain.NotificationService over one provider per channel
type Dispatcher struct {
	sms   SMSSender
	call  CallSender
	email EmailSender
}

// NewDispatcher creates a dispatcher
func NewDispatcher(sms SMSSender, call CallSender, email EmailSender) *Dispatcher {
	return &Dispatcher{sms: sms, call: call, email: email}
}

// SendSMS implements domain.NotificationService
func (d *Dispatcher) SendSMS(ctx context.Context, to, message string) error {
	return d.sms.SendSMS(ctx, to, message)
}

// MakeCall implements domain.NotificationService
func (d *Dispatcher) MakeCall(ctx context.Context, to, message string) error {
	return d.call.MakeCall(ctx, to, message)
}

// SendEmail implements domain.NotificationService
func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, body string) error {
	return d.email.SendEmail(ctx, to, subject, body)
}

var _ domain.NotificationService = (*Dispatcher)(nil)
