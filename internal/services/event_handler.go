package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
	"github.com/you/mediahub/internal/metrics"
)

// EventHandler is the synchronous domain.EventSink. Login success stamps
// lastLoginAt; both events are counted and forwarded to the broker.
// Broker failures are logged and never fail the caller.
type EventHandler struct {
	accounts  domain.AccountRepository
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

// NewEventHandler creates a new event handler
func NewEventHandler(accounts domain.AccountRepository, publisher domain.EventPublisher, m *metrics.Metrics, log *zap.Logger) *EventHandler {
	return &EventHandler{
		accounts:  accounts,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// UserRegistered implements domain.EventSink
func (h *EventHandler) UserRegistered(ctx context.Context, account *domain.Account) error {
	h.metrics.ObserveRegistration(string(account.Role))
	h.publish(ctx, domain.NewAuditEvent(domain.UserRegisteredEvent, account).
		WithMetadata(domain.MetadataChannel, "phone_otp"))
	return nil
}

// LoginSucceeded implements domain.EventSink
func (h *EventHandler) LoginSucceeded(ctx context.Context, account *domain.Account) error {
	at := h.now().UTC()
	if err := h.accounts.UpdateLastLogin(ctx, account.ID, at); err != nil {
		return err
	}
	account.LastLoginAt = &at

	h.metrics.ObserveLogin(string(account.Role))
	h.log.Info("user logged in", zap.Uint("user_id", account.ID), zap.String("role", string(account.Role)))
	h.publish(ctx, domain.NewAuditEvent(domain.UserLoggedInEvent, account))
	return nil
}

func (h *EventHandler) publish(ctx context.Context, event *domain.AuditEvent) {
	queue := event.EventType.Queue()
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.metrics.ObservePublish(queue, "failed")
		h.log.Warn("failed to publish event", zap.String("queue", queue), zap.Error(err))
		return
	}
	h.metrics.ObservePublish(queue, "ok")
}

var _ domain.EventSink = (*EventHandler)(nil)
