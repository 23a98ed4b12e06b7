package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
)

// channel is the subset of *amqp.Channel the publisher needs
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes audit events as persistent JSON messages to
// one durable queue per event type, over the default exchange.
type RabbitPublisher struct {
	conn *amqp.Connection
	ch   channel
	log  *zap.Logger

	mu       sync.Mutex
	declared map[string]bool
}

// NewRabbitPublisher dials the broker and opens a channel
func NewRabbitPublisher(url string, log *zap.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	p := newPublisher(ch, log)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, log *zap.Logger) *RabbitPublisher {
	return &RabbitPublisher{ch: ch, log: log, declared: make(map[string]bool)}
}

// Publish implements domain.EventPublisher
func (p *RabbitPublisher) Publish(ctx context.Context, event *domain.AuditEvent) error {
	queue := event.EventType.Queue()
	if err := p.ensureQueue(queue); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(event.EventType),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	p.log.Debug("event published", zap.String("queue", queue), zap.Uint("user_id", event.UserID))
	return nil
}

func (p *RabbitPublisher) ensureQueue(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.declared[name] {
		return nil
	}
	if _, err := p.ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	p.declared[name] = true
	return nil
}

// Close releases the channel and connection
func (p *RabbitPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// NopPublisher drops events; used when no broker is configured
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *domain.AuditEvent) error { return nil }

var (
	_ domain.EventPublisher = (*RabbitPublisher)(nil)
	_ domain.EventPublisher = NopPublisher{}
)
