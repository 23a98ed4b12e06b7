package notifications

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when a provider has no credentials and
// log-only delivery is off
var ErrNotConfigured = errors.New("provider is not configured")

// TwilioService delivers codes by text message and voice call
type TwilioService struct {
	client     *twilio.RestClient
	fromNumber string
	logOnly    bool
	log        *zap.Logger
}

// NewTwilioService creates a new Twilio sender
func NewTwilioService(accountSID, authToken, fromNumber string, log *zap.Logger) *TwilioService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioService{
		client:     client,
		fromNumber: fromNumber,
		log:        log,
	}
}

// WithLogOnly lets an unconfigured sender write messages to the log.
// Only enable it outside production since messages carry codes.
func (t *TwilioService) WithLogOnly(enabled bool) *TwilioService {
	t.logOnly = enabled
	return t
}

// Configured reports whether real delivery is possible
func (t *TwilioService) Configured() bool {
	return t.fromNumber != ""
}

// SendSMS sends message to the E.164 number to
func (t *TwilioService) SendSMS(ctx context.Context, to, message string) error {
	if !t.Configured() {
		if !t.logOnly {
			return fmt.Errorf("failed to send SMS: %w", ErrNotConfigured)
		}
		t.log.Info("mock sms", zap.String("to", to), zap.String("message", message))
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}

// MakeCall places a voice call that reads message aloud
func (t *TwilioService) MakeCall(ctx context.Context, to, message string) error {
	if !t.Configured() {
		if !t.logOnly {
			return fmt.Errorf("failed to place call: %w", ErrNotConfigured)
		}
		t.log.Info("mock call", zap.String("to", to), zap.String("message", message))
		return nil
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetTwiml(Twiml(message))

	if _, err := t.client.Api.CreateCall(params); err != nil {
		return fmt.Errorf("failed to place call: %w", err)
	}
	return nil
}

// Twiml wraps message in a Say verb, repeated once so it can be noted down
func Twiml(message string) string {
	say := "<Say>" + html.EscapeString(message) + "</Say>"
	return "<Response>" + say + `<Pause length="1"/>` + say + "</Response>"
}
