package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPService delivers codes by email
type SMTPService struct {
	host     string
	port     int
	username string
	password string
	from     string
	logOnly  bool
	log      *zap.Logger
	sendMail sendMailFunc
}

// NewSMTPService creates a new SMTP sender
func NewSMTPService(host string, port int, username, password, from string, log *zap.Logger) *SMTPService {
	if port == 0 {
		port = 587
	}
	return &SMTPService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		log:      log,
		sendMail: smtp.SendMail,
	}
}

// WithLogOnly lets an unconfigured sender write messages to the log
func (s *SMTPService) WithLogOnly(enabled bool) *SMTPService {
	s.logOnly = enabled
	return s
}

// Configured reports whether real delivery is possible
func (s *SMTPService) Configured() bool {
	return s.host != ""
}

// SendEmail sends a plain text message
func (s *SMTPService) SendEmail(ctx context.Context, to, subject, body string) error {
	if !s.Configured() {
		if !s.logOnly {
			return fmt.Errorf("failed to send email: %w", ErrNotConfigured)
		}
		s.log.Info("mock email", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := s.sendMail(addr, auth, s.from, []string{to}, BuildMessage(s.from, to, subject, body, time.Now())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// BuildMessage renders an RFC 5322 plain text message
func BuildMessage(from, to, subject, body string, at time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + at.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
