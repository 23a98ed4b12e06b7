package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
	"github.com/you/mediahub/internal/metrics"
)

// OTPConfig holds challenge generation settings
type OTPConfig struct {
	Digits         int
	TTL            time.Duration
	EmailTTL       time.Duration
	DeveloperPhone string
}

// OTPService issues and verifies device-bound one-time codes
type OTPService struct {
	devices  domain.DeviceRepository
	notifier domain.NotificationService
	throttle domain.OTPThrottle
	tx       domain.Transactor
	metrics  *metrics.Metrics
	log      *zap.Logger
	config   OTPConfig
	now      func() time.Time
}

// NewOTPService creates a new OTP service
func NewOTPService(
	devices domain.DeviceRepository,
	notifier domain.NotificationService,
	throttle domain.OTPThrottle,
	tx domain.Transactor,
	m *metrics.Metrics,
	log *zap.Logger,
	config OTPConfig,
) *OTPService {
	return &OTPService{
		devices:  devices,
		notifier: notifier,
		throttle: throttle,
		tx:       tx,
		metrics:  m,
		log:      log,
		config:   config,
		now:      time.Now,
	}
}

// IsDeveloper reports whether account is the configured developer account.
// The comparison is an exact match on the stored E.164 number.
func (s *OTPService) IsDeveloper(account *domain.Account) bool {
	return s.config.DeveloperPhone != "" && account.PhoneNumber == s.config.DeveloperPhone
}

// IssueChallenge sends a login code through the account's default device,
// creating one bound to method when the account has none.
func (s *OTPService) IssueChallenge(ctx context.Context, account *domain.Account, method domain.OTPMethod) (*domain.ChallengeResult, error) {
	if s.IsDeveloper(account) {
		s.log.Info("developer account, challenge skipped", zap.Uint("user_id", account.ID))
		s.metrics.ObserveChallenge(string(method), "bypass")
		return &domain.ChallengeResult{Bypass: true, Method: method}, nil
	}
	if method == domain.MethodEmail && account.Email == "" {
		return nil, domain.NewValidationError("method", "This account has no email address.")
	}

	if err := s.throttle.BeginChallenge(ctx, account.ID, domain.PurposeLogin); err != nil {
		s.metrics.ObserveChallenge(string(method), "throttled")
		return nil, err
	}

	var result *domain.ChallengeResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		device, err := s.devices.FindDefault(ctx, account.ID)
		if errors.Is(err, domain.ErrDeviceNotFound) {
			device, err = s.createDevice(ctx, account, method, domain.PurposeLogin)
		}
		if err != nil {
			return err
		}

		result, err = s.challenge(ctx, account, device, s.config.TTL)
		return err
	})
	if err != nil {
		s.metrics.ObserveChallenge(string(method), "failed")
		return nil, err
	}

	s.metrics.ObserveChallenge(string(result.Method), "sent")
	return result, nil
}

// IssueResetChallenge emails a password reset code through the account's
// dedicated email device.
func (s *OTPService) IssueResetChallenge(ctx context.Context, account *domain.Account) (*domain.ChallengeResult, error) {
	if s.IsDeveloper(account) {
		s.metrics.ObserveChallenge(string(domain.MethodEmail), "bypass")
		return &domain.ChallengeResult{Bypass: true, Method: domain.MethodEmail}, nil
	}

	if err := s.throttle.BeginChallenge(ctx, account.ID, domain.PurposePasswordReset); err != nil {
		s.metrics.ObserveChallenge(string(domain.MethodEmail), "throttled")
		return nil, err
	}

	var result *domain.ChallengeResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		device, err := s.devices.FindByPurpose(ctx, account.ID, domain.PurposePasswordReset)
		if errors.Is(err, domain.ErrDeviceNotFound) {
			device, err = s.createDevice(ctx, account, domain.MethodEmail, domain.PurposePasswordReset)
		}
		if err != nil {
			return err
		}

		result, err = s.challenge(ctx, account, device, s.config.EmailTTL)
		return err
	})
	if err != nil {
		s.metrics.ObserveChallenge(string(domain.MethodEmail), "failed")
		return nil, err
	}

	s.metrics.ObserveChallenge(string(domain.MethodEmail), "sent")
	return result, nil
}

// Verify checks code against the latest challenge for purpose. Wrong and
// expired codes are both ErrInvalidToken.
func (s *OTPService) Verify(ctx context.Context, account *domain.Account, code string, purpose domain.OTPPurpose) error {
	if s.IsDeveloper(account) {
		s.metrics.ObserveVerification(string(purpose), "bypass")
		return nil
	}

	device, err := s.deviceFor(ctx, account.ID, purpose)
	if errors.Is(err, domain.ErrDeviceNotFound) {
		s.metrics.ObserveVerification(string(purpose), "invalid")
		return domain.ErrInvalidToken
	}
	if err != nil {
		return err
	}

	if err := s.throttle.RecordAttempt(ctx, account.ID, purpose); err != nil {
		if errors.Is(err, domain.ErrOTPMaxAttempts) {
			s.metrics.ObserveVerification(string(purpose), "locked")
			s.log.Warn("otp attempts exhausted", zap.Uint("user_id", account.ID), zap.String("purpose", string(purpose)))
			if device.Token != "" {
				clearChallenge(device)
				if serr := s.devices.Save(ctx, device); serr != nil {
					s.log.Error("failed to invalidate challenge", zap.Uint("device_id", device.ID), zap.Error(serr))
				}
			}
		}
		return err
	}

	if !device.HasPendingChallenge(s.now()) || subtle.ConstantTimeCompare([]byte(device.Token), []byte(code)) != 1 {
		s.metrics.ObserveVerification(string(purpose), "invalid")
		return domain.ErrInvalidToken
	}

	// a code verifies once
	clearChallenge(device)
	device.Confirmed = true
	if err := s.devices.Save(ctx, device); err != nil {
		return fmt.Errorf("failed to save device: %w", err)
	}
	if err := s.throttle.Clear(ctx, account.ID, purpose); err != nil {
		s.log.Warn("failed to clear attempt counter", zap.Uint("user_id", account.ID), zap.Error(err))
	}

	s.metrics.ObserveVerification(string(purpose), "ok")
	return nil
}

func (s *OTPService) deviceFor(ctx context.Context, accountID uint, purpose domain.OTPPurpose) (*domain.OTPDevice, error) {
	if purpose == domain.PurposePasswordReset {
		return s.devices.FindByPurpose(ctx, accountID, domain.PurposePasswordReset)
	}
	return s.devices.FindDefault(ctx, accountID)
}

// createDevice stores a new device. Login devices are the account default;
// reset devices never are.
func (s *OTPService) createDevice(ctx context.Context, account *domain.Account, method domain.OTPMethod, purpose domain.OTPPurpose) (*domain.OTPDevice, error) {
	name, isDefault := "default", true
	if purpose == domain.PurposePasswordReset {
		name, isDefault = "password reset", false
	}

	key, err := newSecretKey()
	if err != nil {
		return nil, err
	}

	device := &domain.OTPDevice{
		AccountID:   account.ID,
		Name:        name,
		Method:      method,
		Purpose:     purpose,
		Destination: destination(account, method),
		SecretKey:   key,
		IsDefault:   isDefault,
	}
	if err := s.devices.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	s.log.Info("otp device created",
		zap.Uint("user_id", account.ID),
		zap.String("method", string(method)),
		zap.Bool("default", isDefault),
	)
	return device, nil
}

// challenge stores a fresh code on device and delivers it. It must run
// inside a transaction so a failed delivery leaves the device untouched.
func (s *OTPService) challenge(ctx context.Context, account *domain.Account, device *domain.OTPDevice, ttl time.Duration) (*domain.ChallengeResult, error) {
	device.Counter++
	code, err := hotpCode(device.SecretKey, device.Counter, s.config.Digits)
	if err != nil {
		return nil, err
	}

	now := s.now()
	validUntil := now.Add(ttl)
	device.Token = code
	device.IssuedAt = &now
	device.ValidUntil = &validUntil
	if to := destination(account, device.Method); to != "" {
		device.Destination = to
	}

	if err := s.devices.Save(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to save device: %w", err)
	}

	if err := s.deliver(ctx, device, code, ttl); err != nil {
		s.log.Error("otp delivery failed",
			zap.Uint("user_id", account.ID),
			zap.String("method", string(device.Method)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}

	s.log.Info("otp challenge sent",
		zap.Uint("user_id", account.ID),
		zap.String("method", string(device.Method)),
		zap.String("destination", device.Destination),
	)
	return &domain.ChallengeResult{Sent: true, Method: device.Method, ExpiresAt: validUntil}, nil
}

func (s *OTPService) deliver(ctx context.Context, device *domain.OTPDevice, code string, ttl time.Duration) error {
	minutes := int(ttl.Minutes())
	switch device.Method {
	case domain.MethodSMS:
		return s.notifier.SendSMS(ctx, device.Destination,
			fmt.Sprintf("Your verification code is: %s. Valid for %d minutes.", code, minutes))
	case domain.MethodCall:
		return s.notifier.MakeCall(ctx, device.Destination,
			fmt.Sprintf("Your verification code is %s.", spellDigits(code)))
	case domain.MethodEmail:
		return s.notifier.SendEmail(ctx, device.Destination, "Your verification code",
			fmt.Sprintf("Your verification code is: %s\n\nThe code is valid for %d minutes.", code, minutes))
	}
	return fmt.Errorf("%w: %s", domain.ErrMethodNotSupported, device.Method)
}

func destination(account *domain.Account, method domain.OTPMethod) string {
	if method == domain.MethodEmail {
		return account.Email
	}
	return account.PhoneNumber
}

func clearChallenge(device *domain.OTPDevice) {
	device.Token = ""
	device.ValidUntil = nil
}

// spellDigits separates digits so a voice reads them one at a time
func spellDigits(code string) string {
	return strings.Join(strings.Split(code, ""), " ")
}
