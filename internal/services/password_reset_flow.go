package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
)

// PasswordResetFlow drives the email based password reset wizard
type PasswordResetFlow struct {
	accounts    domain.AccountRepository
	otp         *OTPService
	passwordSvc domain.PasswordService
	tx          domain.Transactor
	publisher   domain.EventPublisher
	log         *zap.Logger
}

// NewPasswordResetFlow creates a new reset flow
func NewPasswordResetFlow(
	accounts domain.AccountRepository,
	otp *OTPService,
	passwordSvc domain.PasswordService,
	tx domain.Transactor,
	publisher domain.EventPublisher,
	log *zap.Logger,
) *PasswordResetFlow {
	return &PasswordResetFlow{
		accounts:    accounts,
		otp:         otp,
		passwordSvc: passwordSvc,
		tx:          tx,
		publisher:   publisher,
		log:         log,
	}
}

// RequestReset emails a reset code to the account registered under (email, role)
func (f *PasswordResetFlow) RequestReset(ctx context.Context, email string, role domain.Role) (*domain.ChallengeResult, error) {
	account, err := f.lookup(ctx, email, role)
	if err != nil {
		return nil, err
	}
	return f.otp.IssueResetChallenge(ctx, account)
}

// ConfirmReset verifies the emailed code and replaces the password. The
// code is only consumed when the new password is acceptable.
func (f *PasswordResetFlow) ConfirmReset(ctx context.Context, email string, role domain.Role, code, password, confirm string) error {
	if password != confirm {
		return domain.ErrPasswordMismatch
	}
	if err := ValidatePassword("password", password); err != nil {
		return err
	}

	account, err := f.lookup(ctx, email, role)
	if err != nil {
		return err
	}

	hash, err := f.passwordSvc.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = f.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := f.otp.Verify(ctx, account, code, domain.PurposePasswordReset); err != nil {
			return err
		}
		return f.accounts.UpdatePassword(ctx, account.ID, hash)
	})
	if err != nil {
		return err
	}

	f.log.Info("password reset", zap.Uint("user_id", account.ID))
	event := domain.NewAuditEvent(domain.PasswordChangedEvent, account).WithMetadata(domain.MetadataChannel, "email_otp")
	if err := f.publisher.Publish(ctx, event); err != nil {
		f.log.Warn("failed to publish event", zap.String("event", string(domain.PasswordChangedEvent)), zap.Error(err))
	}
	return nil
}

func (f *PasswordResetFlow) lookup(ctx context.Context, email string, role domain.Role) (*domain.Account, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.NewValidationError("email", "This field is required.")
	}

	account, err := f.accounts.FindByIdentity(ctx, domain.Identity{Field: domain.FieldEmail, Value: email}, role)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrInvalidLogin
	}
	if err != nil {
		return nil, err
	}
	if !account.LoginAllowed() {
		return nil, domain.ErrInactive
	}
	return account, nil
}
