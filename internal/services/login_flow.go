package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
)

// LoginConfig holds the login wizard switches
type LoginConfig struct {
	SupportedMethods []domain.OTPMethod
	// VerificationEnabled false accepts any code on the verify step
	VerificationEnabled bool
}

// LoginFlow drives the two-step login wizard. Steps share no server-side
// state: the verify step is correlated with the send step only by the
// resubmitted phone number and role.
type LoginFlow struct {
	credentials *CredentialVerifier
	accounts    *AccountProvisioner
	otp         *OTPService
	sessions    *SessionIssuer
	resolver    domain.IdentityResolver
	log         *zap.Logger
	config      LoginConfig
}

// NewLoginFlow creates a new login flow
func NewLoginFlow(
	credentials *CredentialVerifier,
	accounts *AccountProvisioner,
	otp *OTPService,
	sessions *SessionIssuer,
	resolver domain.IdentityResolver,
	log *zap.Logger,
	config LoginConfig,
) *LoginFlow {
	return &LoginFlow{
		credentials: credentials,
		accounts:    accounts,
		otp:         otp,
		sessions:    sessions,
		resolver:    resolver,
		log:         log,
		config:      config,
	}
}

// MethodChoices lists the configured delivery methods
func (f *LoginFlow) MethodChoices() []domain.MethodChoice {
	choices := make([]domain.MethodChoice, 0, len(f.config.SupportedMethods))
	for _, m := range f.config.SupportedMethods {
		choices = append(choices, domain.MethodChoice{Code: string(m), Label: m.Display()})
	}
	return choices
}

// SubmitCredentials completes a login from identifier and password in one step
func (f *LoginFlow) SubmitCredentials(ctx context.Context, identifier, password string, role domain.Role) (*domain.LoginStep, error) {
	identifier = strings.TrimSpace(identifier)
	verr := &domain.ValidationError{}
	if identifier == "" {
		verr.Add("username", "This field is required.")
	}
	if password == "" {
		verr.Add("password", "This field is required.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	account, err := f.credentials.Verify(ctx, identifier, password, role)
	if err != nil {
		f.logRejected("password", role, err)
		return nil, err
	}

	payload, err := f.sessions.IssueSession(ctx, account)
	if err != nil {
		return nil, err
	}
	return &domain.LoginStep{State: domain.Completed, Account: account, Payload: payload}, nil
}

// RequestOTP moves a phone login to AwaitingOTP by sending a challenge
func (f *LoginFlow) RequestOTP(ctx context.Context, phone string, role domain.Role, method domain.OTPMethod) (*domain.LoginStep, error) {
	if !slices.Contains(f.config.SupportedMethods, method) {
		return nil, domain.NewValidationError("method", "Select a valid choice. That choice is not one of the available choices.")
	}
	normalized, err := f.normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	account, created, err := f.accounts.LookupOrCreate(ctx, normalized, role)
	if err != nil {
		f.logRejected("otp", role, err)
		return nil, err
	}

	challenge, err := f.otp.IssueChallenge(ctx, account, method)
	if err != nil {
		return nil, err
	}
	return &domain.LoginStep{State: domain.AwaitingOTP, Account: account, Challenge: challenge, Created: created}, nil
}

// SubmitOTP completes a phone login with the code from RequestOTP. It
// never creates accounts.
func (f *LoginFlow) SubmitOTP(ctx context.Context, phone string, role domain.Role, code string) (*domain.LoginStep, error) {
	normalized, err := f.normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	account, err := f.accounts.Lookup(ctx, normalized, role)
	if err != nil {
		f.logRejected("otp", role, err)
		return nil, err
	}

	if f.config.VerificationEnabled {
		if err := f.otp.Verify(ctx, account, code, domain.PurposeLogin); err != nil {
			f.log.Info("otp rejected", zap.Uint("user_id", account.ID), zap.Error(err))
			return nil, err
		}
	}

	payload, err := f.sessions.IssueSession(ctx, account)
	if err != nil {
		return nil, err
	}
	return &domain.LoginStep{State: domain.Completed, Account: account, Payload: payload}, nil
}

func (f *LoginFlow) normalizePhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", domain.NewValidationError("phone_number", "This field is required.")
	}
	normalized, err := f.resolver.NormalizePhone(phone)
	if err != nil {
		return "", domain.NewValidationError("phone_number", "Enter a valid phone number.")
	}
	return normalized, nil
}

func (f *LoginFlow) logRejected(channel string, role domain.Role, err error) {
	if errors.Is(err, domain.ErrInvalidLogin) || errors.Is(err, domain.ErrInactive) {
		f.log.Info("login rejected",
			zap.String("channel", channel),
			zap.String("role", string(role)),
			zap.String("code", domain.ErrorCode(err)),
		)
		return
	}
	f.log.Error("login failed", zap.String("channel", channel), zap.Error(err))
}
