package services

import (
	"context"
	"errors"

	"github.com/you/mediahub/domain"
)

// CredentialVerifier authenticates username/email/phone plus password logins
type CredentialVerifier struct {
	accounts    domain.AccountRepository
	passwordSvc domain.PasswordService
	resolver    domain.IdentityResolver
}

// NewCredentialVerifier creates a new credential verifier
func NewCredentialVerifier(accounts domain.AccountRepository, passwordSvc domain.PasswordService, resolver domain.IdentityResolver) *CredentialVerifier {
	return &CredentialVerifier{
		accounts:    accounts,
		passwordSvc: passwordSvc,
		resolver:    resolver,
	}
}

// Verify returns the account matching identifier, password and role.
// Unknown identifiers and wrong passwords are the same ErrInvalidLogin.
func (v *CredentialVerifier) Verify(ctx context.Context, identifier, password string, role domain.Role) (*domain.Account, error) {
	identity := v.resolver.Resolve(identifier)

	account, err := v.accounts.FindByIdentity(ctx, identity, role)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrInvalidLogin
	}
	if err != nil {
		return nil, err
	}

	if !v.passwordSvc.Verify(account.PasswordHash, password) {
		return nil, domain.ErrInvalidLogin
	}
	if !account.LoginAllowed() {
		return nil, domain.ErrInactive
	}
	return account, nil
}
