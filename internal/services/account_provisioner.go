package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
)

const usernameAttempts = 5

// AccountProvisioner resolves phone logins to accounts, creating accounts
// on first contact for roles that allow it.
type AccountProvisioner struct {
	accounts       domain.AccountRepository
	events         domain.EventSink
	tx             domain.Transactor
	log            *zap.Logger
	phonelessRoles []domain.Role
}

// NewAccountProvisioner creates a new provisioner
func NewAccountProvisioner(accounts domain.AccountRepository, events domain.EventSink, tx domain.Transactor, log *zap.Logger, phonelessRoles []domain.Role) *AccountProvisioner {
	return &AccountProvisioner{
		accounts:       accounts,
		events:         events,
		tx:             tx,
		log:            log,
		phonelessRoles: phonelessRoles,
	}
}

// CanCreate reports whether unknown phone numbers may register under role
func (p *AccountProvisioner) CanCreate(role domain.Role) bool {
	return slices.Contains(p.phonelessRoles, role)
}

// Lookup finds the account for (phone, role) without creating one
func (p *AccountProvisioner) Lookup(ctx context.Context, phone string, role domain.Role) (*domain.Account, error) {
	account, err := p.accounts.FindByIdentity(ctx, domain.Identity{Field: domain.FieldPhone, Value: phone}, role)
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

// LookupOrCreate finds the account for (phone, role) or, when role allows
// it, silently registers one. The second return reports a creation.
func (p *AccountProvisioner) LookupOrCreate(ctx context.Context, phone string, role domain.Role) (*domain.Account, bool, error) {
	account, err := p.Lookup(ctx, phone, role)
	if !errors.Is(err, domain.ErrInvalidLogin) || !p.CanCreate(role) {
		return account, false, err
	}

	account, err = p.create(ctx, phone, role)
	if errors.Is(err, domain.ErrAccountExists) {
		// lost a race with a concurrent first login for the same number
		account, err = p.Lookup(ctx, phone, role)
		return account, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}

func (p *AccountProvisioner) create(ctx context.Context, phone string, role domain.Role) (*domain.Account, error) {
	var account *domain.Account
	err := p.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		username, err := p.generateUsername(ctx)
		if err != nil {
			return err
		}

		account = &domain.Account{
			Username:    username,
			PhoneNumber: phone,
			Role:        role,
			IsActive:    true,
		}
		return p.accounts.Create(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	p.log.Info("account registered by phone login",
		zap.Uint("user_id", account.ID),
		zap.String("role", string(role)),
		zap.String("phone", phone),
	)
	if err := p.events.UserRegistered(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// generateUsername returns a random username not yet taken
func (p *AccountProvisioner) generateUsername(ctx context.Context) (string, error) {
	for i := 0; i < usernameAttempts; i++ {
		candidate := "user" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		exists, err := p.accounts.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique username after %d attempts", usernameAttempts)
}
