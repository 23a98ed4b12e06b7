package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/you/mediahub/domain"
)

// TokenFlow refreshes and inspects issued tokens
type TokenFlow struct {
	tokenSvc domain.TokenService
	accounts domain.AccountRepository
	sessions *SessionIssuer
}

// NewTokenFlow creates a new token flow
func NewTokenFlow(tokenSvc domain.TokenService, accounts domain.AccountRepository, sessions *SessionIssuer) *TokenFlow {
	return &TokenFlow{tokenSvc: tokenSvc, accounts: accounts, sessions: sessions}
}

// Refresh exchanges a refresh token for a new access token. The account
// must still be allowed to log in.
func (f *TokenFlow) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := f.tokenSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	account, err := f.activeAccount(ctx, claims.UserID)
	if err != nil {
		return "", err
	}

	access, err := f.tokenSvc.GenerateAccessToken(account.ID, account.Role)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return access, nil
}

// Verify checks that token is a valid access or refresh token
func (f *TokenFlow) Verify(token string) error {
	if _, err := f.tokenSvc.ValidateAccessToken(token); err == nil {
		return nil
	}
	_, err := f.tokenSvc.ValidateRefreshToken(token)
	return err
}

// Me returns the profile of the account behind a validated access token
func (f *TokenFlow) Me(ctx context.Context, userID uint) (*domain.Profile, error) {
	account, err := f.activeAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return f.sessions.Profile(ctx, account)
}

func (f *TokenFlow) activeAccount(ctx context.Context, userID uint) (*domain.Account, error) {
	account, err := f.accounts.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if !account.LoginAllowed() {
		return nil, domain.ErrTokenInvalid
	}
	return account, nil
}
