package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
)

// SessionIssuer signs token pairs and builds the profile snapshot returned
// on login
type SessionIssuer struct {
	tokenSvc domain.TokenService
	editors  domain.EditorRepository
	images   domain.ImageResolver
	events   domain.EventSink
	log      *zap.Logger
}

// NewSessionIssuer creates a new session issuer
func NewSessionIssuer(tokenSvc domain.TokenService, editors domain.EditorRepository, images domain.ImageResolver, events domain.EventSink, log *zap.Logger) *SessionIssuer {
	return &SessionIssuer{
		tokenSvc: tokenSvc,
		editors:  editors,
		images:   images,
		events:   events,
		log:      log,
	}
}

// IssueSession completes a login: it signs tokens for account and fires
// the login-succeeded event once.
func (s *SessionIssuer) IssueSession(ctx context.Context, account *domain.Account) (*domain.TokenPayload, error) {
	access, err := s.tokenSvc.GenerateAccessToken(account.ID, account.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, expiry, err := s.tokenSvc.GenerateRefreshToken(account.ID, account.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	profile, err := s.Profile(ctx, account)
	if err != nil {
		return nil, err
	}

	if err := s.events.LoginSucceeded(ctx, account); err != nil {
		return nil, err
	}

	return &domain.TokenPayload{
		AccessToken: access,
		Refresh:     refresh,
		ExpiryDate:  expiry,
		Profile:     *profile,
	}, nil
}

// Profile returns the flattened account snapshot. Editors show their
// organization's name, email and image.
func (s *SessionIssuer) Profile(ctx context.Context, account *domain.Account) (*domain.Profile, error) {
	profile := &domain.Profile{
		Name:        account.Name,
		Username:    account.Username,
		Email:       account.Email,
		PhoneNumber: account.PhoneNumber,
		Role:        account.Role,
		RoleDisplay: account.Role.Display(),
		IsActive:    account.IsActive,
	}

	if !account.IsEditor() {
		return profile, nil
	}

	editor, err := s.editors.FindByID(ctx, *account.EditorID)
	if errors.Is(err, domain.ErrEditorNotFound) {
		s.log.Warn("editor account without organization", zap.Uint("user_id", account.ID), zap.Uint("editor_id", *account.EditorID))
		return profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load editor: %w", err)
	}

	profile.Name = editor.Name
	profile.Email = editor.Email
	profile.Image = s.images.ResolveImageURL(editor.Image)
	return profile, nil
}
