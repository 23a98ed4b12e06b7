package mocks

import (
	"fmt"
	"strings"
	"time"

	"github.com/you/mediahub/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	GenerateAccessTokenFunc  func(userID uint, role domain.Role) (string, error)
	GenerateRefreshTokenFunc func(userID uint, role domain.Role) (string, time.Time, error)
	ValidateAccessTokenFunc  func(token string) (*domain.TokenClaims, error)
	ValidateRefreshTokenFunc func(token string) (*domain.TokenClaims, error)
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// GenerateAccessToken generates an access token for the user
func (m *MockTokenService) GenerateAccessToken(userID uint, role domain.Role) (string, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(userID, role)
	}
	// Default behavior: return a mock access token
	return fmt.Sprintf("access_token_user_%d_%s", userID, role), nil
}

// GenerateRefreshToken generates a refresh token for the user
func (m *MockTokenService) GenerateRefreshToken(userID uint, role domain.Role) (string, time.Time, error) {
	if m.GenerateRefreshTokenFunc != nil {
		return m.GenerateRefreshTokenFunc(userID, role)
	}
	// Default behavior: return a mock refresh token valid for 400 days
	return fmt.Sprintf("refresh_token_user_%d_%s", userID, role), time.Now().Add(9600 * time.Hour), nil
}

// ValidateAccessToken validates an access token and returns claims
func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	// Default behavior: accept tokens produced by GenerateAccessToken
	return parseMockToken(token, "access_token_user_", domain.TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and returns claims
func (m *MockTokenService) ValidateRefreshToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateRefreshTokenFunc != nil {
		return m.ValidateRefreshTokenFunc(token)
	}
	return parseMockToken(token, "refresh_token_user_", domain.TokenTypeRefresh)
}

func parseMockToken(token, prefix, tokenType string) (*domain.TokenClaims, error) {
	rest, ok := strings.CutPrefix(token, prefix)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}
	var id uint
	var role string
	if _, err := fmt.Sscanf(strings.Replace(rest, "_", " ", 1), "%d %s", &id, &role); err != nil {
		return nil, domain.ErrTokenMalformed
	}

	now := time.Now().Unix()
	return &domain.TokenClaims{
		UserID:    id,
		Role:      domain.Role(role),
		TokenType: tokenType,
		IssuedAt:  now,
		ExpiresAt: now + 3600,
	}, nil
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
