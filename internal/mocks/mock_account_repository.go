package mocks

import (
	"context"
	"time"

	"github.com/you/mediahub/domain"
)

// MockAccountRepository implements domain.AccountRepository interface for testing
type MockAccountRepository struct {
	CreateFunc          func(ctx context.Context, account *domain.Account) error
	FindByIDFunc        func(ctx context.Context, id uint) (*domain.Account, error)
	FindByIdentityFunc  func(ctx context.Context, identity domain.Identity, role domain.Role) (*domain.Account, error)
	UsernameExistsFunc  func(ctx context.Context, username string) (bool, error)
	UpdatePasswordFunc  func(ctx context.Context, id uint, passwordHash string) error
	UpdateLastLoginFunc func(ctx context.Context, id uint, at time.Time) error
}

// NewMockAccountRepository creates a new MockAccountRepository with default behaviors
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{}
}

// Create creates a new account
func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	// Default behavior: success
	return nil
}

// FindByID finds an account by ID
func (m *MockAccountRepository) FindByID(ctx context.Context, id uint) (*domain.Account, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	// Default behavior: not found
	return nil, domain.ErrAccountNotFound
}

// FindByIdentity finds an account by a classified identifier within a role
func (m *MockAccountRepository) FindByIdentity(ctx context.Context, identity domain.Identity, role domain.Role) (*domain.Account, error) {
	if m.FindByIdentityFunc != nil {
		return m.FindByIdentityFunc(ctx, identity, role)
	}
	return nil, domain.ErrAccountNotFound
}

// UsernameExists reports whether a username is taken
func (m *MockAccountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	if m.UsernameExistsFunc != nil {
		return m.UsernameExistsFunc(ctx, username)
	}
	return false, nil
}

// UpdatePassword replaces the password hash
func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

// UpdateLastLogin stamps the last login time
func (m *MockAccountRepository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, id, at)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.AccountRepository = (*MockAccountRepository)(nil)
