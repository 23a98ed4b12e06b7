package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/you/mediahub/domain"
	"github.com/you/mediahub/internal/infrastructure/repositories"
)

const testPassword = "s3cretpass1"

// AccountOptions configures a seeded account
type AccountOptions struct {
	Username string
	Name     string
	Email    string
	Phone    string
	Password string
	Role     domain.Role
	Inactive bool
	EditorID *uint
}

// SeedAccount stores an account through the real repository
func (s *TestSuite) SeedAccount(t *testing.T, opts AccountOptions) *domain.Account {
	t.Helper()
	if opts.Role == "" {
		opts.Role = domain.RoleClient
	}

	account := &domain.Account{
		Username:    opts.Username,
		Name:        opts.Name,
		Email:       opts.Email,
		PhoneNumber: opts.Phone,
		Role:        opts.Role,
		IsActive:    !opts.Inactive,
		EditorID:    opts.EditorID,
	}
	if opts.Password != "" {
		hash, err := s.Container.PasswordSvc.Hash(opts.Password)
		require.NoError(t, err)
		account.PasswordHash = hash
	}
	require.NoError(t, s.Container.AccountRepo.Create(context.Background(), account))
	return account
}

// SeedClient stores jane, an active client with every identifier set
func (s *TestSuite) SeedClient(t *testing.T) *domain.Account {
	t.Helper()
	return s.SeedAccount(t, AccountOptions{
		Username: "jane",
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Phone:    clientPhone,
		Password: testPassword,
	})
}

// SeedEditor stores an editor organization and returns its id
func (s *TestSuite) SeedEditor(t *testing.T, name, email, image string) uint {
	t.Helper()
	editor := &repositories.DBEditor{Name: name, Email: email, Image: image, IsActive: true}
	require.NoError(t, s.DB.Create(editor).Error)
	return editor.ID
}

// ReloadAccount reads an account back from the store
func (s *TestSuite) ReloadAccount(t *testing.T, id uint) *domain.Account {
	t.Helper()
	account, err := s.Container.AccountRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return account
}

// CountAccounts counts accounts with phone under role
func (s *TestSuite) CountAccounts(t *testing.T, phone string, role domain.Role) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB.Model(&repositories.DBAccount{}).
		Where("phone_number = ? AND role = ?", phone, string(role)).Count(&n).Error)
	return n
}

// CountDevices counts OTP devices owned by accountID
func (s *TestSuite) CountDevices(t *testing.T, accountID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB.Model(&repositories.DBOTPDevice{}).Where("account_id = ?", accountID).Count(&n).Error)
	return n
}
