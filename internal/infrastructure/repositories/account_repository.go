package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/you/mediahub/domain"
)

// AccountRepositoryImpl implements domain.AccountRepository using GORM
type AccountRepositoryImpl struct {
	db *gorm.DB
}

// DBAccount is the database model for Account. Email and phone are nullable
// so the per-role unique indexes only bind accounts that carry them.
type DBAccount struct {
	ID           uint    `gorm:"primaryKey"`
	Username     string  `gorm:"uniqueIndex;size:150;not null"`
	Name         string  `gorm:"size:255"`
	Email        *string `gorm:"uniqueIndex:idx_accounts_email_role;size:255"`
	PhoneNumber  *string `gorm:"uniqueIndex:idx_accounts_phone_role;size:32"`
	PasswordHash string  `gorm:"column:password;size:255"`
	Role         string  `gorm:"uniqueIndex:idx_accounts_email_role;uniqueIndex:idx_accounts_phone_role;size:16;not null"`
	IsActive     bool    `gorm:"index"`
	IsDeleted    bool    `gorm:"index"`
	EditorID     *uint   `gorm:"index"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (DBAccount) TableName() string {
	return "accounts"
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) domain.AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

// Create implements domain.AccountRepository
func (r *AccountRepositoryImpl) Create(ctx context.Context, account *domain.Account) error {
	dbAccount := accountToDB(account)
	if err := conn(ctx, r.db).Create(dbAccount).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAccountExists
		}
		return err
	}
	account.ID = dbAccount.ID
	account.CreatedAt = dbAccount.CreatedAt
	account.UpdatedAt = dbAccount.UpdatedAt
	return nil
}

// FindByID implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Account, error) {
	return r.first(conn(ctx, r.db).Where("id = ?", id))
}

// FindByIdentity implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByIdentity(ctx context.Context, identity domain.Identity, role domain.Role) (*domain.Account, error) {
	var column string
	switch identity.Field {
	case domain.FieldEmail:
		column = "email"
	case domain.FieldPhone:
		column = "phone_number"
	case domain.FieldUsername:
		column = "username"
	default:
		return nil, fmt.Errorf("unknown identity field %q", identity.Field)
	}
	if identity.Value == "" {
		return nil, domain.ErrAccountNotFound
	}
	return r.first(conn(ctx, r.db).Where(column+" = ? AND role = ?", identity.Value, string(role)))
}

// UsernameExists implements domain.AccountRepository
func (r *AccountRepositoryImpl) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&DBAccount{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// UpdatePassword implements domain.AccountRepository
func (r *AccountRepositoryImpl) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	res := conn(ctx, r.db).Model(&DBAccount{}).Where("id = ?", id).Update("password", passwordHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// UpdateLastLogin implements domain.AccountRepository
func (r *AccountRepositoryImpl) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return conn(ctx, r.db).Model(&DBAccount{}).Where("id = ?", id).Update("last_login_at", at).Error
}

func (r *AccountRepositoryImpl) first(q *gorm.DB) (*domain.Account, error) {
	var dbAccount DBAccount
	if err := q.First(&dbAccount).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return accountToDomain(&dbAccount), nil
}

func accountToDB(a *domain.Account) *DBAccount {
	return &DBAccount{
		ID:           a.ID,
		Username:     a.Username,
		Name:         a.Name,
		Email:        nullable(domain.NormalizeEmail(a.Email)),
		PhoneNumber:  nullable(a.PhoneNumber),
		PasswordHash: a.PasswordHash,
		Role:         string(a.Role),
		IsActive:     a.IsActive,
		IsDeleted:    a.IsDeleted,
		EditorID:     a.EditorID,
		LastLoginAt:  a.LastLoginAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func accountToDomain(a *DBAccount) *domain.Account {
	return &domain.Account{
		ID:           a.ID,
		Username:     a.Username,
		Name:         a.Name,
		Email:        deref(a.Email),
		PhoneNumber:  deref(a.PhoneNumber),
		PasswordHash: a.PasswordHash,
		Role:         domain.Role(a.Role),
		IsActive:     a.IsActive,
		IsDeleted:    a.IsDeleted,
		EditorID:     a.EditorID,
		LastLoginAt:  a.LastLoginAt,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
