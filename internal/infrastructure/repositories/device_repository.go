package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/you/mediahub/domain"
)

// DeviceRepositoryImpl implements domain.DeviceRepository using GORM
type DeviceRepositoryImpl struct {
	db *gorm.DB
}

// DBOTPDevice is the database model for OTPDevice
type DBOTPDevice struct {
	ID          uint   `gorm:"primaryKey"`
	AccountID   uint   `gorm:"index;not null"`
	Name        string `gorm:"size:64"`
	Method      string `gorm:"index;size:16;not null"`
	Purpose     string `gorm:"index;size:32;not null;default:login"`
	Destination string `gorm:"size:255"`
	SecretKey   string `gorm:"size:80;not null"`
	Counter     uint64
	Token       string `gorm:"size:16"`
	IssuedAt    *time.Time
	ValidUntil  *time.Time
	IsDefault   bool `gorm:"index"`
	Confirmed   bool
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (DBOTPDevice) TableName() string {
	return "otp_devices"
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *gorm.DB) domain.DeviceRepository {
	return &DeviceRepositoryImpl{db: db}
}

// FindDefault implements domain.DeviceRepository. Newest default login device wins.
func (r *DeviceRepositoryImpl) FindDefault(ctx context.Context, accountID uint) (*domain.OTPDevice, error) {
	return r.first(conn(ctx, r.db).
		Where("account_id = ? AND purpose = ? AND is_default = ?", accountID, string(domain.PurposeLogin), true).
		Order("created_at DESC").Order("id DESC"))
}

// FindByPurpose implements domain.DeviceRepository
func (r *DeviceRepositoryImpl) FindByPurpose(ctx context.Context, accountID uint, purpose domain.OTPPurpose) (*domain.OTPDevice, error) {
	return r.first(conn(ctx, r.db).
		Where("account_id = ? AND purpose = ?", accountID, string(purpose)).
		Order("id DESC"))
}

// Create implements domain.DeviceRepository
func (r *DeviceRepositoryImpl) Create(ctx context.Context, device *domain.OTPDevice) error {
	dbDevice := deviceToDB(device)
	if err := conn(ctx, r.db).Create(dbDevice).Error; err != nil {
		return err
	}
	device.ID = dbDevice.ID
	device.CreatedAt = dbDevice.CreatedAt
	device.UpdatedAt = dbDevice.UpdatedAt
	return nil
}

// Save implements domain.DeviceRepository
func (r *DeviceRepositoryImpl) Save(ctx context.Context, device *domain.OTPDevice) error {
	dbDevice := deviceToDB(device)
	if err := conn(ctx, r.db).Save(dbDevice).Error; err != nil {
		return err
	}
	device.UpdatedAt = dbDevice.UpdatedAt
	return nil
}

func (r *DeviceRepositoryImpl) first(q *gorm.DB) (*domain.OTPDevice, error) {
	var d DBOTPDevice
	if err := q.First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDeviceNotFound
		}
		return nil, err
	}
	return deviceToDomain(&d), nil
}

func purposeOrLogin(p domain.OTPPurpose) domain.OTPPurpose {
	if p == "" {
		return domain.PurposeLogin
	}
	return p
}

func deviceToDB(d *domain.OTPDevice) *DBOTPDevice {
	return &DBOTPDevice{
		ID:          d.ID,
		AccountID:   d.AccountID,
		Name:        d.Name,
		Method:      string(d.Method),
		Purpose:     string(purposeOrLogin(d.Purpose)),
		Destination: d.Destination,
		SecretKey:   d.SecretKey,
		Counter:     d.Counter,
		Token:       d.Token,
		IssuedAt:    d.IssuedAt,
		ValidUntil:  d.ValidUntil,
		IsDefault:   d.IsDefault,
		Confirmed:   d.Confirmed,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func deviceToDomain(d *DBOTPDevice) *domain.OTPDevice {
	return &domain.OTPDevice{
		ID:          d.ID,
		AccountID:   d.AccountID,
		Name:        d.Name,
		Method:      domain.OTPMethod(d.Method),
		Purpose:     domain.OTPPurpose(d.Purpose),
		Destination: d.Destination,
		SecretKey:   d.SecretKey,
		Counter:     d.Counter,
		Token:       d.Token,
		IssuedAt:    d.IssuedAt,
		ValidUntil:  d.ValidUntil,
		IsDefault:   d.IsDefault,
		Confirmed:   d.Confirmed,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
