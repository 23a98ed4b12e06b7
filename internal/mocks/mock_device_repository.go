package mocks

import (
	"context"

	"github.com/you/mediahub/domain"
)

// MockDeviceRepository implements domain.DeviceRepository interface for testing
type MockDeviceRepository struct {
	FindDefaultFunc  func(ctx context.Context, accountID uint) (*domain.OTPDevice, error)
	FindByPurposeFunc func(ctx context.Context, accountID uint, purpose domain.OTPPurpose) (*domain.OTPDevice, error)
	CreateFunc       func(ctx context.Context, device *domain.OTPDevice) error
	SaveFunc         func(ctx context.Context, device *domain.OTPDevice) error
}

// NewMockDeviceRepository creates a new MockDeviceRepository with default behaviors
func NewMockDeviceRepository() *MockDeviceRepository {
	return &MockDeviceRepository{}
}

// FindDefault finds the default device of an account
func (m *MockDeviceRepository) FindDefault(ctx context.Context, accountID uint) (*domain.OTPDevice, error) {
	if m.FindDefaultFunc != nil {
		return m.FindDefaultFunc(ctx, accountID)
	}
	// Default behavior: not found
	return nil, domain.ErrDeviceNotFound
}

// FindByPurpose finds the newest device of an account dedicated to purpose
func (m *MockDeviceRepository) FindByPurpose(ctx context.Context, accountID uint, purpose domain.OTPPurpose) (*domain.OTPDevice, error) {
	if m.FindByPurposeFunc != nil {
		return m.FindByPurposeFunc(ctx, accountID, purpose)
	}
	return nil, domain.ErrDeviceNotFound
}

// Create stores a new device
func (m *MockDeviceRepository) Create(ctx context.Context, device *domain.OTPDevice) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, device)
	}
	return nil
}

// Save persists every device field
func (m *MockDeviceRepository) Save(ctx context.Context, device *domain.OTPDevice) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, device)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.DeviceRepository = (*MockDeviceRepository)(nil)
