package services

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/you/mediahub/domain"
	"github.com/you/mediahub/internal/identity"
	"github.com/you/mediahub/internal/mocks"
)

const (
	testPhone      = "+14155550100"
	developerPhone = "+966500000000"
)

// harness wires every flow against mocks whose account and device stores
// are backed by in-memory maps
type harness struct {
	accounts  *mocks.MockAccountRepository
	devices   *mocks.MockDeviceRepository
	editors   *mocks.MockEditorRepository
	notifier  *mocks.MockNotificationService
	throttle  *mocks.MockOTPThrottle
	events    *mocks.MockEventSink
	publisher *mocks.MockEventPublisher
	tokens    *mocks.MockTokenService
	passwords *mocks.MockPasswordService
	tx        *mocks.MockTransactor

	accountRows map[uint]*domain.Account
	deviceRows  map[uint]*domain.OTPDevice
	nextID      uint
	now         time.Time

	otp         *OTPService
	provisioner *AccountProvisioner
	sessions    *SessionIssuer
	login       *LoginFlow
	reset       *PasswordResetFlow
	tokenFlow   *TokenFlow
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		accounts:    mocks.NewMockAccountRepository(),
		devices:     mocks.NewMockDeviceRepository(),
		editors:     mocks.NewMockEditorRepository(),
		notifier:    mocks.NewMockNotificationService(),
		throttle:    mocks.NewMockOTPThrottle(),
		events:      mocks.NewMockEventSink(),
		publisher:   mocks.NewMockEventPublisher(),
		tokens:      mocks.NewMockTokenService(),
		passwords:   mocks.NewMockPasswordService(),
		tx:          &mocks.MockTransactor{},
		accountRows: make(map[uint]*domain.Account),
		deviceRows:  make(map[uint]*domain.OTPDevice),
		now:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	h.wireStores()

	log := zap.NewNop()
	h.otp = NewOTPService(h.devices, h.notifier, h.throttle, h.tx, nil, log, OTPConfig{
		Digits:         6,
		TTL:            5 * time.Minute,
		EmailTTL:       10 * time.Minute,
		DeveloperPhone: developerPhone,
	})
	h.otp.now = func() time.Time { return h.now }

	resolver := identity.NewResolver("SA")
	h.provisioner = NewAccountProvisioner(h.accounts, h.events, h.tx, log, []domain.Role{domain.RoleClient})
	h.sessions = NewSessionIssuer(h.tokens, h.editors, mocks.MockImageResolver{Prefix: "https://img/"}, h.events, log)
	h.login = NewLoginFlow(
		NewCredentialVerifier(h.accounts, h.passwords, resolver),
		h.provisioner,
		h.otp,
		h.sessions,
		resolver,
		log,
		LoginConfig{
			SupportedMethods:    []domain.OTPMethod{domain.MethodSMS, domain.MethodCall, domain.MethodEmail},
			VerificationEnabled: true,
		},
	)
	h.reset = NewPasswordResetFlow(h.accounts, h.otp, h.passwords, h.tx, h.publisher, log)
	h.tokenFlow = NewTokenFlow(h.tokens, h.accounts, h.sessions)
	return h
}

func (h *harness) wireStores() {
	h.accounts.CreateFunc = func(_ context.Context, a *domain.Account) error {
		for _, row := range h.accountRows {
			if row.Role == a.Role && a.PhoneNumber != "" && row.PhoneNumber == a.PhoneNumber {
				return domain.ErrAccountExists
			}
		}
		h.nextID++
		a.ID = h.nextID
		cp := *a
		h.accountRows[a.ID] = &cp
		return nil
	}
	h.accounts.FindByIDFunc = func(_ context.Context, id uint) (*domain.Account, error) {
		row, ok := h.accountRows[id]
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
		cp := *row
		return &cp, nil
	}
	h.accounts.FindByIdentityFunc = func(_ context.Context, ident domain.Identity, role domain.Role) (*domain.Account, error) {
		for _, row := range h.accountRows {
			if row.Role != role || ident.Value == "" {
				continue
			}
			var value string
			switch ident.Field {
			case domain.FieldEmail:
				value = row.Email
			case domain.FieldPhone:
				value = row.PhoneNumber
			case domain.FieldUsername:
				value = row.Username
			}
			if value == ident.Value {
				cp := *row
				return &cp, nil
			}
		}
		return nil, domain.ErrAccountNotFound
	}
	h.accounts.UpdatePasswordFunc = func(_ context.Context, id uint, hash string) error {
		row, ok := h.accountRows[id]
		if !ok {
			return domain.ErrAccountNotFound
		}
		row.PasswordHash = hash
		return nil
	}

	h.devices.CreateFunc = func(_ context.Context, d *domain.OTPDevice) error {
		h.nextID++
		d.ID = h.nextID
		cp := *d
		h.deviceRows[d.ID] = &cp
		return nil
	}
	h.devices.SaveFunc = func(_ context.Context, d *domain.OTPDevice) error {
		cp := *d
		h.deviceRows[d.ID] = &cp
		return nil
	}
	h.devices.FindDefaultFunc = func(_ context.Context, accountID uint) (*domain.OTPDevice, error) {
		return h.newestDevice(func(d *domain.OTPDevice) bool {
			return d.AccountID == accountID && d.Purpose == domain.PurposeLogin && d.IsDefault
		})
	}
	h.devices.FindByPurposeFunc = func(_ context.Context, accountID uint, purpose domain.OTPPurpose) (*domain.OTPDevice, error) {
		return h.newestDevice(func(d *domain.OTPDevice) bool { return d.AccountID == accountID && d.Purpose == purpose })
	}
}

func (h *harness) newestDevice(match func(*domain.OTPDevice) bool) (*domain.OTPDevice, error) {
	var found *domain.OTPDevice
	for _, d := range h.deviceRows {
		if match(d) && (found == nil || d.ID > found.ID) {
			found = d
		}
	}
	if found == nil {
		return nil, domain.ErrDeviceNotFound
	}
	cp := *found
	return &cp, nil
}

// seed stores an account and returns it with its id set
func (h *harness) seed(t *testing.T, a *domain.Account) *domain.Account {
	t.Helper()
	if err := h.accounts.Create(context.Background(), a); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func (h *harness) client(t *testing.T) *domain.Account {
	t.Helper()
	return h.seed(t, &domain.Account{
		Username:     "jane",
		Name:         "Jane Doe",
		Email:        "jane@example.com",
		PhoneNumber:  testPhone,
		PasswordHash: "hashed_s3cretpass1",
		Role:         domain.RoleClient,
		IsActive:     true,
	})
}

// code returns the outstanding code for accountID in the device purpose uses
func (h *harness) code(t *testing.T, accountID uint, purpose domain.OTPPurpose) string {
	t.Helper()
	var (
		d   *domain.OTPDevice
		err error
	)
	if purpose == domain.PurposePasswordReset {
		d, err = h.devices.FindByPurpose(context.Background(), accountID, domain.PurposePasswordReset)
	} else {
		d, err = h.devices.FindDefault(context.Background(), accountID)
	}
	if err != nil || d.Token == "" {
		t.Fatalf("no outstanding challenge for account %d", accountID)
	}
	return d.Token
}

func (h *harness) devicesFor(accountID uint) []*domain.OTPDevice {
	var out []*domain.OTPDevice
	for _, d := range h.deviceRows {
		if d.AccountID == accountID {
			out = append(out, d)
		}
	}
	return out
}
