package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/mediahub/domain"
	"github.com/you/mediahub/internal/app"
	"github.com/you/mediahub/internal/config"
	"github.com/you/mediahub/internal/infrastructure/auth"
	"github.com/you/mediahub/internal/mocks"
)

const (
	clientPhone    = "+14155550100"
	developerPhone = "+966500000000"
)

// TestSuite holds one fully wired service backed by in-memory stores
type TestSuite struct {
	Config    *config.Config
	Container *app.Container
	DB        *gorm.DB
	Redis     *redis.Client
	Miniredis *miniredis.Miniredis
	Notifier  *mocks.MockNotificationService
	Publisher *mocks.MockEventPublisher
	Router    http.Handler
}

// testConfig mirrors config/config.yml with every method enabled
func testConfig() *config.Config {
	return &config.Config{
		Port:        "0",
		Environment: "test",

		JWTSecret:  "e2e-secret",
		JWTIssuer:  "mediahub-e2e",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,

		OTPDigits:              6,
		OTPTTL:                 5 * time.Minute,
		OTPEmailTTL:            10 * time.Minute,
		OTPMaxAttempts:         3,
		SupportedMethods:       []domain.OTPMethod{domain.MethodSMS, domain.MethodCall, domain.MethodEmail},
		PhonelessCreationRoles: []domain.Role{domain.RoleClient},
		DeveloperPhone:         developerPhone,
		DefaultRegion:          "US",
		VerificationEnabled:    true,
	}
}

// NewTestSuite wires the service against sqlite and miniredis. mutate may
// adjust the config before wiring.
func NewTestSuite(t *testing.T, mutate func(cfg *config.Config)) *TestSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	suite := &TestSuite{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Miniredis: mr,
		Notifier:  mocks.NewMockNotificationService(),
		Publisher: mocks.NewMockEventPublisher(),
	}

	suite.Container = &app.Container{
		Config:          cfg,
		Log:             zap.NewNop(),
		DB:              db,
		RedisClient:     rdb,
		PasswordSvc:     auth.NewPasswordServiceWithCost(bcrypt.MinCost),
		NotificationSvc: suite.Notifier,
		Publisher:       suite.Publisher,
	}
	require.NoError(t, suite.Container.Wire())

	suite.Router = suite.Container.Router
	return suite
}

// Response is a decoded API reply
type Response struct {
	Status int
	Body   map[string]interface{}
	Raw    string
}

// Field returns the messages for one field of an error body
func (r Response) Field(name string) []interface{} {
	fields, _ := r.Body["fields"].(map[string]interface{})
	msgs, _ := fields[name].([]interface{})
	return msgs
}

func (s *TestSuite) do(t *testing.T, method, path string, body interface{}, token string) Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	raw := w.Body.Bytes()
	out := Response{Status: w.Code, Raw: string(raw)}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.Body))
	}
	return out
}

// Post sends an anonymous JSON request
func (s *TestSuite) Post(t *testing.T, path string, body interface{}) Response {
	t.Helper()
	return s.do(t, http.MethodPost, path, body, "")
}

// Get sends a GET request, authenticated when token is set
func (s *TestSuite) Get(t *testing.T, path, token string) Response {
	t.Helper()
	return s.do(t, http.MethodGet, path, nil, token)
}

var codePattern = regexp.MustCompile(`\d{6}`)

// LastCode extracts the code from the most recent delivery. Voice messages
// spell digits with spaces, so whitespace is removed first.
func (s *TestSuite) LastCode(t *testing.T) string {
	t.Helper()
	msg, ok := s.Notifier.Last()
	require.True(t, ok, "no message was delivered")

	compact := strings.Join(strings.Fields(msg.Body), "")
	code := codePattern.FindString(compact)
	require.NotEmpty(t, code, "no code in %q", msg.Body)
	return code
}

// otherCode returns a well formed code that differs from code
func otherCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

// SendOTP requests a login code for phone under role
func (s *TestSuite) SendOTP(t *testing.T, phone string, role domain.Role, method domain.OTPMethod) Response {
	t.Helper()
	return s.Post(t, "/api/login/send-otp-token", map[string]string{
		"phone_number": phone,
		"role":         string(role),
		"method":       string(method),
	})
}

// VerifyOTP submits a login code for phone under role
func (s *TestSuite) VerifyOTP(t *testing.T, phone string, role domain.Role, code string) Response {
	t.Helper()
	return s.Post(t, "/api/login/verify-otp-token", map[string]string{
		"phone_number": phone,
		"role":         string(role),
		"otp_token":    code,
	})
}
