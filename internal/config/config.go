package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"gopkg.in/yaml.v3"

	"github.com/you/mediahub/domain"
)

const defaultConfigPath = "config/config.yml"

type AppConfig struct {
	Port        int    `yaml:"port"`
	GinMode     string `yaml:"gin_mode"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
}

type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	AccessTTL  string `yaml:"access_ttl"`
	RefreshTTL string `yaml:"refresh_ttl"`
}

type OTPConfig struct {
	Digits                 int      `yaml:"digits"`
	TTL                    string   `yaml:"ttl"`
	EmailTTL               string   `yaml:"email_ttl"`
	MaxAttempts            int      `yaml:"max_attempts"`
	ResendWindow           string   `yaml:"resend_window"`
	SupportedMethods       []string `yaml:"supported_methods"`
	PhonelessCreationRoles []string `yaml:"phoneless_creation_roles"`
	DeveloperPhone         string   `yaml:"developer_phone"`
	DefaultRegion          string   `yaml:"default_region"`
	VerificationEnabled    *bool    `yaml:"verification_enabled"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type RabbitMQConfig struct {
	URL string `yaml:"url"`
}

type CloudinaryConfig struct {
	CloudName string `yaml:"cloud_name"`
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

type ConfigFile struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	OTP        OTPConfig        `yaml:"otp"`
	Twilio     TwilioConfig     `yaml:"twilio"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Cloudinary CloudinaryConfig `yaml:"cloudinary"`
}

type Config struct {
	Port        string
	GinMode     string
	Environment string
	LogLevel    string

	DSN      string
	DBSchema string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	OTPDigits              int
	OTPTTL                 time.Duration
	OTPEmailTTL            time.Duration
	OTPMaxAttempts         int
	OTPResendWindow        time.Duration
	SupportedMethods       []domain.OTPMethod
	PhonelessCreationRoles []domain.Role
	DeveloperPhone         string
	DefaultRegion          string
	VerificationEnabled    bool

	TwilioSID   string
	TwilioToken string
	TwilioFrom  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	RabbitMQURL string

	CloudinaryName   string
	CloudinaryKey    string
	CloudinarySecret string
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// Load reads the YAML file named by CONFIG_PATH and applies env overrides
func Load() (*Config, error) {
	return LoadFrom(env("CONFIG_PATH", defaultConfigPath))
}

// LoadFrom reads the YAML file at path and applies env overrides
func LoadFrom(path string) (*Config, error) {
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return Build(configFile)
}

// Build turns a parsed config file into a validated Config
func Build(configFile *ConfigFile) (*Config, error) {
	durations := map[string]*string{
		"JWT access TTL":    &configFile.JWT.AccessTTL,
		"JWT refresh TTL":   &configFile.JWT.RefreshTTL,
		"OTP TTL":           &configFile.OTP.TTL,
		"OTP email TTL":     &configFile.OTP.EmailTTL,
		"OTP resend window": &configFile.OTP.ResendWindow,
	}
	parsed := make(map[string]time.Duration, len(durations))
	for name, raw := range durations {
		if *raw == "" {
			*raw = "0s"
		}
		d, err := time.ParseDuration(env(envKey(name), *raw))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		parsed[name] = d
	}

	verificationEnabled := true
	if configFile.OTP.VerificationEnabled != nil {
		verificationEnabled = *configFile.OTP.VerificationEnabled
	}
	if v := os.Getenv("USE_SMS_SERVICE"); v != "" {
		verificationEnabled = v == "true"
	}

	cfg := &Config{
		Port:        strconv.Itoa(envInt("APP_PORT", configFile.App.Port)),
		GinMode:     env("GIN_MODE", configFile.App.GinMode),
		Environment: env("APP_ENV", configFile.App.Environment),
		LogLevel:    env("LOG_LEVEL", configFile.App.LogLevel),

		DSN:      env("DATABASE_DSN", configFile.Database.DSN),
		DBSchema: configFile.Database.Schema,

		RedisAddr:     env("REDIS_ADDR", configFile.Redis.Addr),
		RedisPassword: env("REDIS_PASSWORD", configFile.Redis.Password),
		RedisDB:       envInt("REDIS_DB", configFile.Redis.DB),

		JWTSecret:  env("JWT_SECRET", configFile.JWT.Secret),
		JWTIssuer:  env("JWT_ISSUER", configFile.JWT.Issuer),
		AccessTTL:  parsed["JWT access TTL"],
		RefreshTTL: parsed["JWT refresh TTL"],

		OTPDigits:           envInt("OTP_DIGITS", configFile.OTP.Digits),
		OTPTTL:              parsed["OTP TTL"],
		OTPEmailTTL:         parsed["OTP email TTL"],
		OTPMaxAttempts:      envInt("OTP_MAX_ATTEMPTS", configFile.OTP.MaxAttempts),
		OTPResendWindow:     parsed["OTP resend window"],
		DeveloperPhone:      env("OTP_DEVELOPER_PHONE", configFile.OTP.DeveloperPhone),
		DefaultRegion:       strings.ToUpper(env("OTP_DEFAULT_REGION", configFile.OTP.DefaultRegion)),
		VerificationEnabled: verificationEnabled,

		TwilioSID:   env("TWILIO_ACCOUNT_SID", configFile.Twilio.AccountSID),
		TwilioToken: env("TWILIO_AUTH_TOKEN", configFile.Twilio.AuthToken),
		TwilioFrom:  env("TWILIO_FROM_NUMBER", configFile.Twilio.FromNumber),

		SMTPHost:     env("SMTP_HOST", configFile.SMTP.Host),
		SMTPPort:     envInt("SMTP_PORT", configFile.SMTP.Port),
		SMTPUsername: env("SMTP_USERNAME", configFile.SMTP.Username),
		SMTPPassword: env("SMTP_PASSWORD", configFile.SMTP.Password),
		SMTPFrom:     env("SMTP_FROM", configFile.SMTP.From),

		RabbitMQURL: env("RABBITMQ_URL", configFile.RabbitMQ.URL),

		CloudinaryName:   env("CLOUDINARY_CLOUD_NAME", configFile.Cloudinary.CloudName),
		CloudinaryKey:    env("CLOUDINARY_API_KEY", configFile.Cloudinary.APIKey),
		CloudinarySecret: env("CLOUDINARY_API_SECRET", configFile.Cloudinary.APISecret),
	}

	if cfg.DefaultRegion == "" {
		cfg.DefaultRegion = "SA"
	}

	methods, err := parseMethods(configFile.OTP.SupportedMethods)
	if err != nil {
		return nil, err
	}
	cfg.SupportedMethods = methods

	roles, err := parseRoles(configFile.OTP.PhonelessCreationRoles)
	if err != nil {
		return nil, err
	}
	cfg.PhonelessCreationRoles = roles

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogOnlyDelivery reports whether unconfigured providers may log messages
// instead of sending them
func (c *Config) LogOnlyDelivery() bool {
	return c.Environment == "dev" || c.Environment == "test"
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required (set JWT_SECRET)")
	}
	if c.OTPDigits < 4 || c.OTPDigits > 10 {
		return fmt.Errorf("otp digits must be between 4 and 10, got %d", c.OTPDigits)
	}
	if c.OTPTTL <= 0 || c.OTPEmailTTL <= 0 {
		return fmt.Errorf("otp ttl and email ttl must be positive")
	}
	if c.DeveloperPhone != "" {
		num, err := phonenumbers.Parse(c.DeveloperPhone, c.DefaultRegion)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			return fmt.Errorf("developer phone %q is not a valid phone number", c.DeveloperPhone)
		}
		c.DeveloperPhone = phonenumbers.Format(num, phonenumbers.E164)
	}
	return nil
}

func parseMethods(raw []string) ([]domain.OTPMethod, error) {
	if len(raw) == 0 {
		return []domain.OTPMethod{domain.MethodSMS}, nil
	}
	methods := make([]domain.OTPMethod, 0, len(raw))
	for _, s := range raw {
		m, ok := domain.ParseMethod(strings.ToLower(strings.TrimSpace(s)))
		if !ok {
			return nil, fmt.Errorf("unknown otp method %q in supported_methods", s)
		}
		methods = append(methods, m)
	}
	return methods, nil
}

func parseRoles(raw []string) ([]domain.Role, error) {
	if raw == nil {
		return []domain.Role{domain.RoleClient}, nil
	}
	roles := make([]domain.Role, 0, len(raw))
	for _, s := range raw {
		r, ok := domain.ParseRole(strings.ToLower(strings.TrimSpace(s)))
		if !ok {
			return nil, fmt.Errorf("unknown role %q in phoneless_creation_roles", s)
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// envKey maps a duration label to its override variable, e.g. "OTP email TTL" -> OTP_EMAIL_TTL
func envKey(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}
