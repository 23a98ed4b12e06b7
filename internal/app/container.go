package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/you/mediahub/domain"
	"github.com/you/mediahub/internal/config"
	httpx "github.com/you/mediahub/internal/http"
	"github.com/you/mediahub/internal/http/handlers"
	"github.com/you/mediahub/internal/http/middleware"
	"github.com/you/mediahub/internal/identity"
	"github.com/you/mediahub/internal/infrastructure/auth"
	"github.com/you/mediahub/internal/infrastructure/database"
	"github.com/you/mediahub/internal/infrastructure/media"
	"github.com/you/mediahub/internal/infrastructure/messaging"
	"github.com/you/mediahub/internal/infrastructure/notifications"
	"github.com/you/mediahub/internal/infrastructure/repositories"
	"github.com/you/mediahub/internal/logger"
	"github.com/you/mediahub/internal/metrics"
	"github.com/you/mediahub/internal/services"
)

// Container holds all dependencies. Fields set before Wire are kept,
// everything else is built from Config.
type Container struct {
	// Config
	Config *config.Config
	Log    *zap.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics

	// Repositories
	AccountRepo domain.AccountRepository
	DeviceRepo  domain.DeviceRepository
	EditorRepo  domain.EditorRepository
	Transactor  domain.Transactor
	Throttle    domain.OTPThrottle

	// Services
	PasswordSvc     domain.PasswordService
	TokenSvc        domain.TokenService
	NotificationSvc domain.NotificationService
	Publisher       domain.EventPublisher
	Images          domain.ImageResolver
	Casbin          *auth.CasbinService

	LoginFlow *services.LoginFlow
	ResetFlow *services.PasswordResetFlow
	TokenFlow *services.TokenFlow

	Router *gin.Engine

	closers []func() error
}

// NewContainer connects to postgres and redis and wires every dependency
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	db, err := database.Open(cfg.DSN, cfg.DBSchema)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.DB = db
	c.closers = append(c.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	rdb, err := database.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.RedisClient = rdb
	c.closers = append(c.closers, rdb.Close)

	if err := c.Wire(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Wire builds whatever is still missing, bottom-up. DB and RedisClient
// must be set.
func (c *Container) Wire() error {
	if c.DB == nil || c.RedisClient == nil {
		return fmt.Errorf("container needs a database and a redis client")
	}
	c.Log = logger.OrNop(c.Log)

	if err := database.AutoMigrate(c.DB); err != nil {
		return err
	}

	c.initMetrics()
	c.initRepositories()
	if err := c.initInfrastructure(); err != nil {
		return err
	}
	if err := c.initPolicies(); err != nil {
		return err
	}
	c.initServices()
	c.initRouter()
	return nil
}

func (c *Container) initMetrics() {
	if c.Registry == nil {
		c.Registry = prometheus.NewRegistry()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.New(c.Registry)
	}
}

func (c *Container) initRepositories() {
	cfg := c.Config
	if c.AccountRepo == nil {
		c.AccountRepo = repositories.NewAccountRepository(c.DB)
	}
	if c.DeviceRepo == nil {
		c.DeviceRepo = repositories.NewDeviceRepository(c.DB)
	}
	if c.EditorRepo == nil {
		c.EditorRepo = repositories.NewEditorRepository(c.DB)
	}
	if c.Transactor == nil {
		c.Transactor = repositories.NewTransactor(c.DB)
	}
	if c.Throttle == nil {
		// the attempt counter lives as long as the longest challenge
		attemptTTL := cfg.OTPTTL
		if cfg.OTPEmailTTL > attemptTTL {
			attemptTTL = cfg.OTPEmailTTL
		}
		c.Throttle = repositories.NewOTPThrottle(c.RedisClient, cfg.OTPMaxAttempts, cfg.OTPResendWindow, attemptTTL)
	}
}

func (c *Container) initInfrastructure() error {
	cfg := c.Config

	if c.PasswordSvc == nil {
		c.PasswordSvc = auth.NewPasswordService()
	}
	if c.TokenSvc == nil {
		c.TokenSvc = auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	}

	if c.NotificationSvc == nil {
		logOnly := cfg.LogOnlyDelivery()
		twilio := notifications.NewTwilioService(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, c.Log).WithLogOnly(logOnly)
		smtp := notifications.NewSMTPService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, c.Log).WithLogOnly(logOnly)
		if !twilio.Configured() {
			c.Log.Warn("twilio is not configured", zap.Bool("log_only", logOnly))
		}
		if !smtp.Configured() {
			c.Log.Warn("smtp is not configured", zap.Bool("log_only", logOnly))
		}
		c.NotificationSvc = notifications.NewDispatcher(twilio, twilio, smtp)
	}

	if c.Publisher == nil {
		if cfg.RabbitMQURL == "" {
			c.Publisher = messaging.NopPublisher{}
		} else {
			pub, err := messaging.NewRabbitPublisher(cfg.RabbitMQURL, c.Log)
			if err != nil {
				return fmt.Errorf("connect rabbitmq: %w", err)
			}
			c.Publisher = pub
			c.closers = append(c.closers, pub.Close)
		}
	}

	if c.Images == nil {
		images, err := media.NewCloudinaryResolver(cfg.CloudinaryName, cfg.CloudinaryKey, cfg.CloudinarySecret, c.Log)
		if err != nil {
			return fmt.Errorf("configure cloudinary: %w", err)
		}
		c.Images = images
	}
	return nil
}

func (c *Container) initPolicies() error {
	cas, err := auth.NewCasbinService(c.DB)
	if err != nil {
		return fmt.Errorf("load casbin policies: %w", err)
	}
	seeded, err := cas.SeedDefaults()
	if err != nil {
		return err
	}
	if seeded {
		c.Log.Info("casbin: seeded default policies", zap.Int("policies", len(auth.DefaultPolicies)))
	}
	c.Casbin = cas
	return nil
}

func (c *Container) initServices() {
	cfg := c.Config
	log := c.Log

	otp := services.NewOTPService(c.DeviceRepo, c.NotificationSvc, c.Throttle, c.Transactor, c.Metrics, log.Named("otp"), services.OTPConfig{
		Digits:         cfg.OTPDigits,
		TTL:            cfg.OTPTTL,
		EmailTTL:       cfg.OTPEmailTTL,
		DeveloperPhone: cfg.DeveloperPhone,
	})

	events := services.NewEventHandler(c.AccountRepo, c.Publisher, c.Metrics, log.Named("events"))
	resolver := identity.NewResolver(cfg.DefaultRegion)
	provisioner := services.NewAccountProvisioner(c.AccountRepo, events, c.Transactor, log.Named("accounts"), cfg.PhonelessCreationRoles)
	sessions := services.NewSessionIssuer(c.TokenSvc, c.EditorRepo, c.Images, events, log.Named("sessions"))

	c.LoginFlow = services.NewLoginFlow(
		services.NewCredentialVerifier(c.AccountRepo, c.PasswordSvc, resolver),
		provisioner,
		otp,
		sessions,
		resolver,
		log.Named("login"),
		services.LoginConfig{
			SupportedMethods:    cfg.SupportedMethods,
			VerificationEnabled: cfg.VerificationEnabled,
		},
	)
	c.ResetFlow = services.NewPasswordResetFlow(c.AccountRepo, otp, c.PasswordSvc, c.Transactor, c.Publisher, log.Named("reset"))
	c.TokenFlow = services.NewTokenFlow(c.TokenSvc, c.AccountRepo, sessions)
}

func (c *Container) initRouter() {
	authH := handlers.NewAuthHandlers(c.LoginFlow, c.ResetFlow, c.Config.OTPDigits, c.Log)
	tokenH := handlers.NewTokenHandlers(c.TokenFlow, c.Log)
	jwtMW := middleware.AuthMiddleware(c.TokenSvc)
	casbinMW := middleware.NewCasbinMW(c.Casbin, c.Log)

	c.Router = httpx.BuildRouter(authH, tokenH, jwtMW, casbinMW, c.Metrics)
}

// Close closes all connections in reverse order of opening
func (c *Container) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
