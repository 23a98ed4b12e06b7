package database

import (
	"fmt"
	"strings"

	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/you/mediahub/internal/infrastructure/repositories"
)

// Open creates a new database connection. A non-empty tablePrefix such as
// "auth." places every table in that postgres schema.
func Open(dsn, tablePrefix string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: tablePrefix,
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), config)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSuffix(tablePrefix, "."); name != "" && name != tablePrefix {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %q", name)).Error; err != nil {
			return nil, fmt.Errorf("failed to create schema %s: %w", name, err)
		}
	}
	return db, nil
}

// AutoMigrate creates the account, editor and OTP device tables plus the
// casbin rule table used by the route policy
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(repositories.Models()...); err != nil {
		return fmt.Errorf("failed to migrate auth tables: %w", err)
	}

	// NewAdapterByDB creates the casbin_rule table when it is missing
	if _, err := gormadapter.NewAdapterByDB(db); err != nil {
		return fmt.Errorf("failed to initialize Casbin GORM adapter: %w", err)
	}

	return nil
}
