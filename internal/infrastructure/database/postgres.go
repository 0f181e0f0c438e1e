package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/config"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig, logLevel string, zl *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), &gorm.Config{
		Logger:         newGormLogger(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL DB to set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	zl.Info("connected to PostgreSQL", zap.String("host", cfg.Host), zap.String("database", cfg.Name))
	return db, nil
}

// newGormLogger keeps SQL logging quiet unless the service runs at debug level
func newGormLogger(level string) logger.Interface {
	mode := logger.Warn
	switch strings.ToLower(level) {
	case "debug":
		mode = logger.Info
	case "error":
		mode = logger.Error
	}
	return logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  mode,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB, zl *zap.Logger) error {
	zl.Info("running database migrations")

	err := db.AutoMigrate(
		&entity.User{},
		&entity.Product{},

		// Sales entities
		&entity.Order{},
		&entity.OrderItem{},
		&entity.Receipt{},
		&entity.ReceiptItem{},
		&entity.Sequence{},

		// System entities
		&entity.IdempotencyKey{},
		&entity.StoreSettings{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	zl.Info("database migrations completed")
	return nil
}

// SeedDefaultData creates the configured super admin, the settings row and
// lifts the receipt counter above any number already issued.
func SeedDefaultData(db *gorm.DB, admin config.AdminConfig, zl *zap.Logger) error {
	ctx := context.Background()
	zl.Info("seeding default data")

	if admin.Email != "" && admin.Password != "" {
		var existing entity.User
		err := db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(admin.Email)).First(&existing).Error
		switch {
		case err == nil:
			zl.Debug("super admin already exists", zap.String("email", admin.Email))
		case err == gorm.ErrRecordNotFound:
			hashed, hashErr := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
			if hashErr != nil {
				return fmt.Errorf("failed to hash admin password: %w", hashErr)
			}
			name := admin.Name
			if name == "" {
				name = "Super Admin"
			}
			user := entity.User{
				ID:           uuid.New(),
				Name:         name,
				Email:        strings.ToLower(admin.Email),
				Password:     string(hashed),
				Role:         enum.RoleAdmin,
				IsSuperAdmin: true,
			}
			if err := db.WithContext(ctx).Create(&user).Error; err != nil {
				zl.Warn("failed to create super admin", zap.Error(err))
			} else {
				zl.Info("super admin created", zap.String("email", user.Email))
			}
		default:
			return fmt.Errorf("failed to look up super admin: %w", err)
		}
	}

	var settingsCount int64
	if err := db.WithContext(ctx).Model(&entity.StoreSettings{}).Count(&settingsCount).Error; err != nil {
		return fmt.Errorf("failed to count settings: %w", err)
	}
	if settingsCount == 0 {
		settings := entity.StoreSettings{StoreName: "Storefront", ReceiptQRURL: entity.DefaultReceiptQRURL}
		if err := db.WithContext(ctx).Create(&settings).Error; err != nil {
			zl.Warn("failed to create default settings", zap.Error(err))
		}
	}

	zl.Info("default data seeding completed")
	return nil
}
