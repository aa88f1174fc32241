package database

import (
	"fmt"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/config"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init opens the database named by the config and runs the schema migration.
// DB_DRIVER selects postgres (production) or sqlite (development).
func Init(cfg *config.Config) error {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	case "postgres":
		dialector = postgres.Open(cfg.DBDSN)
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return err
	}

	DB = db
	logger.Info("database initialized")
	return nil
}

// Migrate runs the gorm auto-migration for all entities.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Contact{},
		&models.Conversation{},
		&models.Message{},
		&models.Order{},
		&models.Notification{},
		&models.PaymentEvent{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration: %w", err)
	}
	return nil
}
