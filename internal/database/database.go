package database

import (
	"fmt"

	"helpdesk-realtime-api/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the SQLite database file (created on first use) and runs migrations.
// glebarez/sqlite is a pure Go driver, so no CGO is required.
func InitDB(path string, logLevel string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(gormLevel(logLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("database connected and migrated", zap.String("path", path))
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// gormLevel maps the service log level onto GORM's coarser scale.
func gormLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error", "dpanic", "panic", "fatal":
		return logger.Error
	default:
		return logger.Silent
	}
}
