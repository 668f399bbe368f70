package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"tickertalk/internal/config"
	"tickertalk/internal/models"
	"tickertalk/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init connects to Postgres using the loaded config and migrates the schema.
func Init() {
	cfg := config.Get()
	conn, err := Open(postgres.Open(cfg.DSN()), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	DB = conn
	utils.Sugar.Info("Database connection established")

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	utils.Sugar.Info("Database migration completed")
}

// Open wraps gorm.Open with the shared logger and error-translation settings.
func Open(dialector gorm.Dialector, logLevel string) (*gorm.DB, error) {
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(logLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return gorm.Open(dialector, &gorm.Config{
		Logger:         gLogger,
		TranslateError: true,
	})
}

// Migrate creates or updates every table and the case-insensitive unique indexes.
func Migrate(conn *gorm.DB) error {
	if err := conn.SetupJoinTable(&models.Post{}, "LikedBy", &models.Like{}); err != nil {
		return fmt.Errorf("setup likes join table: %w", err)
	}
	if err := conn.SetupJoinTable(&models.User{}, "LikedPosts", &models.Like{}); err != nil {
		return fmt.Errorf("setup likes join table: %w", err)
	}
	err := conn.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.LivePost{},
	)
	if err != nil {
		return err
	}
	return ensureIndexes(conn)
}

func ensureIndexes(conn *gorm.DB) error {
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))`,
	}
	for _, s := range stmts {
		if err := conn.Exec(s).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}
