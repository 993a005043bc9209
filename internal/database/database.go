package database

import (
	"fmt"
	"log/slog"

	"github.com/yukikurage/task-realtime-api/internal/config"
	"github.com/yukikurage/task-realtime-api/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector picks the gorm driver for the configured DB_DRIVER.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		)
		return mysql.Open(dsn), nil
	case "postgres", "":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.DBPath), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established", "driver", cfg.DBDriver)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	slog.Info("running database migrations")
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}
	slog.Info("database migrations completed")
	return nil
}
