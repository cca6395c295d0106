package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/welldanyogia/couchkit/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connection pool configuration
const (
	DefaultMaxIdleConns    = 10
	DefaultMaxOpenConns    = 100
	DefaultConnMaxLifetime = time.Hour
	DefaultConnMaxIdleTime = 10 * time.Minute
)

const sqlitePrefix = "sqlite://"

// Options controls how the local index is opened
type Options struct {
	Production bool
	LogLevel   logger.LogLevel
}

// dialector picks the GORM driver from the URL scheme. postgres:// and
// postgresql:// go to the PostgreSQL driver, sqlite://path to SQLite.
func dialector(databaseURL string) (gorm.Dialector, bool, error) {
	switch {
	case strings.HasPrefix(databaseURL, sqlitePrefix):
		path := strings.TrimPrefix(databaseURL, sqlitePrefix)
		if path == "" {
			return nil, false, fmt.Errorf("sqlite URL needs a path")
		}
		return sqlite.Open(path), true, nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.Open(databaseURL), false, nil
	default:
		return nil, false, fmt.Errorf("unsupported database URL scheme")
	}
}

// Open connects to the local attachment index
func Open(databaseURL string, opts Options) (*gorm.DB, error) {
	if opts.Production {
		if err := validateSSLMode(databaseURL); err != nil {
			return nil, err
		}
	}

	dial, isSQLite, err := dialector(databaseURL)
	if err != nil {
		return nil, err
	}

	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	maxOpen := DefaultMaxOpenConns
	if isSQLite {
		// SQLite serializes writers; one connection also keeps :memory: coherent
		maxOpen = 1
	}
	if err := configureConnectionPool(db, maxOpen); err != nil {
		return nil, err
	}

	slog.Info("connected to local index", slog.Bool("sqlite", isSQLite))
	return db, nil
}

// validateSSLMode ensures SSL is enabled in production
func validateSSLMode(databaseURL string) error {
	if strings.Contains(databaseURL, "sslmode=disable") {
		return fmt.Errorf("SSL mode cannot be disabled in production")
	}
	return nil
}

// configureConnectionPool sets up connection pool limits
func configureConnectionPool(db *gorm.DB, maxOpen int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(min(DefaultMaxIdleConns, maxOpen))
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(DefaultConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(DefaultConnMaxIdleTime)

	return nil
}

// Migrate runs auto-migration for the index models
func Migrate(db *gorm.DB) error {
	slog.Info("running database migrations")

	if err := db.AutoMigrate(&models.Document{}, &models.Attachment{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("database migrations completed")
	return nil
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
