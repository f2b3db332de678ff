// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"scoreboard/internal/config"
)

// Storage is the directory store: the tenant registry, the id dispenser and
// the cross-tenant visit history.
type Storage struct {
	DB     *gorm.DB
	logger *slog.Logger

	maxDispenseAttempts int
	insertID            func(ctx context.Context) (int64, error)
}

// NewStorage connects to the directory database using the configured driver.
func NewStorage(driver, dsn string, logger *slog.Logger) (*Storage, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported directory driver %q", driver)
	}
	return Open(dialector, logger)
}

// Open wraps an arbitrary gorm dialector and migrates the directory schema.
func Open(dialector gorm.Dialector, logger *slog.Logger) (*Storage, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if dialector.Name() == "sqlite" {
		// one writer keeps SQLite from returning SQLITE_BUSY under load
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	s := &Storage{
		DB:                  db,
		logger:              logger,
		maxDispenseAttempts: defaultDispenseAttempts,
	}
	s.insertID = s.insertGeneratorRow

	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate creates the directory tables when missing.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.DB.WithContext(ctx).AutoMigrate(&tenantRow{}, &idGeneratorRow{}, &visitHistoryRow{}); err != nil {
		return fmt.Errorf("failed to migrate directory schema: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isWriteConflict reports transient contention that is safe to retry.
func isWriteConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40P01", "40001":
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
