// internal/shard/shard.go
package shard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"scoreboard/internal/apperr"
)

const dsnOptions = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Store is one tenant's isolated database: players, competitions and score
// rows. Every query is scoped to the owning tenant.
type Store struct {
	db       *gorm.DB
	tenantID int64
	path     string
}

// Path returns the location of a tenant's shard file.
func Path(dir string, tenantID int64) string {
	return filepath.Join(dir, strconv.FormatInt(tenantID, 10)+".db")
}

// Provision creates (or reopens) a tenant's shard and its schema.
func Provision(ctx context.Context, dir string, tenantID int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create shard dir: %w", err)
	}
	s, err := open(Path(dir, tenantID), tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&playerRow{}, &competitionRow{}, &playerScoreRow{}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to migrate shard %d: %w", tenantID, err)
	}
	return s, nil
}

// Open connects to an existing shard. A missing file means the tenant was
// never provisioned.
func Open(ctx context.Context, dir string, tenantID int64) (*Store, error) {
	path := Path(dir, tenantID)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("tenant", strconv.FormatInt(tenantID, 10))
		}
		return nil, fmt.Errorf("failed to stat shard %d: %w", tenantID, err)
	}
	s, err := open(path, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func open(path string, tenantID int64) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path+dsnOptions), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open shard %d: %w", tenantID, err)
	}
	return &Store{db: db, tenantID: tenantID, path: path}, nil
}

func (s *Store) ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to shard %d: %w", s.tenantID, err)
	}
	return nil
}

func (s *Store) TenantID() int64 { return s.tenantID }

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) scoped(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Where("tenant_id = ?", s.tenantID)
}
