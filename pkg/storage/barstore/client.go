// Package barstore owns the stock_bars table: schema, the deduplicated append path
// and the read patterns used by charts, reports and exports.
package barstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"quantviz/config"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const defaultBatchSize = 500

type Store struct {
	DB        *gorm.DB
	log       *zap.Logger
	batchSize int
}

// NewClient wraps an already chosen gorm dialector.
func NewClient(dialector gorm.Dialector, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{DB: db, log: log, batchSize: defaultBatchSize}, nil
}

// Open connects to the configured database. For sqlite the parent directory of the
// file is created; for postgres the database itself is created first when
// create_database is set.
func Open(cfg config.StorageConfig, log *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.Path)
	case "postgres":
		if cfg.CreateDatabase {
			if err := CreateDatabase(cfg.Postgres); err != nil {
				return nil, fmt.Errorf("failed to create database: %w", err)
			}
		}
		dialector = postgres.Open(cfg.Postgres.DSN())
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	s, err := NewClient(dialector, log)
	if err != nil {
		return nil, err
	}
	if cfg.BatchSize > 0 {
		s.batchSize = cfg.BatchSize
	}

	if cfg.Driver == "postgres" {
		sqlDB, err := s.DB.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve raw DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	}

	log.Info("Connected to database", zap.String("driver", cfg.Driver))
	return s, nil
}

// OpenAndMigrate opens the store and makes sure the schema exists.
func OpenAndMigrate(cfg config.StorageConfig, log *zap.Logger) (*Store, error) {
	s, err := Open(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates stock_bars and its unique index. Safe to call repeatedly.
func (s *Store) EnsureSchema() error {
	if err := s.DB.AutoMigrate(&BarRecord{}); err != nil {
		return fmt.Errorf("auto-migrate stock_bars: %w", err)
	}
	return nil
}

func (s *Store) IsHealthy(ctx context.Context) bool {
	db, err := s.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (s *Store) Close() error {
	db, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
