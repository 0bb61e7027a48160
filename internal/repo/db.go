// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and PostgreSQL, plus schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-carparts-backend/internal/domain"
)

// Supported values for the DB_DRIVER setting.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// gormConfig is shared by all drivers. References between documents (part →
// model, wishlist → user) are not enforced by the database: a dangling
// reference simply resolves to null, like the document store it replaces.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

// Open connects to the configured driver. dsn is a file path for sqlite and
// a connection URL for postgres.
func Open(driver, dsn string) (*gorm.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		return OpenSQLite(dsn)
	case DriverPostgres:
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// OpenPostgres connects to PostgreSQL through the pgx-backed GORM driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set for the postgres driver")
	}
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// AutoMigrate creates or updates every table the API touches.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.CarModel{},
		&domain.Part{},
		&domain.User{},
		&domain.Wishlist{},
		&domain.Idempotency{},
	); err != nil {
		return err
	}
	return backfillSearchText(db)
}

// backfillSearchText fills the search column of rows written before it
// existed. Rows that already carry a key are left alone.
func backfillSearchText(db *gorm.DB) error {
	var batch []domain.Part
	return db.Select("id", "name", "category", "description").
		Where("search_text IS NULL OR search_text = ''").
		FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
			for _, p := range batch {
				key := domain.SearchKey(p.Name, p.Category, p.Description)
				if err := db.Model(&domain.Part{}).Where("id = ?", p.ID).UpdateColumn("search_text", key).Error; err != nil {
					return err
				}
			}
			return nil
		}).Error
}
