package database

import (
	"strings"

	"carbonmarket/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const sqlitePrefix = "sqlite:"

// Open opens a GORM DB from DSN. A "sqlite:" prefix selects the embedded SQLite driver
// (sqlite::memory: for a throwaway database); anything else is treated as Postgres.
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind connection poolers (PgBouncer, Supabase).
func Open(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, sqlitePrefix) {
		path := strings.TrimPrefix(dsn, sqlitePrefix)
		db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, err
		}
		if strings.Contains(path, ":memory:") {
			// every pooled connection would otherwise get its own empty database
			sqlDB, err := db.DB()
			if err != nil {
				return nil, err
			}
			sqlDB.SetMaxOpenConns(1)
		}
		return db, nil
	}
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
}

// AutoMigrate creates or updates the marketplace tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Account{},
		&domain.SessionUser{},
		&domain.Listing{},
		&domain.Order{},
		&domain.ListingEvent{},
	)
}
