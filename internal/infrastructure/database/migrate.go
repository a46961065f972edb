package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"

	"github.com/Conte777/tgviewer/config"
)

// SchemaVersion is the migration state after RunMigrations
type SchemaVersion struct {
	Version uint
	Applied bool
}

// RunMigrations brings the schema at cfg.MigrationsPath up to date.
// A dirty schema is reported as an error: it needs a manual fix before the
// credential store can rely on its indexes.
func RunMigrations(db *gorm.DB, cfg *config.DatabaseConfig) (SchemaVersion, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationsPath, cfg.DBName, driver)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("failed to init migrate: %w", err)
	}

	if _, dirty, err := m.Version(); err == nil && dirty {
		return SchemaVersion{}, errors.New("database schema is dirty, fix the failed migration manually")
	}

	applied := true
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return SchemaVersion{}, fmt.Errorf("migration failed: %w", err)
		}
		applied = false
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return SchemaVersion{}, fmt.Errorf("failed to read schema version: %w", err)
	}

	return SchemaVersion{Version: version, Applied: applied}, nil
}
