package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Conte777/tgviewer/config"
)

// Module provides the gorm connection shared by the users and telegram_sessions repositories
var Module = fx.Module("database",
	fx.Provide(NewPostgresDBFx),
)

// NewPostgresDBFx opens the database, applies migrations and ties the pool to the app lifecycle.
// Migrations are mandatory: the one-active-credential index is created by them.
func NewPostgresDBFx(lc fx.Lifecycle, cfg *config.DatabaseConfig, logger zerolog.Logger) (*gorm.DB, error) {
	log := logger.With().Str("component", "database").Logger()

	db, err := NewPostgresDB(cfg)
	if err != nil {
		return nil, err
	}

	schema, err := RunMigrations(db, cfg)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.MigrationsPath).Msg("Failed to run migrations")
		return nil, err
	}
	log.Info().
		Uint("schema_version", schema.Version).
		Bool("applied", schema.Applied).
		Msg("Database schema is up to date")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return fmt.Errorf("database is unreachable: %w", err)
			}
			log.Info().
				Str("host", cfg.Host).
				Str("port", cfg.Port).
				Str("database", cfg.DBName).
				Msg("Database connected")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			log.Info().Msg("Closing database connection")
			return sqlDB.Close()
		},
	})

	return db, nil
}
