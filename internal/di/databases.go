// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/trainlog/internal/config"
	"github.com/aristath/trainlog/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens and migrates the runs database for SQL stores.
// The file store needs no database and leaves RunsDB nil.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	var dbCfg database.Config
	switch cfg.Store {
	case config.StoreFile:
		log.Info().Str("dir", cfg.RunsDir()).Msg("Using file run store")
		return container, nil
	case config.StoreSQLite:
		// runs.db - Saved training runs
		dbCfg = database.Config{
			Driver:  database.DriverSQLite,
			Path:    filepath.Join(cfg.DataDir, "runs.db"),
			Profile: database.ProfileDurable,
			Name:    "runs",
		}
	case config.StorePostgres:
		dbCfg = database.Config{
			Driver: database.DriverPostgres,
			Path:   cfg.PostgresDSN,
			Name:   "runs",
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}

	runsDB, err := database.New(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize runs database: %w", err)
	}

	if err := runsDB.Migrate(); err != nil {
		runsDB.Close()
		return nil, fmt.Errorf("failed to apply runs schema: %w", err)
	}
	container.RunsDB = runsDB

	log.Info().
		Str("driver", string(runsDB.Driver())).
		Str("name", runsDB.Name()).
		Msg("Runs database initialized")

	return container, nil
}
