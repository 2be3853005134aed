package di

import (
	"github.com/aristath/trainlog/internal/config"
	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the run repository for the configured store
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container.RunsDB != nil {
		container.RunRepository = runlog.NewSQLRepository(container.RunsDB, log)
		return nil
	}

	container.RunRepository = runlog.NewFileRepository(cfg.RunsDir(), log)
	return nil
}
