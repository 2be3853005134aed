package di

import (
	"fmt"

	"github.com/aristath/trainlog/internal/config"
	"github.com/aristath/trainlog/internal/reliability"
	"github.com/aristath/trainlog/internal/scheduler"
	"github.com/rs/zerolog"
)

// maintenanceSchedule runs store maintenance at the top of every hour
const maintenanceSchedule = "0 0 * * * *"

// RegisterJobs creates the scheduler and registers background jobs. The
// scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)
	container.Scheduler = sched
	instances := &JobInstances{}

	maintenance := reliability.NewStoreMaintenanceJob(container.RunsDB, container.RunRepository, cfg.DataDir, log)
	if err := sched.AddJob(maintenanceSchedule, maintenance); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}
	instances.Maintenance = maintenance

	if container.ArchiveService != nil {
		archive := reliability.NewArchiveJob(container.ArchiveService, cfg.Archive.RetentionDays)
		if err := sched.AddJob(cfg.Archive.Schedule, archive); err != nil {
			return nil, fmt.Errorf("failed to register archive job: %w", err)
		}
		instances.Archive = archive
	}

	log.Info().Strs("jobs", sched.Jobs()).Msg("Background jobs registered")
	return instances, nil
}
