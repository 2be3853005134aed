/**
 * Package di provides dependency injection type definitions.
 *
 * The Container is the single source of truth for service instances and is
 * passed to the server and CLI for access to them.
 */
package di

import (
	"github.com/aristath/trainlog/internal/database"
	"github.com/aristath/trainlog/internal/modules/comparison"
	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/aristath/trainlog/internal/reliability"
	"github.com/aristath/trainlog/internal/scheduler"
)

// Container holds all dependencies for the application
type Container struct {
	// Databases (nil when runs are stored as files)
	RunsDB *database.DB

	// Repositories
	RunRepository runlog.Repository

	// Services
	ComparisonService *comparison.Service
	ArchiveService    *reliability.ArchiveService // nil when the archive is disabled

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds references to registered jobs for manual triggering
type JobInstances struct {
	Maintenance scheduler.Job
	Archive     scheduler.Job // nil when the archive is disabled
}

// Close releases resources held by the container
func (c *Container) Close() error {
	if c.RunsDB != nil {
		return c.RunsDB.Close()
	}
	return nil
}
