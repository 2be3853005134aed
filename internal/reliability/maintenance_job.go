package reliability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aristath/trainlog/internal/database"
	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// MaintenanceReport summarizes one maintenance pass
type MaintenanceReport struct {
	RunsChecked   int
	RunsMalformed []runlog.Key
	AvailableGB   float64
	DatabaseBytes int64 // sqlite only, measured before the checkpoint
	WALBytes      int64
}

// StoreMaintenanceJob checks the run store: sqlite integrity and WAL size,
// record validity, and free disk space under the data directory.
type StoreMaintenanceJob struct {
	db      *database.DB // nil for the file store
	reader  runlog.RecordReader
	dataDir string
	log     zerolog.Logger
}

// NewStoreMaintenanceJob creates a new maintenance job
func NewStoreMaintenanceJob(db *database.DB, reader runlog.RecordReader, dataDir string, log zerolog.Logger) *StoreMaintenanceJob {
	return &StoreMaintenanceJob{
		db:      db,
		reader:  reader,
		dataDir: dataDir,
		log:     log.With().Str("job", "store_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *StoreMaintenanceJob) Name() string {
	return "store_maintenance"
}

// Run executes the maintenance job
func (j *StoreMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	_, err := j.Check(ctx)
	return err
}

// Check runs every maintenance step and reports what it found. Only a
// corrupt database or critically low disk space is an error.
func (j *StoreMaintenanceJob) Check(ctx context.Context) (*MaintenanceReport, error) {
	j.log.Info().Msg("Starting store maintenance")
	report := &MaintenanceReport{}

	if j.db != nil && j.db.Driver() == database.DriverSQLite {
		if err := j.checkIntegrity(ctx); err != nil {
			return report, err
		}

		j.measureFiles(report)

		if _, err := j.db.Conn().ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			// Not critical
			j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("WAL checkpoint failed")
		}
	}

	if err := j.verifyRecords(ctx, report); err != nil {
		return report, err
	}

	if err := j.checkDiskSpace(report); err != nil {
		return report, err
	}

	j.log.Info().
		Int("runs_checked", report.RunsChecked).
		Int("runs_malformed", len(report.RunsMalformed)).
		Msg("Store maintenance completed")
	return report, nil
}

func (j *StoreMaintenanceJob) checkIntegrity(ctx context.Context) error {
	var result string
	if err := j.db.Conn().QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to run integrity check on %s: %w", j.db.Name(), err)
	}
	if result != "ok" {
		j.log.Error().Str("database", j.db.Name()).Str("result", result).Msg("Database integrity check failed")
		return fmt.Errorf("database %s failed integrity check: %s", j.db.Name(), result)
	}
	return nil
}

func (j *StoreMaintenanceJob) measureFiles(report *MaintenanceReport) {
	path := j.db.Path()
	if strings.HasPrefix(path, "file:") {
		return
	}

	if info, err := os.Stat(path); err == nil {
		report.DatabaseBytes = info.Size()
	}
	if info, err := os.Stat(path + "-wal"); err == nil {
		report.WALBytes = info.Size()
	}

	j.log.Debug().
		Str("database", j.db.Name()).
		Int64("size_bytes", report.DatabaseBytes).
		Int64("wal_bytes", report.WALBytes).
		Msg("Database file sizes")
}

func (j *StoreMaintenanceJob) verifyRecords(ctx context.Context, report *MaintenanceReport) error {
	keys, err := j.reader.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	for _, key := range keys {
		report.RunsChecked++
		_, err := j.reader.Get(ctx, key)
		switch {
		case err == nil:
		case errors.Is(err, runlog.ErrMalformedRecord):
			report.RunsMalformed = append(report.RunsMalformed, key)
			j.log.Warn().Err(err).Str("key", string(key)).Msg("Malformed run record in store")
		default:
			j.log.Warn().Err(err).Str("key", string(key)).Msg("Failed to read run record")
		}
	}
	return nil
}

func (j *StoreMaintenanceJob) checkDiskSpace(report *MaintenanceReport) error {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Str("path", j.dataDir).Msg("Failed to read disk usage")
		return nil
	}

	availableGB := float64(usage.Free) / 1e9
	report.AvailableGB = availableGB
	j.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")

	switch {
	case availableGB < 0.5:
		j.log.Error().Float64("available_gb", availableGB).Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("only %.2f GB free under %s", availableGB, j.dataDir)
	case availableGB < 5.0:
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}
	return nil
}
