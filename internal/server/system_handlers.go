package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/trainlog/internal/database"
	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/aristath/trainlog/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers serves health, status and job endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	store     string
	runsDB    *database.DB // nil for the file store
	runs      runlog.RecordReader
	scheduler *scheduler.Scheduler
	startTime time.Time
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	store string,
	runsDB *database.DB,
	runs runlog.RecordReader,
	sched *scheduler.Scheduler,
) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		store:     store,
		runsDB:    runsDB,
		runs:      runs,
		scheduler: sched,
		startTime: time.Now(),
	}
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string  `json:"status"` // "healthy" or "unhealthy"
	Store         string  `json:"store"`
	RunCount      int     `json:"run_count"`
	DataDirMB     float64 `json:"data_dir_mb"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	Error         string  `json:"error,omitempty"`
}

// HandleHealth handles GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.checkStore(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response := SystemStatusResponse{
		Status:        "healthy",
		Store:         h.store,
		DataDirMB:     h.getDirSize(h.dataDir),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
	response.CPUPercent, response.MemoryPercent = h.getSystemStats()

	if err := h.checkStore(r.Context()); err != nil {
		response.Status = "unhealthy"
		response.Error = err.Error()
	} else if keys, err := h.runs.List(r.Context()); err != nil {
		response.Status = "unhealthy"
		response.Error = err.Error()
	} else {
		response.RunCount = len(keys)
	}

	writeJSON(w, http.StatusOK, response)
}

// HandleListJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := []string{}
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// HandleTriggerJob handles POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.scheduler == nil {
		http.Error(w, "Scheduler not available", http.StatusServiceUnavailable)
		return
	}

	known := false
	for _, job := range h.scheduler.Jobs() {
		if job == name {
			known = true
			break
		}
	}
	if !known {
		http.Error(w, "Unknown job", http.StatusNotFound)
		return
	}

	if err := h.scheduler.Trigger(name); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Triggered job failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "job": name, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "job": name})
}

func (h *SystemHandlers) checkStore(ctx context.Context) error {
	if h.runsDB == nil {
		return nil
	}
	return h.runsDB.HealthCheck(ctx)
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms keeps the status call responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
