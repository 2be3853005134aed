// Package handlers provides HTTP handlers for saved training runs.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/rs/zerolog"
)

// maxUploadBytes caps the size of an uploaded run record.
const maxUploadBytes = 32 << 20

// RunInfo is the listing entry for one saved run.
type RunInfo struct {
	Key       runlog.Key `json:"key"`
	Label     string     `json:"label"`
	Algorithm string     `json:"algorithm"`
	RunID     string     `json:"run_id,omitempty"`
	Episodes  int        `json:"episodes"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Handler handles run record HTTP requests
type Handler struct {
	repo runlog.Repository
	log  zerolog.Logger
}

// NewHandler creates a new run record handler
func NewHandler(repo runlog.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "runs").Logger(),
	}
}

// HandleListRuns handles GET /api/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	keys, err := h.repo.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	runs := make([]RunInfo, 0, len(keys))
	for _, key := range keys {
		record, err := h.repo.Get(r.Context(), key)
		if err != nil {
			// A broken record should not hide the others.
			h.log.Warn().Err(err).Str("key", string(key)).Msg("Skipping unreadable run")
			continue
		}
		runs = append(runs, newRunInfo(key, record))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": runs,
		"metadata": map[string]interface{}{
			"count":     len(runs),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetRun handles GET /api/runs/{key}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request, key runlog.Key) {
	record, ok := h.load(w, r, key)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

// HandleGetSummary handles GET /api/runs/{key}/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request, key runlog.Key) {
	record, ok := h.load(w, r, key)
	if !ok {
		return
	}

	summary := record.Summarize()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": summary,
		"metadata": map[string]interface{}{
			"text":      summary.String(),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandlePutRun handles PUT /api/runs/{key}. The body is a record in the
// persisted layout; it replaces any record saved under key. The record's
// algorithm must canonicalize to key.
func (h *Handler) HandlePutRun(w http.ResponseWriter, r *http.Request, key runlog.Key) {
	if !key.Valid() {
		http.Error(w, "Invalid run key", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	record, err := runlog.DecodeRecord(body)
	if err != nil {
		h.log.Warn().Err(err).Str("key", string(key)).Msg("Rejected run upload")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if recordKey := record.Key(); recordKey != key {
		h.log.Warn().Str("key", string(key)).Str("algorithm", record.Algorithm).Msg("Rejected run upload with mismatched key")
		http.Error(w, fmt.Sprintf("algorithm %q belongs under key %q, not %q", record.Algorithm, recordKey, key), http.StatusUnprocessableEntity)
		return
	}

	if err := h.repo.Put(r.Context(), key, record); err != nil {
		h.log.Error().Err(err).Str("key", string(key)).Msg("Failed to save run")
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	h.log.Info().Str("key", string(key)).Int("episodes", record.Len()).Msg("Run uploaded")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": newRunInfo(key, record),
	})
}

// HandleDeleteRun handles DELETE /api/runs/{key}
func (h *Handler) HandleDeleteRun(w http.ResponseWriter, r *http.Request, key runlog.Key) {
	if err := h.repo.Delete(r.Context(), key); err != nil {
		h.writeError(w, key, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, key runlog.Key) (*runlog.Record, bool) {
	record, err := h.repo.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, key, err)
		return nil, false
	}
	return record, true
}

func (h *Handler) writeError(w http.ResponseWriter, key runlog.Key, err error) {
	switch {
	case errors.Is(err, runlog.ErrMissingRun):
		http.Error(w, "Run not found", http.StatusNotFound)
	case errors.Is(err, runlog.ErrInvalidKey):
		http.Error(w, "Invalid run key", http.StatusBadRequest)
	case errors.Is(err, runlog.ErrMalformedRecord):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Error().Err(err).Str("key", string(key)).Msg("Failed to load run")
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
	}
}

func newRunInfo(key runlog.Key, record *runlog.Record) RunInfo {
	info := RunInfo{
		Key:       key,
		Label:     key.Label(),
		Algorithm: record.Algorithm,
		RunID:     record.RunID,
		Episodes:  record.Len(),
		StartTime: record.StartTime.Time,
	}
	if record.EndTime != nil {
		end := record.EndTime.Time
		info.EndTime = &end
	}
	return info
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
