// Package handlers exposes run comparisons over HTTP.
package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/aristath/trainlog/internal/modules/comparison"
	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles comparison HTTP requests
type Handler struct {
	service *comparison.Service
	log     zerolog.Logger
}

// NewHandler creates a new comparison handler
func NewHandler(service *comparison.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "comparison").Logger(),
	}
}

// RegisterRoutes registers the comparison routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/comparison", h.HandleGetComparison)
}

// HandleGetComparison handles GET /api/comparison?keys=a,b&format=json|msgpack.
// Without keys every saved run is compared.
func (h *Handler) HandleGetComparison(w http.ResponseWriter, r *http.Request) {
	format, err := comparison.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	keys := parseKeys(r.URL.Query().Get("keys"))
	if len(keys) == 0 {
		keys, err = h.service.AvailableKeys(r.Context())
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to list runs")
			http.Error(w, "Failed to list runs", http.StatusInternalServerError)
			return
		}
	}

	result, err := h.service.BuildComparison(r.Context(), keys)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build comparison")
		http.Error(w, "Failed to build comparison", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := comparison.Encode(&buf, result, format); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode comparison")
		http.Error(w, "Failed to encode comparison", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.log.Error().Err(err).Msg("Failed to write comparison response")
	}
}

func parseKeys(raw string) []runlog.Key {
	keys := []runlog.Key{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			keys = append(keys, runlog.Key(part))
		}
	}
	return keys
}
