package handlers

import (
	"net/http"

	"github.com/aristath/trainlog/internal/modules/runlog"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all run record routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.HandleListRuns)

		r.Route("/{key}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetRun(w, r, runKey(r))
			})
			r.Put("/", func(w http.ResponseWriter, r *http.Request) {
				h.HandlePutRun(w, r, runKey(r))
			})
			r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
				h.HandleDeleteRun(w, r, runKey(r))
			})
			r.Get("/summary", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetSummary(w, r, runKey(r))
			})
		})
	})
}

func runKey(r *http.Request) runlog.Key {
	return runlog.Key(chi.URLParam(r, "key"))
}
