package http

import (
	"net/http"

	"github.com/cartloop/ranking-service/internal/application"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ready") })

	r.Route("/v1", func(r chi.Router) {
		r.Route("/rankings", func(r chi.Router) {
			r.Get("/live", handler.getLiveRankings)
			r.Get("/{period}", handler.getRankings)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/rollups", handler.startRollup)
			r.Get("/jobs/{job_id}", handler.getJob)
		})
	})
	return r
}
