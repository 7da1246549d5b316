// Package server exposes the job submission interface over HTTP : submit a
// migration job, poll its snapshot, cancel it, or stream progress over a
// websocket. Display concerns stay out of the engine; this is the poll/push
// layer on top of Snapshot().
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/snowferry/snowferry/pkg/migrate/connection"
	"github.com/snowferry/snowferry/pkg/migrate/state"
)

// Server holds shared state for all API handlers.
type Server struct {
	Provider connection.Provider
	Jobs     *JobStore
	State    state.Manager // optional run history, may be nil
	Log      zerolog.Logger
}

func New(provider connection.Provider, st state.Manager, log zerolog.Logger) *Server {
	return &Server{
		Provider: provider,
		Jobs:     NewJobStore(),
		State:    st,
		Log:      log,
	}
}

// NewRouter builds the chi router with all API routes.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", s.SubmitJob)
		r.Get("/jobs", s.ListJobs)
		r.Get("/jobs/{id}", s.GetJob)
		r.Post("/jobs/{id}/cancel", s.CancelJob)
	})

	// WebSocket (outside /api to avoid JSON content-type assumptions)
	r.Get("/ws/jobs/{id}", s.StreamJobProgress)

	return r
}
