package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"revdash/internal/api/handlers"
	"revdash/internal/api/middleware"
)

// NewRouter assembles the HTTP surface: dashboard reads, CSV downloads,
// async export jobs and health.
func NewRouter(dash *handlers.DashboardHandler, exports *handlers.ExportsHandler, jobsHandler *handlers.JobsHandler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS)

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", dash.Dashboard)
		r.Get("/products/{name}/daily", dash.Daily)
		r.Get("/export/{document}", dash.ExportCSV)

		r.Post("/exports", exports.Create)
		r.Get("/jobs", jobsHandler.ListJobs)
		r.Get("/jobs/{id}", jobsHandler.GetJob)
	})

	return r
}
