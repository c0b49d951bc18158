package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - the desktop front end talks to us from its own origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:1420", "http://localhost:5173"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		// Observer event stream (report-progress, report-generated)
		r.Get("/events", h.hub.HandleSSE)

		// Settings
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.Post("/", h.SaveSettings)
			r.Get("/path", h.GetSettingsPath)
		})

		// Saved reports and generation
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", h.ListReports)
			r.Post("/", h.SaveReport)
			r.Post("/generate", h.GenerateReport)
			r.Delete("/{id}", h.DeleteReport)
			r.Post("/{id}/excel", h.OpenReportInExcel)
			r.Post("/{id}/download", h.DownloadReport)
			r.Post("/{id}/csv", h.DownloadCSV)
		})

		// File helpers for the front end
		r.Post("/open", h.OpenPath)
		r.Post("/report-file", h.WriteReportFile)
	})

	return r
}
