package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	statsHandler := handlers.NewStatsHandler()
	configHandler := handlers.NewConfigHandler(s.config, s.service)
	timeLogsHandler := handlers.NewTimeLogsHandler(s.service, statsHandler)
	employeesHandler := handlers.NewEmployeesHandler(s.service, statsHandler)
	workHoursHandler := handlers.NewWorkHoursHandler(s.service)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Recording
		r.Post("/time-logs", timeLogsHandler.Create)
		r.Post("/face-recognition/verify", timeLogsHandler.Verify)

		// Roster and enrolment
		r.Get("/employees", employeesHandler.List)
		r.Put("/employees/{id}/face", employeesHandler.Enroll)
		r.Delete("/employees/{id}/face", employeesHandler.ResetFace)

		// Per-employee reads
		r.Get("/employees/{id}/time-logs", employeesHandler.TimeLogs)
		r.Get("/employees/{id}/sessions", employeesHandler.Sessions)
		r.Get("/employees/{id}/work-hours", employeesHandler.WorkHours)

		// Work hours
		r.Post("/work-hours/recompute", workHoursHandler.Recompute)

		// Config
		r.Get("/config", configHandler.Get)

		// Stats
		r.Get("/stats", statsHandler.Get)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})
}
