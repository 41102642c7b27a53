package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alekingreal/ajudaita/internal/config"
	"github.com/alekingreal/ajudaita/internal/observability"
	"github.com/alekingreal/ajudaita/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Standard health endpoints
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	// Study assistant API
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/chat", handlers.ChatHandler)
		r.Post("/summaries", handlers.SummaryHandler)
		r.Post("/plans", handlers.PlanHandler)
		r.Post("/boards/generate", handlers.BoardGenerateHandler)

		r.Get("/records", handlers.ListRecordsHandler)
		r.Get("/records/{id}", handlers.GetRecordHandler)
		r.Delete("/records/{id}", handlers.DeleteRecordHandler)

		r.Post("/records/{id}/votes", handlers.SetVoteHandler)
		r.Delete("/records/{id}/votes", handlers.RemoveVoteHandler)
		r.Get("/records/{id}/votes", handlers.VoteCountsHandler)

		r.Get("/llm/limits", handlers.LimitsHandler)
	})

	// Admin signal endpoint (optional, requires AJUDAITA_ADMIN_TOKEN)
	s.registerAdminEndpoint()
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	adminToken := os.Getenv(config.EnvPrefix + "_ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + config.EnvPrefix + "_ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,  // requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
