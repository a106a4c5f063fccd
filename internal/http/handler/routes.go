package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"docsend/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay free of business logic; they translate HTTP to service calls and back.
func RegisterRoutes(app *fiber.App, db *sql.DB, gatherer prometheus.Gatherer, profileSvc service.ProfileService, deliverySvc service.DeliveryService) {
	// Health endpoint: checks DB connectivity only
	app.Get("/health", HealthCheck(db))
	// Simple liveness probe
	app.Get("/healthz", LivenessProbe())
	app.Get("/metrics", Metrics(gatherer))

	app.Post("/profiles", CreateProfile(profileSvc))
	app.Get("/profiles", ListProfiles(profileSvc))
	app.Get("/profiles/:id", GetProfile(profileSvc))
	app.Post("/profiles/:id/send", SendProfile(deliverySvc))
	app.Get("/profiles/:id/history", ProfileHistory(profileSvc))
}
