// Package api exposes the flow metrics over HTTP.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *HealthHandler
	Metrics *MetricsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	v1 := app.Group("/v1/metrics")
	v1.Get("/cycle-time", cfg.Metrics.CycleTime)
	v1.Get("/sprint-cycle-time", cfg.Metrics.SprintCycleTime)
	v1.Get("/lead-time", cfg.Metrics.LeadTime)
	v1.Get("/throughput", cfg.Metrics.Throughput)
	v1.Get("/velocity", cfg.Metrics.Velocity)
}

// NewApp builds the fiber application with middlewares and routes.
func NewApp(appName string, timeout time.Duration, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, timeout)
	RegisterRoutes(app, routes)
	return app
}
