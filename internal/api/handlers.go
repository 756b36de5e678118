package api

import (
	"context"
	"time"

	"streamline/internal/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	store       Pinger
}

func NewHealthHandler(serviceName, version string, store Pinger) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, store: store}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking the store.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "store unavailable",
				"details": fiber.Map{"store": err.Error()},
			},
		})
	}
	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": fiber.Map{"store": "ok"},
	})
}

// MetricsService computes the published metrics.
type MetricsService interface {
	CycleTimes(ctx context.Context, team string) (metrics.Response[metrics.CycleTimeDataPoint], error)
	SprintCycleTimes(ctx context.Context, team string) (metrics.Response[metrics.SprintCycleTimeDataPoint], error)
	LeadTimes(ctx context.Context, team string) (metrics.Response[metrics.LeadTimeDataPoint], error)
	Throughput(ctx context.Context, team string) (metrics.Response[metrics.ThroughputDataPoint], error)
	Velocity(ctx context.Context, team string) (metrics.Response[metrics.VelocityDataPoint], error)
}

// MetricsHandler serves the flow metric endpoints.
type MetricsHandler struct {
	service  MetricsService
	validate *validator.Validate
}

func NewMetricsHandler(service MetricsService) *MetricsHandler {
	return &MetricsHandler{service: service, validate: validator.New()}
}

type metricQuery struct {
	Team string `query:"team" validate:"required,max=100"`
}

func (h *MetricsHandler) team(c *fiber.Ctx) (string, error) {
	var q metricQuery
	if err := c.QueryParser(&q); err != nil {
		return "", NewValidationError("invalid query", nil)
	}
	if err := h.validate.Struct(q); err != nil {
		return "", err
	}
	return metrics.NormalizeTeam(q.Team), nil
}

// serve runs a metric computation and writes its response.
func serve[T metrics.Datapoint](h *MetricsHandler, c *fiber.Ctx, compute func(context.Context, string) (metrics.Response[T], error)) error {
	team, err := h.team(c)
	if err != nil {
		return err
	}
	resp, err := compute(c.UserContext(), team)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// CycleTime GET /v1/metrics/cycle-time.
func (h *MetricsHandler) CycleTime(c *fiber.Ctx) error {
	return serve(h, c, h.service.CycleTimes)
}

// SprintCycleTime GET /v1/metrics/sprint-cycle-time.
func (h *MetricsHandler) SprintCycleTime(c *fiber.Ctx) error {
	return serve(h, c, h.service.SprintCycleTimes)
}

// LeadTime GET /v1/metrics/lead-time.
func (h *MetricsHandler) LeadTime(c *fiber.Ctx) error {
	return serve(h, c, h.service.LeadTimes)
}

// Throughput GET /v1/metrics/throughput.
func (h *MetricsHandler) Throughput(c *fiber.Ctx) error {
	return serve(h, c, h.service.Throughput)
}

// Velocity GET /v1/metrics/velocity.
func (h *MetricsHandler) Velocity(c *fiber.Ctx) error {
	return serve(h, c, h.service.Velocity)
}
