package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/automax/grievance-backend/internal/services"
)

type HealthHandler struct {
	health  services.HealthService
	version string
}

func NewHealthHandler(health services.HealthService, version string) *HealthHandler {
	return &HealthHandler{health: health, version: version}
}

// Health reports dependency readiness; 503 unless the database and the model
// client are both ready.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	report := h.health.Check(c.Context())
	status := fiber.StatusOK
	if !report.Healthy() {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(report)
}

// Status is a liveness probe that touches no dependency.
func (h *HealthHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "OK",
		"service": "grievance-backend",
		"version": h.version,
	})
}

func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.SendString("Grievance backend is active.")
}
