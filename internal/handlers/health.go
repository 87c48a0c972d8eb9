package handlers

import (
	"dottpay/internal/gateway"
	"dottpay/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	gw gateway.Client
}

func NewHealthHandler(gw gateway.Client) *HealthHandler {
	return &HealthHandler{gw: gw}
}

// HealthCheck reports the state of the local stores and the settlement
// endpoint. The service stays up when the endpoint is down; the queue absorbs
// writes until connectivity returns.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	services := fiber.Map{
		"database": "connected",
		"redis":    "connected",
		"gateway":  "connected",
	}
	healthy := true

	if sqlDB, err := repositories.DB.DB(); err != nil || sqlDB.Ping() != nil {
		services["database"] = "unreachable"
		healthy = false
	}

	if repositories.CacheService == nil || repositories.CacheService.HealthCheck(c.Context()) != nil {
		services["redis"] = "unreachable"
		healthy = false
	}

	// Degraded, not unhealthy: offline operation is a supported mode.
	if h.gw.Health(c.Context()) != nil {
		services["gateway"] = "unreachable"
	}

	status := "ok"
	code := fiber.StatusOK
	if !healthy {
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"services": services,
	})
}
