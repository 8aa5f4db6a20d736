package handlers

import (
	"context"
	"time"

	"tasks-api/internal/api/v1/response"
	"tasks-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// Health handles GET /healthz by pinging the database.
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	if err := h.deps.Store.Ping(ctx); err != nil {
		logger.ErrorLogger.Error("Health check failed", zap.Error(err))
		return response.Fail(c, fiber.StatusServiceUnavailable, "Database unavailable")
	}
	return response.OK(c, fiber.StatusOK, nil, "OK")
}
