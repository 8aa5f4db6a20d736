package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"tasks-api/internal/api/v1/response"
	"tasks-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler recovers panics into a generic 500 envelope and logs every
// request with its outcome. Errors from the chain are rendered here by the
// app's error handler, so the logged status is the one the client receives.
func ErrorHandler() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorLogger.Error(fmt.Sprintf("Recovered from panic: %v", r),
					zap.String("method", c.Method()),
					zap.String("url", c.OriginalURL()),
					zap.String("stack", string(debug.Stack())),
				)
				err = response.Fail(c, fiber.StatusInternalServerError, "Internal server error")
			}
			if err != nil {
				if hErr := c.App().ErrorHandler(c, err); hErr != nil {
					_ = c.SendStatus(fiber.StatusInternalServerError)
				}
				err = nil
			}
			logger.RequestLogger.Info("Request",
				zap.String("method", c.Method()),
				zap.String("url", c.OriginalURL()),
				zap.Int("status", c.Response().StatusCode()),
				zap.Duration("latency", time.Since(start)),
			)
		}()
		return c.Next()
	}
}
