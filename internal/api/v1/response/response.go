// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"errors"

	"tasks-api/internal/service"
	"tasks-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	cacheable = "max-age=60"
	noCache   = "no-cache, no-store"
)

type Envelope struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Messages   []string `json:"messages"`
	Data       any      `json:"data"`
}

func send(c *fiber.Ctx, status int, success, toCache bool, data any, messages []string) error {
	if messages == nil {
		messages = []string{}
	}
	if toCache {
		c.Set(fiber.HeaderCacheControl, cacheable)
	} else {
		c.Set(fiber.HeaderCacheControl, noCache)
	}
	return c.Status(status).JSON(Envelope{
		StatusCode: status,
		Success:    success,
		Messages:   messages,
		Data:       data,
	})
}

// OK answers with a non-cacheable success envelope.
func OK(c *fiber.Ctx, status int, data any, messages ...string) error {
	return send(c, status, true, false, data, messages)
}

// Cached answers with a success envelope clients may cache for a minute.
func Cached(c *fiber.Ctx, status int, data any, messages ...string) error {
	return send(c, status, true, true, data, messages)
}

func Fail(c *fiber.Ctx, status int, messages ...string) error {
	return send(c, status, false, false, nil, messages)
}

func MethodNotAllowed(c *fiber.Ctx) error {
	return Fail(c, fiber.StatusMethodNotAllowed, "Request method not allowed")
}

func NotFound(c *fiber.Ctx) error {
	return Fail(c, fiber.StatusNotFound, "Endpoint not found")
}

// FromError maps a service error onto a status code. Anything unrecognised
// is logged with its original text and answered with the generic message.
func FromError(c *fiber.Ctx, err error, generic string) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return Fail(c, fiber.StatusBadRequest, verr.Messages...)
	case errors.Is(err, service.ErrLogoutFailed):
		return Fail(c, fiber.StatusBadRequest, err.Error())
	case service.IsAuthError(err):
		return Fail(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, service.ErrPageNotFound):
		return Fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEditConflict), errors.Is(err, service.ErrUsernameTaken):
		return Fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUpdateFailed):
		return Fail(c, fiber.StatusInternalServerError, err.Error())
	}

	logger.ErrorLogger.Error(generic,
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return Fail(c, fiber.StatusInternalServerError, generic)
}

// ErrorHandler is the fiber.Config ErrorHandler: errors that escape a
// handler still leave in an envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		if ferr.Code == fiber.StatusNotFound {
			return NotFound(c)
		}
		if ferr.Code == fiber.StatusMethodNotAllowed {
			return MethodNotAllowed(c)
		}
		if ferr.Code < fiber.StatusInternalServerError {
			return Fail(c, ferr.Code, ferr.Message)
		}
	}
	return FromError(c, err, "Internal server error")
}
