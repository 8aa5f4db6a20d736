package middleware

import (
	"strings"

	"tasks-api/internal/api/v1/response"
	"tasks-api/internal/models"
	"tasks-api/internal/service"
	"tasks-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LocalUser is the Locals key RequireSession stores the user under.
const LocalUser = "user"

// AccessToken reads the Authorization header. The raw token and
// "Bearer <token>" are both accepted.
func AccessToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		h = strings.TrimSpace(h[7:])
	}
	return h
}

// RequireSession rejects requests without a live session access token.
func RequireSession(auth *service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := AccessToken(c)
		if token == "" {
			return response.Fail(c, fiber.StatusUnauthorized, "Access token is missing from the header")
		}

		user, _, err := auth.Authenticate(c.UserContext(), token)
		if err != nil {
			if service.IsAuthError(err) {
				logger.SecurityLogger.Warn("Rejected access token",
					zap.String("path", c.Path()),
					zap.String("ip", c.IP()),
					zap.Error(err),
				)
			}
			return response.FromError(c, err, "There was an issue authenticating - please try again")
		}

		c.Locals(LocalUser, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by RequireSession, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(LocalUser).(*models.User)
	return u
}
