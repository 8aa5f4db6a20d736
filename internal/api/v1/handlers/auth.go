package handlers

import (
	"time"

	"tasks-api/internal/api/v1/response"
	"tasks-api/internal/middleware"
	"tasks-api/internal/service"
	"tasks-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type loginRequest struct {
	Username *string `json:"username" validate:"required,min=1,max=255"`
	Password *string `json:"password" validate:"required,min=1,max=255"`
}

type refreshRequest struct {
	RefreshToken *string `json:"refresh_token" validate:"required,min=1"`
}

type sessionResponse struct {
	SessionID          int    `json:"session_id"`
	AccessToken        string `json:"access_token"`
	AccessTokenExpiry  int    `json:"access_token_expiry"`
	RefreshToken       string `json:"refresh_token"`
	RefreshTokenExpiry int    `json:"refresh_token_expiry"`
}

func newSessionResponse(t *service.Tokens) sessionResponse {
	return sessionResponse{
		SessionID:          t.SessionID,
		AccessToken:        t.AccessToken,
		AccessTokenExpiry:  int(t.AccessTokenExpiry / time.Second),
		RefreshToken:       t.RefreshToken,
		RefreshTokenExpiry: int(t.RefreshTokenExpiry / time.Second),
	}
}

// Login handles POST /v1/sessions.
func (h *Handler) Login(c *fiber.Ctx) error {
	if hasQuery(c, "sessionid") {
		return response.MethodNotAllowed(c)
	}
	if h.deps.LoginDelay > 0 {
		time.Sleep(h.deps.LoginDelay)
	}

	if err := requireJSON(c); err != nil {
		return badRequest(c, err.Error())
	}
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errInvalidJSON.Error())
	}
	if err := h.deps.Validate.Struct(req); err != nil {
		return badRequest(c, validationMessages(err)...)
	}

	tokens, err := h.deps.Auth.Login(c.UserContext(), *req.Username, *req.Password)
	if err != nil {
		return response.FromError(c, err, "There was an issue logging in - please try again")
	}
	return response.OK(c, fiber.StatusCreated, newSessionResponse(tokens), "Logged in")
}

// sessionTarget validates the session id and access token that logout and
// refresh both require.
func sessionTarget(c *fiber.Ctx) (int, string, []string) {
	var problems []string
	raw := c.Query("sessionid")
	if raw == "" {
		problems = append(problems, "Session ID cannot be blank")
	}
	id, ok := positiveQueryInt(c, "sessionid")
	if !ok {
		problems = append(problems, "Session ID must be numeric")
	}

	token := middleware.AccessToken(c)
	if c.Get(fiber.HeaderAuthorization) == "" {
		problems = append(problems, "Access token is missing from the header")
	} else if token == "" {
		problems = append(problems, "Access token cannot be blank")
	}
	return id, token, problems
}

// Logout handles DELETE /v1/sessions?sessionid=N.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if !hasQuery(c, "sessionid") {
		return response.MethodNotAllowed(c)
	}
	id, token, problems := sessionTarget(c)
	if len(problems) > 0 {
		return badRequest(c, problems...)
	}

	if err := h.deps.Auth.Logout(c.UserContext(), id, token); err != nil {
		return response.FromError(c, err, "Failed to log out - please try again")
	}
	return response.OK(c, fiber.StatusOK, fiber.Map{"session_id": id}, "Successfully logged out")
}

// RefreshSession handles PATCH /v1/sessions?sessionid=N. Both tokens are
// replaced; the old pair stops working.
func (h *Handler) RefreshSession(c *fiber.Ctx) error {
	if !hasQuery(c, "sessionid") {
		return response.MethodNotAllowed(c)
	}
	id, token, problems := sessionTarget(c)
	if len(problems) > 0 {
		return badRequest(c, problems...)
	}

	if err := requireJSON(c); err != nil {
		return badRequest(c, err.Error())
	}
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errInvalidJSON.Error())
	}
	if err := h.deps.Validate.Struct(req); err != nil {
		return badRequest(c, validationMessages(err)...)
	}

	tokens, err := h.deps.Auth.Refresh(c.UserContext(), id, token, *req.RefreshToken)
	if err != nil {
		if service.IsAuthError(err) {
			logger.SecurityLogger.Warn("Refresh rejected", zap.Int("session_id", id), zap.Error(err))
		}
		return response.FromError(c, err, "There was an issue refreshing the access token - please log in again")
	}
	return response.OK(c, fiber.StatusOK, newSessionResponse(tokens), "Token refreshed")
}
