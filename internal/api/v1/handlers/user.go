package handlers

import (
	"tasks-api/internal/api/v1/response"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Fullname *string `json:"fullname" validate:"required,min=1,max=255"`
	Username *string `json:"username" validate:"required,min=1,max=255"`
	Password *string `json:"password" validate:"required,min=1,max=255"`
}

// Register handles POST /v1/users.
func (h *Handler) Register(c *fiber.Ctx) error {
	if err := requireJSON(c); err != nil {
		return badRequest(c, err.Error())
	}
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errInvalidJSON.Error())
	}
	if err := h.deps.Validate.Struct(req); err != nil {
		return badRequest(c, validationMessages(err)...)
	}

	user, err := h.deps.Auth.Register(c.UserContext(), *req.Fullname, *req.Username, *req.Password)
	if err != nil {
		return response.FromError(c, err, "There was an issue while creating new user, please try again")
	}
	return response.OK(c, fiber.StatusCreated, user, "User created")
}
