package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tasks-api/internal/api/v1/response"
	"tasks-api/internal/config"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Handler serves the v1 API over an explicit set of dependencies.
type Handler struct {
	deps *config.Dependencies
}

func New(deps *config.Dependencies) *Handler {
	return &Handler{deps: deps}
}

var (
	errNotJSON     = errors.New("Content-Type header must be application/json")
	errInvalidJSON = errors.New("Request body is not valid JSON")
)

// requireJSON checks the content type and that the body is a JSON object.
func requireJSON(c *fiber.Ctx) error {
	if !c.Is("json") {
		return errNotJSON
	}
	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 || body[0] != '{' || !json.Valid(body) {
		return errInvalidJSON
	}
	return nil
}

// decodeStrict decodes the body into v and rejects keys v does not declare.
func decodeStrict(c *fiber.Ctx, v any) []string {
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		return []string{fmt.Sprintf("Field %s has an invalid type", typeErr.Field)}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return []string{fmt.Sprintf("Field %s cannot be updated", field)}
	default:
		return []string{errInvalidJSON.Error()}
	}
}

// fieldLabels names struct fields in validation messages.
var fieldLabels = map[string]string{
	"Fullname":     "Full name",
	"Username":     "Username",
	"Password":     "Password",
	"RefreshToken": "Refresh token",
	"Title":        "Title",
}

// validationMessages turns validator failures into one message per rule.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		label, ok := fieldLabels[fe.Field()]
		if !ok {
			label = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			messages = append(messages, label+" must be provided")
		case "min":
			messages = append(messages, label+" cannot be empty")
		case "max":
			messages = append(messages, fmt.Sprintf("%s cannot be longer than %s characters", label, fe.Param()))
		default:
			messages = append(messages, label+" is invalid")
		}
	}
	return messages
}

// positiveQueryInt parses a query value that must be a positive integer.
func positiveQueryInt(c *fiber.Ctx, key string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func hasQuery(c *fiber.Ctx, key string) bool {
	return c.Context().QueryArgs().Has(key)
}

func badRequest(c *fiber.Ctx, messages ...string) error {
	return response.Fail(c, fiber.StatusBadRequest, messages...)
}
