package v1

import (
	"tasks-api/internal/api/v1/handlers"
	"tasks-api/internal/api/v1/response"
	"tasks-api/internal/config"
	"tasks-api/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(app *fiber.App, deps *config.Dependencies) {
	h := handlers.New(deps)
	api := app.Group("/v1")

	// Sessions
	sessions := api.Group("/sessions")
	sessions.Post("", h.Login)
	sessions.Delete("", h.Logout)
	sessions.Patch("", h.RefreshSession)
	sessions.All("", response.MethodNotAllowed)

	// Users
	users := api.Group("/users")
	users.Post("", h.Register)
	users.All("", response.MethodNotAllowed)

	// Tasks
	tasks := api.Group("/tasks", middleware.RequireSession(deps.Auth))
	tasks.Get("", h.GetTasks)
	tasks.Post("", h.CreateTask)
	tasks.Patch("", h.UpdateTask)
	tasks.Delete("", h.DeleteTask)
	tasks.All("", response.MethodNotAllowed)

	// Task events
	if deps.Hub != nil {
		api.Get("/ws/tasks", middleware.RequireSession(deps.Auth), h.RequireUpgrade, h.TaskEvents())
	}

	app.Get("/healthz", h.Health)

	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	app.Use(response.NotFound)
}
