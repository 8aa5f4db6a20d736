package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tasks-api/internal/api/v1/response"
	"tasks-api/internal/middleware"
	"tasks-api/internal/models"
	"tasks-api/internal/service"
	"tasks-api/internal/websocket"
	"tasks-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const invalidTaskID = "Task ID must be a positive number"

type taskList struct {
	RowsReturned int           `json:"rows_returned"`
	Tasks        []models.Task `json:"tasks"`
}

func newTaskList(tasks ...models.Task) taskList {
	if tasks == nil {
		tasks = []models.Task{}
	}
	return taskList{RowsReturned: len(tasks), Tasks: tasks}
}

type taskPage struct {
	taskList
	TotalRows  int  `json:"total_rows"`
	TotalPages int  `json:"total_pages"`
	IsLastPage bool `json:"is_last_page"`
}

// GetTasks handles GET /v1/tasks. The query selects one of: a single task
// (taskid), a completed filter (completed), a page (page), or everything.
func (h *Handler) GetTasks(c *fiber.Ctx) error {
	switch {
	case hasQuery(c, "taskid"):
		return h.getTask(c)
	case hasQuery(c, "completed"):
		return h.listByCompleted(c)
	case hasQuery(c, "page"):
		return h.listPage(c)
	case c.Context().QueryArgs().Len() == 0:
		tasks, err := h.deps.Tasks.List(c.UserContext(), nil)
		if err != nil {
			return response.FromError(c, err, "Failed to retrieve tasks")
		}
		return response.Cached(c, fiber.StatusOK, newTaskList(tasks...), "Tasks retrieved successfully")
	default:
		return response.NotFound(c)
	}
}

func (h *Handler) getTask(c *fiber.Ctx) error {
	id, ok := positiveQueryInt(c, "taskid")
	if !ok {
		return badRequest(c, invalidTaskID)
	}

	ctx := c.UserContext()
	task, hit := h.deps.Cache.Get(ctx, id)
	if !hit {
		var err error
		task, err = h.deps.Tasks.Get(ctx, id)
		if err != nil {
			return response.FromError(c, err, "Failed to retrieve task")
		}
		h.deps.Cache.Add(ctx, task)
	}
	return response.Cached(c, fiber.StatusOK, newTaskList(*task), "Task retrieved successfully")
}

func (h *Handler) listByCompleted(c *fiber.Ctx) error {
	var completed int
	switch strings.TrimSpace(c.Query("completed")) {
	case "0":
		completed = 0
	case "1":
		completed = 1
	default:
		return badRequest(c, "Incorrect value of completed. Allowed values: 1 or 0")
	}

	tasks, err := h.deps.Tasks.List(c.UserContext(), &completed)
	if err != nil {
		return response.FromError(c, err, "Failed to retrieve tasks")
	}
	return response.Cached(c, fiber.StatusOK, newTaskList(tasks...), "Tasks retrieved successfully")
}

func (h *Handler) listPage(c *fiber.Ctx) error {
	raw := strings.TrimSpace(c.Query("page"))
	page, err := strconv.Atoi(raw)
	if err != nil {
		return badRequest(c, "Page value should be provided")
	}

	p, err := h.deps.Tasks.ListPage(c.UserContext(), page)
	if errors.Is(err, service.ErrPageNotFound) {
		return response.Fail(c, fiber.StatusNotFound, fmt.Sprintf("Page %d not found", page))
	}
	if err != nil {
		return response.FromError(c, err, "Failed to retrieve tasks")
	}
	return response.Cached(c, fiber.StatusOK, taskPage{
		taskList:   newTaskList(p.Tasks...),
		TotalRows:  p.TotalRows,
		TotalPages: p.TotalPages,
		IsLastPage: p.IsLastPage,
	}, "Tasks retrieved successfully")
}

// CreateTask handles POST /v1/tasks.
func (h *Handler) CreateTask(c *fiber.Ctx) error {
	if c.Context().QueryArgs().Len() > 0 {
		return response.MethodNotAllowed(c)
	}
	if err := requireJSON(c); err != nil {
		return badRequest(c, err.Error())
	}
	var req service.NewTask
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errInvalidJSON.Error())
	}
	if err := h.deps.Validate.Struct(req); err != nil {
		return badRequest(c, "Title is mandatory for task creation")
	}

	ctx := c.UserContext()
	task, err := h.deps.Tasks.Create(ctx, req)
	if err != nil {
		return response.FromError(c, err, "Failed to create task")
	}
	audit(c, "Task created", task.ID)
	h.deps.Cache.Set(ctx, task)
	h.deps.Hub.Publish(websocket.EventTaskCreated, task.ID, task)
	return response.OK(c, fiber.StatusCreated, newTaskList(*task), "Task created successfully")
}

// UpdateTask handles PATCH /v1/tasks?taskid=N.
func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	if !hasQuery(c, "taskid") {
		return response.MethodNotAllowed(c)
	}
	id, ok := positiveQueryInt(c, "taskid")
	if !ok {
		return badRequest(c, invalidTaskID)
	}
	if err := requireJSON(c); err != nil {
		return badRequest(c, err.Error())
	}
	var patch service.TaskPatch
	if problems := decodeStrict(c, &patch); problems != nil {
		return badRequest(c, problems...)
	}

	ctx := c.UserContext()
	task, err := h.deps.Tasks.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, service.ErrEditConflict) {
			h.deps.Cache.Delete(ctx, id)
		}
		return response.FromError(c, err, "Failed to update task")
	}
	audit(c, "Task updated", task.ID)
	h.deps.Cache.Set(ctx, task)
	h.deps.Hub.Publish(websocket.EventTaskUpdated, task.ID, task)
	return response.OK(c, fiber.StatusOK, newTaskList(*task), "Task updated")
}

// DeleteTask handles DELETE /v1/tasks?taskid=N.
func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	if !hasQuery(c, "taskid") {
		return response.MethodNotAllowed(c)
	}
	id, ok := positiveQueryInt(c, "taskid")
	if !ok {
		return badRequest(c, invalidTaskID)
	}

	ctx := c.UserContext()
	if err := h.deps.Tasks.Delete(ctx, id); err != nil {
		return response.FromError(c, err, "Failed to delete task")
	}
	audit(c, "Task deleted", id)
	h.deps.Cache.Delete(ctx, id)
	h.deps.Hub.Publish(websocket.EventTaskDeleted, id, nil)
	return response.OK(c, fiber.StatusOK, nil, fmt.Sprintf("Task %d deleted", id))
}

// audit records a task mutation against the user who made it.
func audit(c *fiber.Ctx, msg string, taskID int) {
	fields := []zap.Field{zap.Int("task_id", taskID)}
	if u := middleware.CurrentUser(c); u != nil {
		fields = append(fields, zap.Int("user_id", u.ID), zap.String("username", u.Username))
	}
	logger.AuditLogger.Info(msg, fields...)
}
