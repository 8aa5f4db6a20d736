package service

import (
	"context"
	"errors"

	"tasks-api/internal/metrics"
	"tasks-api/internal/models"
	"tasks-api/internal/repository"
	"tasks-api/pkg/logger"

	"go.uber.org/zap"
)

// PageSize is the fixed number of tasks per page.
const PageSize = 10

// TaskPatch is a partial update. Only keys present in the request are Set.
type TaskPatch struct {
	Title       models.Optional[string] `json:"title"`
	Description models.Optional[string] `json:"description"`
	Deadline    models.Optional[string] `json:"deadline"`
	Completed   models.Optional[int]    `json:"completed"`
}

// NewTask is a create request. Absent description and deadline stay null,
// absent completed means 0.
type NewTask struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
	Deadline    *string `json:"deadline"`
	Completed   *int    `json:"completed"`
}

// Page is one slice of the task list.
type Page struct {
	Tasks      []models.Task
	TotalRows  int
	TotalPages int
	IsLastPage bool
}

type TaskService struct {
	store   *repository.Store
	metrics *metrics.Metrics
}

func NewTaskService(store *repository.Store, m *metrics.Metrics) *TaskService {
	return &TaskService{store: store, metrics: m}
}

func (s *TaskService) Get(ctx context.Context, id int) (*models.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	return t, err
}

func (s *TaskService) Create(ctx context.Context, in NewTask) (t *models.Task, err error) {
	defer func() { s.metrics.TaskMutation("create", err) }()

	task := &models.Task{Title: in.Title, Description: in.Description}
	var problems []string
	if in.Deadline != nil {
		d, err := models.ParseDeadline(*in.Deadline)
		if err != nil {
			problems = append(problems, err.Error())
		} else {
			task.Deadline = &d
		}
	}
	if in.Completed != nil {
		task.Completed = *in.Completed
	}
	problems = append(problems, task.Problems()...)
	if len(problems) > 0 {
		return nil, invalid(problems...)
	}

	if err := s.store.InsertTask(ctx, task); err != nil {
		return nil, err
	}
	created, err := s.store.GetTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// diff turns a patch into the column changes to write, applying the same
// changes to next so that validation sees exactly what will be stored.
func (p TaskPatch) diff(next *models.Task) ([]repository.FieldChange, []string) {
	var (
		changes  []repository.FieldChange
		problems []string
	)
	if p.Title.Set {
		if p.Title.Null || p.Title.Value == "" {
			problems = append(problems, "Title cannot be null or empty")
		} else {
			next.Title = p.Title.Value
			changes = append(changes, repository.FieldChange{Field: repository.FieldTitle, Value: p.Title.Value})
		}
	}
	if p.Description.Set {
		if p.Description.Null {
			next.Description = nil
		} else {
			desc := p.Description.Value
			next.Description = &desc
		}
		changes = append(changes, repository.FieldChange{Field: repository.FieldDescription, Value: nullable(p.Description)})
	}
	if p.Deadline.Set {
		if p.Deadline.Null {
			next.Deadline = nil
			changes = append(changes, repository.FieldChange{Field: repository.FieldDeadline, Value: nil})
		} else if d, err := models.ParseDeadline(p.Deadline.Value); err != nil {
			problems = append(problems, err.Error())
		} else {
			next.Deadline = &d
			changes = append(changes, repository.FieldChange{Field: repository.FieldDeadline, Value: repository.DeadlineArg(&d)})
		}
	}
	if p.Completed.Set {
		if p.Completed.Null {
			problems = append(problems, "Completed must be 1 or 0")
		} else {
			next.Completed = p.Completed.Value
			changes = append(changes, repository.FieldChange{Field: repository.FieldCompleted, Value: p.Completed.Value})
		}
	}
	return changes, problems
}

func nullable(o models.Optional[string]) any {
	if o.Null {
		return nil
	}
	return o.Value
}

// Empty reports whether no updatable key was supplied.
func (p TaskPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Deadline.Set && !p.Completed.Set
}

// Update applies a partial update and returns the row as stored afterwards.
func (s *TaskService) Update(ctx context.Context, id int, patch TaskPatch) (t *models.Task, err error) {
	defer func() { s.metrics.TaskMutation("update", err) }()

	if patch.Empty() {
		return nil, invalid("No task fields provided")
	}
	if patch.Title.Set && (patch.Title.Null || patch.Title.Value == "") {
		return nil, invalid("Title cannot be null or empty")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	changes, problems := patch.diff(&next)
	problems = append(problems, next.Problems()...)
	if len(problems) > 0 {
		return nil, invalid(dedupe(problems)...)
	}

	updated, err := s.store.UpdateTaskFields(ctx, id, current.Version, changes)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, s.explainMissedUpdate(ctx, current)
	}

	stored, err := s.store.GetTask(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// explainMissedUpdate decides why an update guarded by version touched no row.
func (s *TaskService) explainMissedUpdate(ctx context.Context, read *models.Task) error {
	now, err := s.store.GetTask(ctx, read.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrTaskNotFound
	case err != nil:
		return err
	case now.Version != read.Version:
		logger.AuditLogger.Warn("Task update lost a race", zap.Int("task_id", read.ID))
		return ErrEditConflict
	default:
		logger.ErrorLogger.Error("Task update affected no rows", zap.Int("task_id", read.ID))
		return ErrUpdateFailed
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (s *TaskService) Delete(ctx context.Context, id int) (err error) {
	defer func() { s.metrics.TaskMutation("delete", err) }()

	removed, err := s.store.DeleteTask(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrTaskNotFound
	}
	return nil
}

// List returns all tasks, or only those with the given completed flag.
func (s *TaskService) List(ctx context.Context, completed *int) ([]models.Task, error) {
	if completed != nil && *completed != 0 && *completed != 1 {
		return nil, invalid("Incorrect value of completed. Allowed values: 1 or 0")
	}
	return s.store.ListTasks(ctx, repository.TaskFilter{Completed: completed})
}

// ListPage returns page number page (1-based) of PageSize tasks. Page 0 and
// pages past the end are not found; an empty table still has one page.
func (s *TaskService) ListPage(ctx context.Context, page int) (*Page, error) {
	total, err := s.store.CountTasks(ctx)
	if err != nil {
		return nil, err
	}
	pages := (total + PageSize - 1) / PageSize
	if pages == 0 {
		pages = 1
	}
	if page < 1 || page > pages {
		return nil, ErrPageNotFound
	}

	tasks, err := s.store.ListTasks(ctx, repository.TaskFilter{Limit: PageSize, Offset: (page - 1) * PageSize})
	if err != nil {
		return nil, err
	}
	return &Page{Tasks: tasks, TotalRows: total, TotalPages: pages, IsLastPage: page == pages}, nil
}
