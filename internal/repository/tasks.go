package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tasks-api/internal/models"
)

// TaskField enumerates the columns a partial update may touch.
type TaskField string

const (
	FieldTitle       TaskField = "title"
	FieldDescription TaskField = "description"
	FieldDeadline    TaskField = "deadline"
	FieldCompleted   TaskField = "completed"
)

// FieldChange pairs an updatable column with the value to write.
type FieldChange struct {
	Field TaskField
	Value any
}

// TaskFilter narrows ListTasks. The zero value lists everything.
type TaskFilter struct {
	Completed *int
	Limit     int
	Offset    int
}

const taskColumns = `id, title, description, deadline, completed, version`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var (
		t           models.Task
		description sql.NullString
		deadline    sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Title, &description, &deadline, &t.Completed, &t.Version); err != nil {
		return nil, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	if deadline.Valid {
		d := models.NewDeadline(deadline.Time)
		t.Deadline = &d
	}
	return &t, nil
}

// DeadlineArg converts an optional deadline into a driver value.
func DeadlineArg(d *models.Deadline) any {
	if d == nil {
		return nil
	}
	return d.Time
}

func descriptionArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func (q *Queries) InsertTask(ctx context.Context, t *models.Task) error {
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO tasks (title, description, deadline, completed, version)
		 VALUES ($1, $2, $3, $4, 1) RETURNING id`,
		t.Title, descriptionArg(t.Description), DeadlineArg(t.Deadline), t.Completed,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	t.Version = 1
	return nil
}

func (q *Queries) GetTask(ctx context.Context, id int) (*models.Task, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (q *Queries) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	var (
		query strings.Builder
		args  []any
	)
	query.WriteString(`SELECT ` + taskColumns + ` FROM tasks`)
	if f.Completed != nil {
		args = append(args, *f.Completed)
		query.WriteString(` WHERE completed = $` + strconv.Itoa(len(args)))
	}
	query.WriteString(` ORDER BY id`)
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query.WriteString(fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args)))
	}

	rows, err := q.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func (q *Queries) CountTasks(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// UpdateTaskFields writes exactly the given columns, guarded by the version
// the caller read. It reports whether the row was updated.
func (q *Queries) UpdateTaskFields(ctx context.Context, id, version int, changes []FieldChange) (bool, error) {
	if len(changes) == 0 {
		return false, errors.New("update task: no fields to update")
	}

	sets := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+2)
	for _, c := range changes {
		switch c.Field {
		case FieldTitle, FieldDescription, FieldDeadline, FieldCompleted:
		default:
			return false, fmt.Errorf("update task: unknown field %q", c.Field)
		}
		args = append(args, c.Value)
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Field, len(args)))
	}
	sets = append(sets, "version = version + 1")
	args = append(args, id, version)

	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d AND version = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update task: %w", err)
	}
	return n > 0, nil
}

func (q *Queries) DeleteTask(ctx context.Context, id int) (bool, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return n > 0, nil
}
