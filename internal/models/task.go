package models

const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 16777215
)

// Problems lists every rule the task currently breaks.
func (t *Task) Problems() []string {
	var problems []string
	if len(t.Title) == 0 {
		problems = append(problems, "Title cannot be empty")
	} else if len(t.Title) > MaxTitleLength {
		problems = append(problems, "Title cannot be longer than 255 characters")
	}
	if t.Description != nil && len(*t.Description) > MaxDescriptionLength {
		problems = append(problems, "Description cannot be longer than 16777215 characters")
	}
	if t.Completed != 0 && t.Completed != 1 {
		problems = append(problems, "Completed must be 1 or 0")
	}
	return problems
}
