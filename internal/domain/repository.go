package domain

import "context"

// TaskFilter narrows List results. Zero values match everything.
type TaskFilter struct {
	Type   TaskType
	Status TaskStatus
}

// Match reports whether the task satisfies the filter.
func (f TaskFilter) Match(t Task) bool {
	if f.Type != "" && t.TaskType != f.Type {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

// TaskRepository is the durable task collection. Every mutation reads the
// current collection, changes it and rewrites it whole.
type TaskRepository interface {
	List(ctx context.Context, filter TaskFilter) ([]Task, error)
	Get(ctx context.Context, taskID string) (*Task, error)
	Add(ctx context.Context, task Task) error
	Update(ctx context.Context, taskID string, fn func(*Task) error) (*Task, error)
	UpdateMany(ctx context.Context, taskIDs []string, fn func(*Task) error) ([]Task, error)
	Delete(ctx context.Context, taskID string) (bool, error)
}
