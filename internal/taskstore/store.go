// Package taskstore holds the task collection and writes it through to a
// Backend on every mutation. The backend is the source of truth: every read
// and every mutation starts from a fresh Load, so several processes (API,
// worker, CLI) sharing one backend see and keep each other's records.
package taskstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
)

// Backend loads and saves the complete task collection.
type Backend interface {
	Load(ctx context.Context) ([]domain.Task, error)
	Save(ctx context.Context, tasks []domain.Task) error
}

// Store is the durable task collection. Tasks keep their insertion order.
// A mutation is committed in memory only after the backend accepted the
// rewritten collection, so a failed save never leaves the two out of sync.
type Store struct {
	mu      sync.Mutex
	backend Backend
	tasks   []domain.Task
	logger  infra.Logger
}

// Open loads the collection from backend.
func Open(ctx context.Context, backend Backend, logger *infra.Logger) (*Store, error) {
	if backend == nil {
		return nil, errors.New("taskstore: backend is required")
	}
	s := &Store{backend: backend, logger: infra.LoggerOrNop(logger)}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	s.logger.Debug().Int("tasks", len(s.tasks)).Msg("taskstore: loaded")
	return s, nil
}

// Len returns the number of tasks seen by the last read or write.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// List returns copies of the tasks matching filter in insertion order.
func (s *Store) List(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.Match(t) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	i := indexOf(s.tasks, taskID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
	}
	t := s.tasks[i].Clone()
	return &t, nil
}

// Add appends task and persists the collection.
func (s *Store) Add(ctx context.Context, task domain.Task) error {
	return s.mutate(ctx, func(tasks []domain.Task) ([]domain.Task, error) {
		if indexOf(tasks, task.TaskID) >= 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateTask, task.TaskID)
		}
		return append(tasks, task.Clone()), nil
	})
}

// Update applies fn to a copy of the current task and persists the result.
// The task_id cannot be changed by fn.
func (s *Store) Update(ctx context.Context, taskID string, fn func(*domain.Task) error) (*domain.Task, error) {
	var updated domain.Task
	err := s.mutate(ctx, func(tasks []domain.Task) ([]domain.Task, error) {
		i := indexOf(tasks, taskID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, taskID)
		}
		if err := fn(&tasks[i]); err != nil {
			return nil, err
		}
		tasks[i].TaskID = taskID
		updated = tasks[i].Clone()
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateMany applies fn to the current version of every listed task and
// persists once. Ids that no longer exist are skipped. An error from fn
// aborts the whole batch. The updated tasks are returned in store order.
func (s *Store) UpdateMany(ctx context.Context, taskIDs []string, fn func(*domain.Task) error) ([]domain.Task, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	wanted := make(map[string]struct{}, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = struct{}{}
	}
	var updated []domain.Task
	err := s.mutate(ctx, func(tasks []domain.Task) ([]domain.Task, error) {
		for i := range tasks {
			id := tasks[i].TaskID
			if _, ok := wanted[id]; !ok {
				continue
			}
			if err := fn(&tasks[i]); err != nil {
				return nil, err
			}
			tasks[i].TaskID = id
			updated = append(updated, tasks[i].Clone())
		}
		if len(updated) == 0 {
			return nil, errUnchanged
		}
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the task with the given id. Unknown ids are a no-op and
// report false.
func (s *Store) Delete(ctx context.Context, taskID string) (bool, error) {
	removed := false
	err := s.mutate(ctx, func(tasks []domain.Task) ([]domain.Task, error) {
		i := indexOf(tasks, taskID)
		if i < 0 {
			return nil, errUnchanged
		}
		removed = true
		return append(tasks[:i], tasks[i+1:]...), nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// errUnchanged lets a mutation report that nothing needs to be saved.
var errUnchanged = errors.New("taskstore: unchanged")

// mutate reloads the collection, applies fn to a private copy and saves the
// result. fn returning errUnchanged skips the save without error.
func (s *Store) mutate(ctx context.Context, fn func([]domain.Task) ([]domain.Task, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reload(ctx); err != nil {
		return err
	}
	work := make([]domain.Task, len(s.tasks), len(s.tasks)+1)
	for i, t := range s.tasks {
		work[i] = t.Clone()
	}
	next, err := fn(work)
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.backend.Save(ctx, next); err != nil {
		return fmt.Errorf("taskstore: save: %w", err)
	}
	s.tasks = next
	return nil
}

// reload replaces the in-memory view with the backend's collection. Records
// without an id and repeated ids are dropped; the next save removes them.
func (s *Store) reload(ctx context.Context) error {
	tasks, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("taskstore: load: %w", err)
	}
	seen := make(map[string]struct{}, len(tasks))
	clean := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.TaskID == "" {
			s.logger.Warn().Msg("taskstore: skipping record without task_id")
			continue
		}
		if _, dup := seen[t.TaskID]; dup {
			s.logger.Warn().Str("task_id", t.TaskID).Msg("taskstore: skipping duplicate record")
			continue
		}
		seen[t.TaskID] = struct{}{}
		clean = append(clean, t.Clone())
	}
	s.tasks = clean
	return nil
}

func indexOf(tasks []domain.Task, taskID string) int {
	for i := range tasks {
		if tasks[i].TaskID == taskID {
			return i
		}
	}
	return -1
}

var _ domain.TaskRepository = (*Store)(nil)
