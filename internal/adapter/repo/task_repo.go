package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
	"github.com/XIAOke8698/GRAS-Manager/internal/sqlinline"
)

// TaskRepositoryPG stores the task collection in the gras_tasks table. The
// full record lives in the payload column; the other columns are for ad hoc
// queries.
type TaskRepositoryPG struct {
	db infra.TxExecutor
}

// NewTaskRepository creates a task repository backed by PostgreSQL.
func NewTaskRepository(db infra.TxExecutor) (*TaskRepositoryPG, error) {
	if db == nil {
		return nil, errors.New("repo: sql executor is required")
	}
	return &TaskRepositoryPG{db: db}, nil
}

// EnsureSchema creates the tasks table when it does not exist yet.
func (r *TaskRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, sqlinline.QCreateTasksTable); err != nil {
		return fmt.Errorf("repo: create tasks table: %w", err)
	}
	return nil
}

// Load reads every task ordered by its position in the collection.
func (r *TaskRepositoryPG) Load(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListTasks)
	if err != nil {
		return nil, fmt.Errorf("repo: list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("repo: scan task: %w", err)
		}
		var task domain.Task
		if err := json.Unmarshal(payload, &task); err != nil {
			return nil, fmt.Errorf("repo: decode task payload: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate tasks: %w", err)
	}
	return tasks, nil
}

// Save replaces the stored collection inside one transaction.
func (r *TaskRepositoryPG) Save(ctx context.Context, tasks []domain.Task) error {
	return r.db.WithTx(ctx, func(tx infra.SQLExecutor) error {
		if _, err := tx.Exec(ctx, sqlinline.QDeleteAllTasks); err != nil {
			return fmt.Errorf("repo: clear tasks: %w", err)
		}
		for i, task := range tasks {
			payload, err := json.Marshal(task)
			if err != nil {
				return fmt.Errorf("repo: encode task %s: %w", task.TaskID, err)
			}
			if _, err := tx.Exec(ctx, sqlinline.QInsertTask,
				task.TaskID,
				i,
				string(task.TaskType),
				string(task.Status),
				payload,
				nullableTime(task.SubmitTime.Time),
			); err != nil {
				return fmt.Errorf("repo: insert task %s: %w", task.TaskID, err)
			}
		}
		return nil
	})
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
