package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
	"github.com/XIAOke8698/GRAS-Manager/internal/storage"
)

// TaskFileRepository keeps the task collection as one JSON array on disk.
type TaskFileRepository struct {
	path   string
	logger infra.Logger
}

// NewTaskFileRepository creates a file backed task repository.
func NewTaskFileRepository(path string, logger *infra.Logger) (*TaskFileRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repo: tasks file path is required")
	}
	return &TaskFileRepository{path: path, logger: infra.LoggerOrNop(logger)}, nil
}

// Path returns the file the collection is stored in.
func (r *TaskFileRepository) Path() string {
	return r.path
}

// Load reads the collection. A missing or empty file is an empty collection;
// an undecodable file is an error so it is never overwritten by accident.
func (r *TaskFileRepository) Load(ctx context.Context) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Info().Str("path", r.path).Msg("repo: tasks file not found, starting empty")
		return []domain.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repo: read tasks file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.Task{}, nil
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("repo: decode tasks file %s: %w", r.path, err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// Save rewrites the whole file through a temp file and rename.
func (r *TaskFileRepository) Save(ctx context.Context, tasks []domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	err := storage.WriteFileAtomic(r.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(tasks)
	})
	if err != nil {
		return fmt.Errorf("repo: save tasks file: %w", err)
	}
	r.logger.Debug().Str("path", r.path).Int("tasks", len(tasks)).Msg("repo: tasks saved")
	return nil
}
