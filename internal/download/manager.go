// Package download copies finished media into local storage and points the
// task record at the local copy.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
	"github.com/XIAOke8698/GRAS-Manager/internal/infra"
	"github.com/XIAOke8698/GRAS-Manager/internal/metrics"
	"github.com/XIAOke8698/GRAS-Manager/internal/storage"
)

const (
	defaultTimeout = 30 * time.Second
	fileTimeLayout = "20060102_150405"
)

// Error reports a failed fetch. The task record is left untouched.
type Error struct {
	TaskID     string
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download: %s: HTTP %d from %s", e.TaskID, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("download: %s: %v", e.TaskID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ProgressFunc wraps a response body, for example to drive a progress bar.
// size is -1 when the remote did not announce a length. done is called once
// the copy finished.
type ProgressFunc func(label string, size int64, body io.Reader) (wrapped io.Reader, done func())

type Options struct {
	Store      domain.TaskRepository
	Files      *storage.FileStore
	HTTPClient *http.Client
	Timeout    time.Duration
	Progress   ProgressFunc
	Now        func() time.Time
	Logger     *infra.Logger
}

type Manager struct {
	store    domain.TaskRepository
	files    *storage.FileStore
	client   *http.Client
	timeout  time.Duration
	progress ProgressFunc
	now      func() time.Time
	logger   infra.Logger
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("download: store is required")
	}
	if opts.Files == nil {
		return nil, errors.New("download: file store is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store:    opts.Store,
		files:    opts.Files,
		client:   client,
		timeout:  timeout,
		progress: opts.Progress,
		now:      now,
		logger:   infra.LoggerOrNop(opts.Logger),
	}, nil
}

// WithProgress returns a copy of m that reports through fn.
func (m *Manager) WithProgress(fn ProgressFunc) *Manager {
	cp := *m
	cp.progress = fn
	return &cp
}

// Files exposes the storage root downloads are written to.
func (m *Manager) Files() *storage.FileStore {
	return m.files
}

// Materialize downloads the video of a video task, or image index of an
// image task. Media that is already local is not fetched again.
func (m *Manager) Materialize(ctx context.Context, taskID string, index int) (*domain.Task, error) {
	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskStatusSucceeded {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrNotDownloadable, taskID, task.Status)
	}
	if task.TaskType.IsVideo() {
		return m.materializeVideo(ctx, task)
	}
	return m.materializeImage(ctx, task, index)
}

// MaterializeAll downloads every media item of a succeeded task that is not
// local yet. Images are attempted independently; their errors are joined.
func (m *Manager) MaterializeAll(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskStatusSucceeded {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrNotDownloadable, taskID, task.Status)
	}
	if task.TaskType.IsVideo() {
		return m.materializeVideo(ctx, task)
	}
	if len(task.Results) == 0 {
		return nil, fmt.Errorf("%w: %s has no results", domain.ErrNotDownloadable, taskID)
	}
	var errs []error
	for i := range task.Results {
		if _, ok := task.LocalImagePath(i); ok {
			continue
		}
		updated, err := m.materializeImage(ctx, task, i)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		task = updated
	}
	return task, errors.Join(errs...)
}

// Pending reports whether the task has media that is not local yet.
func Pending(task domain.Task) bool {
	if task.Status != domain.TaskStatusSucceeded {
		return false
	}
	if task.TaskType.IsVideo() {
		return task.LocalVideoPath == "" && coalesce(task.OriginalVideoURL, task.VideoURL) != ""
	}
	for i, r := range task.Results {
		if _, ok := task.LocalImagePath(i); !ok && r.URL != "" {
			return true
		}
	}
	return false
}

func (m *Manager) materializeVideo(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task.LocalVideoPath != "" {
		return task, nil
	}
	src := coalesce(task.OriginalVideoURL, task.VideoURL)
	if src == "" {
		return nil, fmt.Errorf("%w: %s has no video url", domain.ErrNotDownloadable, task.TaskID)
	}
	now := m.now()
	key := fmt.Sprintf("video_%s_%s.mp4", safeID(task.TaskID), now.Format(fileTimeLayout))
	path, err := m.fetch(ctx, task.TaskID, src, key)
	if err != nil {
		return nil, err
	}
	updated, err := m.store.Update(ctx, task.TaskID, func(t *domain.Task) error {
		t.OriginalVideoURL = src
		t.VideoURL = path
		t.LocalVideoPath = path
		t.Downloaded = true
		t.Completed = true
		t.DownloadTime = domain.NewTimestamp(now)
		return nil
	})
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	m.logger.Info().Str("task_id", task.TaskID).Str("path", path).Msg("download: video stored")
	return updated, nil
}

func (m *Manager) materializeImage(ctx context.Context, task *domain.Task, index int) (*domain.Task, error) {
	if index < 0 || index >= len(task.Results) {
		return nil, fmt.Errorf("%w: %s has no image %d", domain.ErrNotDownloadable, task.TaskID, index)
	}
	if _, ok := task.LocalImagePath(index); ok {
		return task, nil
	}
	result := task.Results[index]
	src := coalesce(result.OriginalURL, result.URL)
	if src == "" {
		return nil, fmt.Errorf("%w: %s image %d has no url", domain.ErrNotDownloadable, task.TaskID, index)
	}
	now := m.now()
	key := fmt.Sprintf("image_%s_%d_%s.png", safeID(task.TaskID), index, now.Format(fileTimeLayout))
	path, err := m.fetch(ctx, task.TaskID, src, key)
	if err != nil {
		return nil, err
	}
	updated, err := m.store.Update(ctx, task.TaskID, func(t *domain.Task) error {
		if index >= len(t.Results) {
			return fmt.Errorf("%w: %s image %d disappeared", domain.ErrNotDownloadable, t.TaskID, index)
		}
		t.Results[index].OriginalURL = src
		t.Results[index].URL = path
		t.SetLocalImagePath(index, path)
		t.Downloaded = true
		t.DownloadTime = domain.NewTimestamp(now)
		return nil
	})
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	m.logger.Info().Str("task_id", task.TaskID).Int("index", index).Str("path", path).Msg("download: image stored")
	return updated, nil
}

func (m *Manager) fetch(ctx context.Context, taskID, src, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		metrics.RecordDownload(metrics.OutcomeError)
		return "", &Error{TaskID: taskID, URL: src, Err: err}
	}
	resp, err := m.client.Do(req)
	if err != nil {
		metrics.RecordDownload(metrics.OutcomeError)
		m.logger.Warn().Err(err).Str("task_id", taskID).Str("url", src).Msg("download: request failed")
		return "", &Error{TaskID: taskID, URL: src, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		metrics.RecordDownload(metrics.OutcomeRejected)
		m.logger.Warn().Str("task_id", taskID).Int("status", resp.StatusCode).Msg("download: unexpected status")
		return "", &Error{TaskID: taskID, URL: src, StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if m.progress != nil {
		wrapped, done := m.progress(key, resp.ContentLength, resp.Body)
		body = wrapped
		if done != nil {
			defer done()
		}
	}
	path, n, err := m.files.WriteStream(ctx, key, body)
	if err != nil {
		metrics.RecordDownload(metrics.OutcomeError)
		return "", &Error{TaskID: taskID, URL: src, Err: err}
	}
	metrics.RecordDownload(metrics.OutcomeOK)
	m.logger.Debug().Str("task_id", taskID).Int64("bytes", n).Msg("download: fetched")
	return path, nil
}

func safeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
