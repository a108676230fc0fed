package taskstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XIAOke8698/GRAS-Manager/internal/adapter/repo"
	"github.com/XIAOke8698/GRAS-Manager/internal/domain"
)

// memoryBackend records every saved collection.
type memoryBackend struct {
	mu      sync.Mutex
	initial []domain.Task
	saves   [][]domain.Task
	failErr error
}

// Load returns the latest saved collection, or the initial one before any
// save.
func (m *memoryBackend) Load(context.Context) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.initial
	if len(m.saves) > 0 {
		src = m.saves[len(m.saves)-1]
	}
	out := make([]domain.Task, len(src))
	for i, t := range src {
		out[i] = t.Clone()
	}
	return out, nil
}

func (m *memoryBackend) Save(_ context.Context, tasks []domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	snapshot := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		snapshot[i] = t.Clone()
	}
	m.saves = append(m.saves, snapshot)
	return nil
}

func (m *memoryBackend) last() []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saves) == 0 {
		return nil
	}
	return m.saves[len(m.saves)-1]
}

func newTask(id string, status domain.TaskStatus) domain.Task {
	return domain.Task{
		TaskID:     id,
		TaskType:   domain.TaskTypeVideo,
		Status:     status,
		Model:      "veo3-fast",
		Prompt:     "prompt " + id,
		SubmitTime: domain.NewTimestamp(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
}

func openStore(t *testing.T, tasks ...domain.Task) (*Store, *memoryBackend) {
	t.Helper()
	backend := &memoryBackend{initial: tasks}
	s, err := Open(context.Background(), backend, nil)
	require.NoError(t, err)
	return s, backend
}

func TestAddPersistsWholeCollection(t *testing.T) {
	s, backend := openStore(t, newTask("a", domain.TaskStatusRunning))

	require.NoError(t, s.Add(context.Background(), newTask("b", domain.TaskStatusSubmitted)))

	saved := backend.last()
	require.Len(t, saved, 2)
	assert.Equal(t, "a", saved[0].TaskID)
	assert.Equal(t, "b", saved[1].TaskID)

	err := s.Add(context.Background(), newTask("b", domain.TaskStatusSubmitted))
	require.ErrorIs(t, err, domain.ErrDuplicateTask)
}

func TestGetReturnsCopy(t *testing.T) {
	s, _ := openStore(t, newTask("a", domain.TaskStatusRunning))

	got, err := s.Get(context.Background(), "a")
	require.NoError(t, err)
	got.Status = domain.TaskStatusFailed

	again, err := s.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusRunning, again.Status)

	_, err = s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFilters(t *testing.T) {
	img := newTask("img", domain.TaskStatusSucceeded)
	img.TaskType = domain.TaskTypeImage
	s, _ := openStore(t,
		newTask("a", domain.TaskStatusRunning),
		img,
		newTask("c", domain.TaskStatusSucceeded),
	)

	all, err := s.List(context.Background(), domain.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	videos, err := s.List(context.Background(), domain.TaskFilter{Type: domain.TaskTypeVideo})
	require.NoError(t, err)
	assert.Len(t, videos, 2)

	done, err := s.List(context.Background(), domain.TaskFilter{Type: domain.TaskTypeVideo, Status: domain.TaskStatusSucceeded})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "c", done[0].TaskID)
}

func TestUpdateKeepsTaskID(t *testing.T) {
	s, backend := openStore(t, newTask("a", domain.TaskStatusRunning))

	updated, err := s.Update(context.Background(), "a", func(task *domain.Task) error {
		task.TaskID = "hijacked"
		task.Progress = 50
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "a", updated.TaskID)
	assert.Equal(t, 50, updated.Progress)
	assert.Equal(t, 50, backend.last()[0].Progress)
}

func TestUpdateCallbackErrorLeavesTaskUntouched(t *testing.T) {
	s, backend := openStore(t, newTask("a", domain.TaskStatusRunning))

	_, err := s.Update(context.Background(), "a", func(task *domain.Task) error {
		task.Progress = 99
		return errors.New("nope")
	})
	require.Error(t, err)
	assert.Empty(t, backend.saves)

	got, err := s.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Progress)
}

func TestFailedSaveKeepsMemoryState(t *testing.T) {
	s, backend := openStore(t, newTask("a", domain.TaskStatusRunning))
	backend.mu.Lock()
	backend.failErr = errors.New("disk full")
	backend.mu.Unlock()

	require.Error(t, s.Add(context.Background(), newTask("b", domain.TaskStatusSubmitted)))
	deleted, err := s.Delete(context.Background(), "a")
	require.Error(t, err)
	assert.False(t, deleted)
	assert.Equal(t, 1, s.Len())
}

func TestUpdateManyPersistsOnce(t *testing.T) {
	s, backend := openStore(t,
		newTask("a", domain.TaskStatusRunning),
		newTask("b", domain.TaskStatusRunning),
		newTask("c", domain.TaskStatusRunning),
	)

	updated, err := s.UpdateMany(context.Background(), []string{"a", "c", "gone"}, func(task *domain.Task) error {
		task.Status = domain.TaskStatusSucceeded
		task.TaskID = "hijacked"
		return nil
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, "a", updated[0].TaskID)
	assert.Equal(t, "c", updated[1].TaskID)

	require.Len(t, backend.saves, 1)
	saved := backend.last()
	require.Len(t, saved, 3)
	assert.Equal(t, domain.TaskStatusSucceeded, saved[0].Status)
	assert.Equal(t, domain.TaskStatusRunning, saved[1].Status)
	assert.Equal(t, domain.TaskStatusSucceeded, saved[2].Status)
	assert.Equal(t, "c", saved[2].TaskID)
}

func TestUpdateManySeesCurrentRecords(t *testing.T) {
	s, backend := openStore(t, newTask("a", domain.TaskStatusRunning))

	// Another writer finishes the task behind this store's back.
	done := newTask("a", domain.TaskStatusSucceeded)
	done.Downloaded = true
	backend.mu.Lock()
	backend.saves = append(backend.saves, []domain.Task{done})
	backend.mu.Unlock()

	var seen domain.Task
	_, err := s.UpdateMany(context.Background(), []string{"a"}, func(task *domain.Task) error {
		seen = task.Clone()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusSucceeded, seen.Status)
	assert.True(t, seen.Downloaded)
}

func TestUpdateManyNothingMatchedSkipsSave(t *testing.T) {
	s, backend := openStore(t, newTask("a", domain.TaskStatusRunning))

	updated, err := s.UpdateMany(context.Background(), []string{"gone"}, func(*domain.Task) error {
		t.Fatal("callback must not run for missing ids")
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, updated)
	assert.Empty(t, backend.saves)
}

func TestUpdateManyCallbackErrorAbortsBatch(t *testing.T) {
	s, backend := openStore(t,
		newTask("a", domain.TaskStatusRunning),
		newTask("b", domain.TaskStatusRunning),
	)

	_, err := s.UpdateMany(context.Background(), []string{"a", "b"}, func(task *domain.Task) error {
		if task.TaskID == "b" {
			return errors.New("bad merge")
		}
		task.Progress = 70
		return nil
	})
	require.Error(t, err)
	assert.Empty(t, backend.saves)

	got, err := s.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Progress)
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	var tasks []domain.Task
	for i := 0; i < 5; i++ {
		tasks = append(tasks, newTask(fmt.Sprintf("t%d", i), domain.TaskStatusRunning))
	}
	s, backend := openStore(t, tasks...)

	deleted, err := s.Delete(context.Background(), "t2")
	require.NoError(t, err)
	assert.True(t, deleted)

	saved := backend.last()
	require.Len(t, saved, 4)
	for _, task := range saved {
		assert.NotEqual(t, "t2", task.TaskID)
	}

	saves := len(backend.saves)
	deleted, err = s.Delete(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, backend.saves, saves, "deleting an unknown id must not persist")
	assert.Equal(t, 4, s.Len())
}

func TestOpenSkipsDuplicateRecords(t *testing.T) {
	s, _ := openStore(t,
		newTask("a", domain.TaskStatusRunning),
		newTask("a", domain.TaskStatusFailed),
		domain.Task{},
	)
	assert.Equal(t, 1, s.Len())
}

func TestReloadThroughFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video_tasks.json")
	backend, err := repo.NewTaskFileRepository(path, nil)
	require.NoError(t, err)

	s, err := Open(context.Background(), backend, nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Add(context.Background(), newTask(fmt.Sprintf("t%d", i), domain.TaskStatusSubmitted)))
	}
	before, err := s.List(context.Background(), domain.TaskFilter{})
	require.NoError(t, err)

	reopened, err := Open(context.Background(), backend, nil)
	require.NoError(t, err)
	after, err := reopened.List(context.Background(), domain.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStoresSharingOneFileKeepEachOthersWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video_tasks.json")
	open := func() *Store {
		backend, err := repo.NewTaskFileRepository(path, nil)
		require.NoError(t, err)
		s, err := Open(context.Background(), backend, nil)
		require.NoError(t, err)
		return s
	}
	api, worker := open(), open()
	ctx := context.Background()

	require.NoError(t, api.Add(ctx, newTask("from-api", domain.TaskStatusSubmitted)))
	require.NoError(t, worker.Add(ctx, newTask("from-cli", domain.TaskStatusSubmitted)))

	got, err := api.Get(ctx, "from-cli")
	require.NoError(t, err)
	assert.Equal(t, "from-cli", got.TaskID)

	_, err = worker.Update(ctx, "from-api", func(task *domain.Task) error {
		task.Status = domain.TaskStatusRunning
		return nil
	})
	require.NoError(t, err)

	deleted, err := api.Delete(ctx, "from-cli")
	require.NoError(t, err)
	assert.True(t, deleted)

	final, err := open().List(ctx, domain.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, final, 1)
	assert.Equal(t, "from-api", final[0].TaskID)
	assert.Equal(t, domain.TaskStatusRunning, final[0].Status, "the worker's update must survive the api's delete")
}
