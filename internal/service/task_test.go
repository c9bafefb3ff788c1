package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/data"
	"github.com/quillscore/quillscore-api/internal/domain/model"
	apperrors "github.com/quillscore/quillscore-api/internal/errors"
)

// fakeCache is an in-memory CacheRepository with error injection.
type fakeCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	snxErr  error
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		items: make(map[string][]byte),
		ttls:  make(map[string]time.Duration),
	}
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.items[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.items[key], nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, key)
	_, ok := c.items[key]
	delete(c.items, key)
	delete(c.ttls, key)
	return ok, nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok, nil
}

func (c *fakeCache) SetTTL(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return false, nil
	}
	c.ttls[key] = ttl
	return true, nil
}

func (c *fakeCache) SetIfNotExists(
	ctx context.Context,
	key string,
	value []byte,
	ttl time.Duration,
) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snxErr != nil {
		return false, c.snxErr
	}
	if _, ok := c.items[key]; ok {
		return false, nil
	}
	c.items[key] = value
	c.ttls[key] = ttl
	return true, nil
}

func (c *fakeCache) Health(ctx context.Context) error { return nil }

func (c *fakeCache) ttlFor(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttls[key]
}

var _ core.CacheRepository = (*fakeCache)(nil)

func sampleTasks() []*model.Task {
	return []*model.Task{
		{ID: "t1", TaskType: model.TaskTypeOne, Title: "Line Graph", MinWords: 150, IsActive: true},
		{ID: "t2", TaskType: model.TaskTypeTwo, Title: "Opinion Essay", MinWords: 250, IsActive: true},
	}
}

func TestNewTaskService(t *testing.T) {
	t.Run("creates service with valid options", func(t *testing.T) {
		svc, err := NewTaskService(TaskServiceOptions{Repo: &mockTaskStore{}})
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("returns error when repo is nil", func(t *testing.T) {
		_, err := NewTaskService(TaskServiceOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TaskStore is required")
	})
}

func TestTaskService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("returns repo results and caches them", func(t *testing.T) {
		repo := &mockTaskStore{}
		cache := newFakeCache()
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo, Cache: cache})
		require.NoError(t, err)

		tasks := sampleTasks()
		repo.On("List", mock.Anything, (*model.TaskType)(nil)).Return(tasks, nil).Once()

		got, err := svc.List(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		// Second read is served from the cache; the repo expectation above
		// only allows one call.
		again, err := svc.List(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, again, 2)
		assert.Equal(t, got[0].ID, again[0].ID)

		repo.AssertExpectations(t)
		assert.NotEmpty(t, cache.items["tasks:catalog:all"])
	})

	t.Run("filtered listings use a per-type cache key", func(t *testing.T) {
		repo := &mockTaskStore{}
		cache := newFakeCache()
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo, Cache: cache})
		require.NoError(t, err)

		taskType := model.TaskTypeOne
		repo.On("List", mock.Anything, &taskType).Return(sampleTasks()[:1], nil).Once()

		_, err = svc.List(ctx, &taskType)
		require.NoError(t, err)

		assert.NotEmpty(t, cache.items["tasks:catalog:IELTS_T1"])
		assert.Empty(t, cache.items["tasks:catalog:all"])
	})

	t.Run("cache read failure falls back to the repo", func(t *testing.T) {
		repo := &mockTaskStore{}
		cache := newFakeCache()
		cache.getErr = errors.New("redis down")
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo, Cache: cache})
		require.NoError(t, err)

		repo.On("List", mock.Anything, (*model.TaskType)(nil)).Return(sampleTasks(), nil)

		got, err := svc.List(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("corrupt cache entry falls back to the repo", func(t *testing.T) {
		repo := &mockTaskStore{}
		cache := newFakeCache()
		cache.items["tasks:catalog:all"] = []byte("{not json")
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo, Cache: cache})
		require.NoError(t, err)

		repo.On("List", mock.Anything, (*model.TaskType)(nil)).Return(sampleTasks(), nil)

		got, err := svc.List(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("works without a cache", func(t *testing.T) {
		repo := &mockTaskStore{}
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo})
		require.NoError(t, err)

		repo.On("List", mock.Anything, (*model.TaskType)(nil)).Return(sampleTasks(), nil)

		got, err := svc.List(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("wraps repo errors", func(t *testing.T) {
		repo := &mockTaskStore{}
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo})
		require.NoError(t, err)

		repo.On("List", mock.Anything, (*model.TaskType)(nil)).Return(nil, errors.New("db gone"))

		_, err = svc.List(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "list tasks")
	})
}

func TestTaskService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns an active task", func(t *testing.T) {
		repo := &mockTaskStore{}
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo})
		require.NoError(t, err)

		task := &model.Task{ID: "t1", Title: "Line Graph", IsActive: true}
		repo.On("GetByID", mock.Anything, "t1").Return(task, nil)

		got, err := svc.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "t1", got.ID)
	})

	t.Run("maps missing task to not found", func(t *testing.T) {
		repo := &mockTaskStore{}
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo})
		require.NoError(t, err)

		repo.On("GetByID", mock.Anything, "missing").Return(nil, data.ErrTaskNotFound)

		_, err = svc.Get(ctx, "missing")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("treats deactivated tasks as not found", func(t *testing.T) {
		repo := &mockTaskStore{}
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo})
		require.NoError(t, err)

		task := &model.Task{ID: "t1", Title: "Retired Prompt", IsActive: false}
		repo.On("GetByID", mock.Anything, "t1").Return(task, nil)

		_, err = svc.Get(ctx, "t1")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestTaskService_Random(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a random task", func(t *testing.T) {
		repo := &mockTaskStore{}
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo})
		require.NoError(t, err)

		task := sampleTasks()[1]
		taskType := model.TaskTypeTwo
		repo.On("Random", mock.Anything, &taskType).Return(task, nil)

		got, err := svc.Random(ctx, &taskType)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
	})

	t.Run("maps an empty catalog to not found", func(t *testing.T) {
		repo := &mockTaskStore{}
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo})
		require.NoError(t, err)

		repo.On("Random", mock.Anything, (*model.TaskType)(nil)).Return(nil, nil)

		_, err = svc.Random(ctx, nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestTaskService_Create(t *testing.T) {
	ctx := context.Background()

	validReq := func() *model.CreateTaskRequest {
		return &model.CreateTaskRequest{
			TaskType:      model.TaskTypeTwo,
			Title:         "New Prompt",
			Prompt:        "Discuss.",
			MinWords:      250,
			SuggestedTime: 40,
		}
	}

	t.Run("creates a task and invalidates cached listings", func(t *testing.T) {
		repo := &mockTaskStore{}
		cache := newFakeCache()
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo, Cache: cache})
		require.NoError(t, err)

		// Seed stale catalog entries that must be dropped.
		stale, err := json.Marshal(sampleTasks())
		require.NoError(t, err)
		cache.items["tasks:catalog:all"] = stale
		cache.items["tasks:catalog:IELTS_T2"] = stale

		created := &model.Task{ID: "t9", TaskType: model.TaskTypeTwo, Title: "New Prompt", IsActive: true}
		repo.On("Create", mock.Anything, mock.Anything).Return(created, nil)

		got, err := svc.Create(ctx, validReq())
		require.NoError(t, err)
		assert.Equal(t, "t9", got.ID)
		assert.Contains(t, cache.deleted, "tasks:catalog:all")
		assert.Contains(t, cache.deleted, "tasks:catalog:IELTS_T2")
	})

	t.Run("maps duplicate titles to conflict", func(t *testing.T) {
		repo := &mockTaskStore{}
		svc, err := NewTaskService(TaskServiceOptions{Repo: repo})
		require.NoError(t, err)

		repo.On("Create", mock.Anything, mock.Anything).Return(nil, data.ErrTaskTitleExists)

		_, err = svc.Create(ctx, validReq())
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})
}
