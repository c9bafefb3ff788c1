package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/data"
	"github.com/quillscore/quillscore-api/internal/domain/model"
	apperrors "github.com/quillscore/quillscore-api/internal/errors"
)

const defaultTaskCacheTTL = 5 * time.Minute

// TaskServiceOptions groups dependencies for TaskService.
type TaskServiceOptions struct {
	Repo     core.TaskStore       // Required: task catalog repository
	Cache    core.CacheRepository // Optional: catalog read cache
	CacheTTL time.Duration        // Optional: catalog cache TTL, defaults to 5 minutes
	Logger   *slog.Logger         // Optional: structured logger
}

// TaskService serves the writing task catalog. Reads go through an optional
// Redis cache; the service stays fully functional without one.
type TaskService struct {
	repo   core.TaskStore
	cache  core.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewTaskService constructs a new TaskService.
func NewTaskService(opts TaskServiceOptions) (*TaskService, error) {
	if opts.Repo == nil {
		return nil, errors.New("TaskStore is required")
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultTaskCacheTTL
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "task_service")
	}

	return &TaskService{
		repo:   opts.Repo,
		cache:  opts.Cache,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// MustNewTaskService constructs a TaskService and panics on error.
// Use only during startup wiring where a failure is unrecoverable.
func MustNewTaskService(opts TaskServiceOptions) *TaskService {
	svc, err := NewTaskService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create TaskService: %v", err))
	}
	return svc
}

// List returns the active catalog, optionally filtered by task type.
func (s *TaskService) List(ctx context.Context, taskType *model.TaskType) ([]*model.Task, error) {
	key := taskCatalogCacheKey(taskType)
	if tasks, ok := s.cachedCatalog(ctx, key); ok {
		return tasks, nil
	}

	tasks, err := s.repo.List(ctx, taskType)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	s.storeCatalog(ctx, key, tasks)
	return tasks, nil
}

// Get returns one task by id. Deactivated tasks stay loadable through the
// store for in-flight evaluations but are invisible through the catalog, so
// they surface here as not found.
func (s *TaskService) Get(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrTaskNotFound) {
			return nil, apperrors.NotFoundResource("task")
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	if !task.IsActive {
		return nil, apperrors.NotFoundResource("task")
	}
	return task, nil
}

// Random returns one active task chosen uniformly, optionally filtered by
// task type. An empty catalog surfaces as not found.
func (s *TaskService) Random(ctx context.Context, taskType *model.TaskType) (*model.Task, error) {
	task, err := s.repo.Random(ctx, taskType)
	if err != nil {
		return nil, fmt.Errorf("pick random task: %w", err)
	}
	if task == nil {
		return nil, apperrors.NotFoundResource("task")
	}
	return task, nil
}

// Create adds a task to the catalog and invalidates the cached listings.
// Used by the seeder and the admin CLI.
func (s *TaskService) Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error) {
	task, err := s.repo.Create(ctx, req)
	if err != nil {
		if errors.Is(err, data.ErrTaskTitleExists) {
			return nil, apperrors.Conflict("a task with this title already exists")
		}
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.invalidateCatalog(ctx, task.TaskType)
	return task, nil
}

func taskCatalogCacheKey(taskType *model.TaskType) string {
	if taskType == nil {
		return "tasks:catalog:all"
	}
	return "tasks:catalog:" + string(*taskType)
}

// cachedCatalog reads a catalog listing from the cache. Cache failures are
// logged and treated as misses so Redis outages never block reads.
func (s *TaskService) cachedCatalog(ctx context.Context, key string) ([]*model.Task, bool) {
	if s.cache == nil {
		return nil, false
	}

	b, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logWarn(ctx, "task catalog cache read failed", "key", key, "error", err)
		return nil, false
	}
	if len(b) == 0 {
		return nil, false
	}

	var tasks []*model.Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		s.logWarn(ctx, "task catalog cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return tasks, true
}

func (s *TaskService) storeCatalog(ctx context.Context, key string, tasks []*model.Task) {
	if s.cache == nil {
		return
	}

	b, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
		s.logWarn(ctx, "task catalog cache write failed", "key", key, "error", err)
	}
}

func (s *TaskService) invalidateCatalog(ctx context.Context, taskType model.TaskType) {
	if s.cache == nil {
		return
	}

	keys := []string{taskCatalogCacheKey(nil), taskCatalogCacheKey(&taskType)}
	for _, key := range keys {
		if _, err := s.cache.Delete(ctx, key); err != nil {
			s.logWarn(ctx, "task catalog cache invalidation failed", "key", key, "error", err)
		}
	}
}

func (s *TaskService) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.WarnContext(ctx, msg, args...)
}
