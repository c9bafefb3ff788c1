// Package mocks provides mock implementations for testing the quillscore scoring pipeline.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockStore := mocks.NewMockTaskStore(ctrl)
//	mockStore.EXPECT().GetByTitle(gomock.Any(), gomock.Any()).Return(task, nil)
package mocks

// Generate mock for JobStore interface from internal/core package.
// This creates MockJobStore with methods for all JobStore interface methods:
// Create, GetByID, LatestForSubmission, TryClaimNext, BeginProcessing,
// CompleteSuccess, RescheduleTransient, FailPermanent, Stats
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_store_mock.go github.com/quillscore/quillscore-api/internal/core JobStore

// Generate mock for TaskStore interface from internal/core package.
// This creates MockTaskStore with methods for all TaskStore interface methods:
// Create, GetByID, GetByTitle, List, Random
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=task_store_mock.go github.com/quillscore/quillscore-api/internal/core TaskStore

// Generate mock for SubmissionStore interface from internal/core package.
// This creates MockSubmissionStore with methods for all SubmissionStore interface methods:
// GetByID, GetForUser, UpsertDraft, FindRecentActive, Enqueue, Requeue, ListForUser
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=submission_store_mock.go github.com/quillscore/quillscore-api/internal/core SubmissionStore

// Generate mock for ResultStore interface from internal/core package.
// This creates MockResultStore with methods for all ResultStore interface methods:
// GetBySubmissionID
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=result_store_mock.go github.com/quillscore/quillscore-api/internal/core ResultStore

// Generate mock for Scorer interface from internal/core package.
// This creates MockScorer with methods for all Scorer interface methods:
// Name, Score
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=scorer_mock.go github.com/quillscore/quillscore-api/internal/core Scorer

// Generate mock for CacheRepository interface from internal/core package.
// This creates MockCacheRepository with methods for all CacheRepository interface methods:
// Set, Get, Delete, Exists, SetTTL, SetIfNotExists, Health
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_repository_mock.go github.com/quillscore/quillscore-api/internal/core CacheRepository

// Generate mock for ReaperRepository interface from internal/core package.
// This creates MockReaperRepository with methods for all ReaperRepository interface methods:
// FailStalePendingJobs, RecoverStuckJobs, DeleteOldJobs, DeleteAbandonedDrafts
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=reaper_repository_mock.go github.com/quillscore/quillscore-api/internal/core ReaperRepository
