package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/quillscore/quillscore-api/config"
	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockReaperRepo is a simple mock implementation for testing.
type mockReaperRepo struct {
	failStalePendingJobsCalled int
	failStalePendingJobsCount  int64
	failStalePendingJobsError  error

	recoverStuckJobsCalled int
	recoverStuckJobsCount  int64
	recoverStuckJobsError  error
	recoverStuckJobsParams core.RecoverStuckJobsParams

	deleteOldJobsCalled   int
	deleteOldJobsCount    int64
	deleteOldJobsError    error
	deleteOldJobsStatuses []model.JobStatus

	deleteAbandonedDraftsCalled int
	deleteAbandonedDraftsCount  int64
	deleteAbandonedDraftsError  error
}

func (m *mockReaperRepo) FailStalePendingJobs(
	ctx context.Context,
	maxAge time.Duration,
	batchSize int,
) (int64, error) {
	m.failStalePendingJobsCalled++
	if m.failStalePendingJobsError != nil {
		return 0, m.failStalePendingJobsError
	}
	// Return count on first call, then 0 to simulate batch exhaustion
	if m.failStalePendingJobsCalled == 1 {
		return m.failStalePendingJobsCount, nil
	}
	return 0, nil
}

func (m *mockReaperRepo) RecoverStuckJobs(
	ctx context.Context,
	params core.RecoverStuckJobsParams,
) (int64, error) {
	m.recoverStuckJobsCalled++
	m.recoverStuckJobsParams = params
	if m.recoverStuckJobsError != nil {
		return 0, m.recoverStuckJobsError
	}
	// Return count on first call, then 0 to simulate batch exhaustion
	if m.recoverStuckJobsCalled == 1 {
		return m.recoverStuckJobsCount, nil
	}
	return 0, nil
}

func (m *mockReaperRepo) DeleteOldJobs(
	ctx context.Context,
	params core.DeleteOldJobsParams,
) (int64, error) {
	m.deleteOldJobsCalled++
	m.deleteOldJobsStatuses = append(m.deleteOldJobsStatuses, params.Status)
	if m.deleteOldJobsError != nil {
		return 0, m.deleteOldJobsError
	}
	// Return count on odd calls (1st, 3rd, 5th...), then 0 on even calls to simulate batch exhaustion
	// This allows multiple cleanup operations (done, failed) to each get their batch
	if m.deleteOldJobsCalled%2 == 1 {
		return m.deleteOldJobsCount, nil
	}
	return 0, nil
}

func (m *mockReaperRepo) DeleteAbandonedDrafts(
	ctx context.Context,
	maxAge time.Duration,
	batchSize int,
) (int64, error) {
	m.deleteAbandonedDraftsCalled++
	if m.deleteAbandonedDraftsError != nil {
		return 0, m.deleteAbandonedDraftsError
	}
	// Return count on first call, then 0 to simulate batch exhaustion
	if m.deleteAbandonedDraftsCalled == 1 {
		return m.deleteAbandonedDraftsCount, nil
	}
	return 0, nil
}

func testReaperConfig() config.ReaperConfig {
	return config.ReaperConfig{
		Interval:      5 * time.Minute,
		PendingMaxAge: 1 * time.Hour,
		LockTimeout:   10 * time.Minute,
		DoneMaxAge:    7 * 24 * time.Hour,
		FailedMaxAge:  7 * 24 * time.Hour,
		DraftMaxAge:   30 * 24 * time.Hour,
		BatchSize:     1000,
	}
}

func TestNewReaperService(t *testing.T) {
	t.Run("creates service with valid options", func(t *testing.T) {
		repo := &mockReaperRepo{}

		svc, err := NewReaperService(ReaperServiceOptions{
			Repo:   repo,
			Config: testReaperConfig(),
			Logger: slog.Default(),
		})

		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("returns error when repo is nil", func(t *testing.T) {
		_, err := NewReaperService(ReaperServiceOptions{
			Repo:   nil,
			Config: testReaperConfig(),
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "ReaperRepository is required")
	})

	t.Run("defaults max attempts when unset", func(t *testing.T) {
		repo := &mockReaperRepo{}

		svc, err := NewReaperService(ReaperServiceOptions{
			Repo:   repo,
			Config: testReaperConfig(),
		})

		require.NoError(t, err)
		assert.Equal(t, defaultReaperMaxAttempts, svc.maxAttempts)
	})
}

func TestReaperService_runCleanup(t *testing.T) {
	t.Run("runs all cleanup operations successfully", func(t *testing.T) {
		repo := &mockReaperRepo{
			failStalePendingJobsCount:  5,
			recoverStuckJobsCount:      2,
			deleteOldJobsCount:         10,
			deleteAbandonedDraftsCount: 3,
		}

		svc := MustNewReaperService(ReaperServiceOptions{
			Repo:   repo,
			Config: testReaperConfig(),
		})

		ctx := context.Background()
		err := svc.runCleanup(ctx)

		require.NoError(t, err)
		// Each operation is called twice: once returning count, once returning 0
		assert.Equal(t, 2, repo.failStalePendingJobsCalled)
		assert.Equal(t, 2, repo.recoverStuckJobsCalled)
		// DeleteOldJobs is called twice per status (done, failed): 2 * 2 = 4
		assert.Equal(t, 4, repo.deleteOldJobsCalled)
		assert.Equal(t, 2, repo.deleteAbandonedDraftsCalled)
	})

	t.Run("deletes both done and failed jobs", func(t *testing.T) {
		repo := &mockReaperRepo{deleteOldJobsCount: 1}

		svc := MustNewReaperService(ReaperServiceOptions{
			Repo:   repo,
			Config: testReaperConfig(),
		})

		err := svc.runCleanup(context.Background())

		require.NoError(t, err)
		assert.Contains(t, repo.deleteOldJobsStatuses, model.JobStatusDone)
		assert.Contains(t, repo.deleteOldJobsStatuses, model.JobStatusFailed)
	})

	t.Run("continues on partial errors", func(t *testing.T) {
		repo := &mockReaperRepo{
			failStalePendingJobsError:  errors.New("fail error"),
			recoverStuckJobsCount:      1,
			deleteOldJobsCount:         10,
			deleteAbandonedDraftsCount: 1,
		}

		svc := MustNewReaperService(ReaperServiceOptions{
			Repo:   repo,
			Config: testReaperConfig(),
		})

		ctx := context.Background()
		err := svc.runCleanup(ctx)

		// Should return error but still call all cleanup methods
		require.Error(t, err)
		// FailStalePendingJobs called once (returns error immediately)
		assert.Equal(t, 1, repo.failStalePendingJobsCalled)
		assert.Equal(t, 2, repo.recoverStuckJobsCalled)
		// DeleteOldJobs called twice per status (done, failed): 2 * 2 = 4
		assert.Equal(t, 4, repo.deleteOldJobsCalled)
		assert.Equal(t, 2, repo.deleteAbandonedDraftsCalled)
	})
}

func TestReaperService_Run(t *testing.T) {
	t.Run("stops on context cancellation", func(t *testing.T) {
		repo := &mockReaperRepo{}
		cfg := testReaperConfig()
		cfg.Interval = 100 * time.Millisecond

		svc := MustNewReaperService(ReaperServiceOptions{
			Repo:   repo,
			Config: cfg,
		})

		ctx, cancel := context.WithCancel(context.Background())

		// Run in goroutine
		done := make(chan error, 1)
		go func() {
			done <- svc.Run(ctx)
		}()

		// Wait a bit to ensure at least one cleanup runs
		time.Sleep(150 * time.Millisecond)

		// Cancel context
		cancel()

		// Wait for Run to return
		select {
		case err := <-done:
			// Should return nil on graceful shutdown
			require.NoError(t, err)
		case <-time.After(1 * time.Second):
			t.Fatal("Run did not stop after context cancellation")
		}

		// Verify cleanup was called at least once (initial + maybe one tick)
		assert.GreaterOrEqual(t, repo.failStalePendingJobsCalled, 1)
	})

	t.Run("continues running despite cleanup errors", func(t *testing.T) {
		repo := &mockReaperRepo{
			failStalePendingJobsError: errors.New("test error"),
		}
		cfg := testReaperConfig()
		cfg.Interval = 50 * time.Millisecond

		svc := MustNewReaperService(ReaperServiceOptions{
			Repo:   repo,
			Config: cfg,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		err := svc.Run(ctx)

		// Should return context deadline exceeded, not the cleanup error
		require.Error(t, err)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		// Verify cleanup was called multiple times despite errors
		assert.GreaterOrEqual(t, repo.failStalePendingJobsCalled, 2)
	})
}

func TestReaperService_failStalePendingJobs(t *testing.T) {
	t.Run("calls repo with correct max age", func(t *testing.T) {
		repo := &mockReaperRepo{
			failStalePendingJobsCount: 3,
		}
		cfg := testReaperConfig()
		cfg.PendingMaxAge = 2 * time.Hour

		svc := MustNewReaperService(ReaperServiceOptions{
			Repo:   repo,
			Config: cfg,
		})

		ctx := context.Background()
		count, err := svc.failStalePendingJobs(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		// Called twice: once returning count, once returning 0
		assert.Equal(t, 2, repo.failStalePendingJobsCalled)
	})
}

func TestReaperService_recoverStuckJobs(t *testing.T) {
	t.Run("passes lock timeout and attempt limit", func(t *testing.T) {
		repo := &mockReaperRepo{
			recoverStuckJobsCount: 4,
		}
		cfg := testReaperConfig()
		cfg.LockTimeout = 15 * time.Minute

		svc := MustNewReaperService(ReaperServiceOptions{
			Repo:        repo,
			Config:      cfg,
			MaxAttempts: 3,
		})

		ctx := context.Background()
		count, err := svc.recoverStuckJobs(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
		assert.Equal(t, 15*time.Minute, repo.recoverStuckJobsParams.LockTimeout)
		assert.Equal(t, 3, repo.recoverStuckJobsParams.MaxAttempts)
		assert.Equal(t, cfg.BatchSize, repo.recoverStuckJobsParams.BatchSize)
	})

	t.Run("uses default attempt limit when unset", func(t *testing.T) {
		repo := &mockReaperRepo{}

		svc := MustNewReaperService(ReaperServiceOptions{
			Repo:   repo,
			Config: testReaperConfig(),
		})

		_, err := svc.recoverStuckJobs(context.Background())

		require.NoError(t, err)
		assert.Equal(t, defaultReaperMaxAttempts, repo.recoverStuckJobsParams.MaxAttempts)
	})
}

func TestReaperService_deleteOldDoneJobs(t *testing.T) {
	t.Run("calls repo with correct status and max age", func(t *testing.T) {
		repo := &mockReaperRepo{
			deleteOldJobsCount: 5,
		}

		svc := MustNewReaperService(ReaperServiceOptions{
			Repo:   repo,
			Config: testReaperConfig(),
		})

		ctx := context.Background()
		count, err := svc.deleteOldDoneJobs(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
		assert.Equal(t, model.JobStatusDone, repo.deleteOldJobsStatuses[0])
		// Called twice: once returning count, once returning 0
		assert.Equal(t, 2, repo.deleteOldJobsCalled)
	})
}

func TestReaperService_deleteOldFailedJobs(t *testing.T) {
	t.Run("calls repo with correct status and max age", func(t *testing.T) {
		repo := &mockReaperRepo{
			deleteOldJobsCount: 8,
		}

		svc := MustNewReaperService(ReaperServiceOptions{
			Repo:   repo,
			Config: testReaperConfig(),
		})

		ctx := context.Background()
		count, err := svc.deleteOldFailedJobs(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(8), count)
		assert.Equal(t, model.JobStatusFailed, repo.deleteOldJobsStatuses[0])
		// Called twice: once returning count, once returning 0
		assert.Equal(t, 2, repo.deleteOldJobsCalled)
	})
}

func TestReaperService_deleteAbandonedDrafts(t *testing.T) {
	t.Run("calls repo until batches drain", func(t *testing.T) {
		repo := &mockReaperRepo{
			deleteAbandonedDraftsCount: 6,
		}

		svc := MustNewReaperService(ReaperServiceOptions{
			Repo:   repo,
			Config: testReaperConfig(),
		})

		ctx := context.Background()
		count, err := svc.deleteAbandonedDrafts(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(6), count)
		// Called twice: once returning count, once returning 0
		assert.Equal(t, 2, repo.deleteAbandonedDraftsCalled)
	})
}
