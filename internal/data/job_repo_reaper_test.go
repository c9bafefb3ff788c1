package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/domain/model"
	"github.com/quillscore/quillscore-api/internal/testutil"
)

// reaperRepo builds a JobRepo whose clock starts at now and can be advanced,
// so age cutoffs are exercised without sleeping or backdating rows.
func reaperRepo(db *sql.DB) (*JobRepo, *testutil.TestTimeProvider) {
	tp := testutil.NewTestTimeProvider(time.Now())
	repo := NewJobRepo(db, RepoConfig{TimeProvider: tp})
	return repo, tp
}

func TestJobRepo_FailStalePendingJobs(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("fails old pending jobs with their submissions", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Reaper Stale Pending")
			job := createPendingJob(t, db, task.ID, "user-1")

			repo, tp := reaperRepo(db)
			tp.AddTime(2 * time.Hour)

			failed, err := repo.FailStalePendingJobs(context.Background(), time.Hour, 100)
			require.NoError(t, err)
			assert.Equal(t, int64(1), failed)

			reaped, err := repo.GetByID(context.Background(), job.ID)
			require.NoError(t, err)
			assert.Equal(t, model.JobStatusFailed, reaped.Status)
			require.NotNil(t, reaped.LastError)
			assert.Contains(t, *reaped.LastError, "timed out")

			sub, err := NewSubmissionRepo(db, RepoConfig{}).GetByID(context.Background(), job.SubmissionID)
			require.NoError(t, err)
			assert.Equal(t, model.SubmissionStatusFailed, sub.Status)
			require.NotNil(t, sub.ErrorMessage)
			assert.Contains(t, *sub.ErrorMessage, "timed out")
		})
	})

	t.Run("leaves fresh pending jobs alone", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Reaper Fresh Pending")
			job := createPendingJob(t, db, task.ID, "user-1")

			repo, _ := reaperRepo(db)
			failed, err := repo.FailStalePendingJobs(context.Background(), time.Hour, 100)
			require.NoError(t, err)
			assert.Zero(t, failed)

			kept, err := repo.GetByID(context.Background(), job.ID)
			require.NoError(t, err)
			assert.Equal(t, model.JobStatusPending, kept.Status)
		})
	})

	t.Run("respects batch size", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Reaper Batch")
			createPendingJob(t, db, task.ID, "user-1")
			createPendingJob(t, db, task.ID, "user-2")
			createPendingJob(t, db, task.ID, "user-3")

			repo, tp := reaperRepo(db)
			tp.AddTime(2 * time.Hour)

			failed, err := repo.FailStalePendingJobs(context.Background(), time.Hour, 2)
			require.NoError(t, err)
			assert.Equal(t, int64(2), failed)

			failed, err = repo.FailStalePendingJobs(context.Background(), time.Hour, 2)
			require.NoError(t, err)
			assert.Equal(t, int64(1), failed)
		})
	})
}

func TestJobRepo_RecoverStuckJobs(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("requeues stuck job with attempts remaining", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Reaper Requeue Stuck")
			createPendingJob(t, db, task.ID, "user-1")

			repo, tp := reaperRepo(db)
			job, err := repo.TryClaimNext(context.Background(), model.JobTypeEvaluate, "worker-dead")
			require.NoError(t, err)
			require.Equal(t, 1, job.Attempts)

			tp.AddTime(10 * time.Minute)

			recovered, err := repo.RecoverStuckJobs(context.Background(), core.RecoverStuckJobsParams{
				LockTimeout: 5 * time.Minute,
				MaxAttempts: 2,
				BatchSize:   100,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), recovered)

			requeued, err := repo.GetByID(context.Background(), job.ID)
			require.NoError(t, err)
			assert.Equal(t, model.JobStatusPending, requeued.Status)
			assert.Nil(t, requeued.LockedAt)
			assert.Nil(t, requeued.LockedBy)
			assert.Equal(t, 1, requeued.Attempts)

			// Immediately claimable again by a healthy worker.
			reclaimed, err := repo.TryClaimNext(context.Background(), model.JobTypeEvaluate, "worker-live")
			require.NoError(t, err)
			assert.Equal(t, job.ID, reclaimed.ID)
			assert.Equal(t, 2, reclaimed.Attempts)
		})
	})

	t.Run("fails stuck job with attempts exhausted", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Reaper Fail Stuck")
			createPendingJob(t, db, task.ID, "user-1")

			repo, tp := reaperRepo(db)
			job, err := repo.TryClaimNext(context.Background(), model.JobTypeEvaluate, "worker-dead")
			require.NoError(t, err)

			tp.AddTime(10 * time.Minute)

			recovered, err := repo.RecoverStuckJobs(context.Background(), core.RecoverStuckJobsParams{
				LockTimeout: 5 * time.Minute,
				MaxAttempts: 1,
				BatchSize:   100,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), recovered)

			failed, err := repo.GetByID(context.Background(), job.ID)
			require.NoError(t, err)
			assert.Equal(t, model.JobStatusFailed, failed.Status)
			require.NotNil(t, failed.LastError)
			assert.Contains(t, *failed.LastError, "lock expired")

			sub, err := NewSubmissionRepo(db, RepoConfig{}).GetByID(context.Background(), job.SubmissionID)
			require.NoError(t, err)
			assert.Equal(t, model.SubmissionStatusFailed, sub.Status)
		})
	})

	t.Run("leaves healthy locks alone", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Reaper Healthy Lock")
			createPendingJob(t, db, task.ID, "user-1")

			repo, _ := reaperRepo(db)
			job, err := repo.TryClaimNext(context.Background(), model.JobTypeEvaluate, "worker-1")
			require.NoError(t, err)

			recovered, err := repo.RecoverStuckJobs(context.Background(), core.RecoverStuckJobsParams{
				LockTimeout: 5 * time.Minute,
				MaxAttempts: 2,
				BatchSize:   100,
			})
			require.NoError(t, err)
			assert.Zero(t, recovered)

			still, err := repo.GetByID(context.Background(), job.ID)
			require.NoError(t, err)
			assert.Equal(t, model.JobStatusRunning, still.Status)
		})
	})

	t.Run("parameter validation", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})

			_, err := repo.RecoverStuckJobs(context.Background(), core.RecoverStuckJobsParams{
				MaxAttempts: 2, BatchSize: 10,
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "lock timeout")

			_, err = repo.RecoverStuckJobs(context.Background(), core.RecoverStuckJobsParams{
				LockTimeout: time.Minute, BatchSize: 10,
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "max attempts")

			_, err = repo.RecoverStuckJobs(context.Background(), core.RecoverStuckJobsParams{
				LockTimeout: time.Minute, MaxAttempts: 2,
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "batch size")
		})
	})
}

func TestJobRepo_DeleteOldJobs(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("deletes old terminal jobs", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Reaper Delete Old")
			createPendingJob(t, db, task.ID, "user-1")

			repo, tp := reaperRepo(db)
			job, err := repo.TryClaimNext(context.Background(), model.JobTypeEvaluate, "worker-1")
			require.NoError(t, err)
			_, err = repo.FailPermanent(context.Background(), core.FailPermanentParams{
				Claim:  claimOf(job, "worker-1"),
				ErrMsg: "terminal",
			})
			require.NoError(t, err)

			tp.AddTime(48 * time.Hour)

			deleted, err := repo.DeleteOldJobs(context.Background(), core.DeleteOldJobsParams{
				Status:    model.JobStatusFailed,
				MaxAge:    24 * time.Hour,
				BatchSize: 100,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)

			_, err = repo.GetByID(context.Background(), job.ID)
			assert.ErrorIs(t, err, ErrJobNotFound)
		})
	})

	t.Run("keeps recent terminal jobs", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Reaper Keep Recent")
			createPendingJob(t, db, task.ID, "user-1")

			repo, _ := reaperRepo(db)
			job, err := repo.TryClaimNext(context.Background(), model.JobTypeEvaluate, "worker-1")
			require.NoError(t, err)
			_, err = repo.FailPermanent(context.Background(), core.FailPermanentParams{
				Claim:  claimOf(job, "worker-1"),
				ErrMsg: "terminal",
			})
			require.NoError(t, err)

			deleted, err := repo.DeleteOldJobs(context.Background(), core.DeleteOldJobsParams{
				Status:    model.JobStatusFailed,
				MaxAge:    24 * time.Hour,
				BatchSize: 100,
			})
			require.NoError(t, err)
			assert.Zero(t, deleted)
		})
	})

	t.Run("rejects non-terminal status", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})

			_, err := repo.DeleteOldJobs(context.Background(), core.DeleteOldJobsParams{
				Status:    model.JobStatusRunning,
				MaxAge:    time.Hour,
				BatchSize: 10,
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not terminal")

			_, err = repo.DeleteOldJobs(context.Background(), core.DeleteOldJobsParams{
				Status:    "bogus",
				MaxAge:    time.Hour,
				BatchSize: 10,
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid job status")
		})
	})
}

func TestJobRepo_DeleteAbandonedDrafts(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("deletes stale drafts only", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Reaper Drafts")
			subRepo := NewSubmissionRepo(db, RepoConfig{})

			draft, err := subRepo.UpsertDraft(context.Background(),
				testutil.NewDraftRequest().WithTask(task.ID).WithUser("user-draft").Build())
			require.NoError(t, err)
			queued := enqueueTestSubmission(t, db, task.ID, "user-queued")

			repo, tp := reaperRepo(db)
			tp.AddTime(30 * 24 * time.Hour)

			deleted, err := repo.DeleteAbandonedDrafts(context.Background(), 7*24*time.Hour, 100)
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)

			_, err = subRepo.GetByID(context.Background(), draft.ID)
			assert.ErrorIs(t, err, ErrSubmissionNotFound)

			_, err = subRepo.GetByID(context.Background(), queued.ID)
			assert.NoError(t, err)
		})
	})

	t.Run("keeps recently touched drafts", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Reaper Fresh Draft")
			subRepo := NewSubmissionRepo(db, RepoConfig{})

			_, err := subRepo.UpsertDraft(context.Background(),
				testutil.NewDraftRequest().WithTask(task.ID).Build())
			require.NoError(t, err)

			repo, _ := reaperRepo(db)
			deleted, err := repo.DeleteAbandonedDrafts(context.Background(), 7*24*time.Hour, 100)
			require.NoError(t, err)
			assert.Zero(t, deleted)
		})
	})

	t.Run("parameter validation", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})

			_, err := repo.DeleteAbandonedDrafts(context.Background(), 0, 100)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "max age")

			_, err = repo.DeleteAbandonedDrafts(context.Background(), time.Hour, 0)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "batch size")
		})
	})
}
