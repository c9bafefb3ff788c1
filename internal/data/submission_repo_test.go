package data

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/domain/model"
	"github.com/quillscore/quillscore-api/internal/testutil"
)

func TestSubmissionRepo_UpsertDraft(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("creates a new draft", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Draft Create")
			repo := NewSubmissionRepo(db, RepoConfig{})

			draft, err := repo.UpsertDraft(context.Background(),
				testutil.NewDraftRequest().WithTask(task.ID).Build())
			require.NoError(t, err)

			assert.NotEmpty(t, draft.ID)
			assert.Equal(t, model.SubmissionStatusDraft, draft.Status)
			assert.Equal(t, "user-1", draft.UserID)
			assert.Equal(t, task.ID, draft.TaskID)
			assert.Equal(t, 260, draft.WordCount)
			assert.Nil(t, draft.SubmittedAt)
		})
	})

	t.Run("saving again replaces text but keeps identity", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Draft Replace")
			repo := NewSubmissionRepo(db, RepoConfig{})

			first, err := repo.UpsertDraft(context.Background(),
				testutil.NewDraftRequest().WithTask(task.ID).Build())
			require.NoError(t, err)

			second, err := repo.UpsertDraft(context.Background(),
				testutil.NewDraftRequest().WithTask(task.ID).WithEssay(testutil.EssayOfWords(120)).Build())
			require.NoError(t, err)

			assert.Equal(t, first.ID, second.ID)
			assert.Equal(t, 120, second.WordCount)
		})
	})

	t.Run("drafts for different tasks coexist", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			taskA := createTestTask(t, db, "Draft Task A")
			taskB := createTestTask(t, db, "Draft Task B")
			repo := NewSubmissionRepo(db, RepoConfig{})

			a, err := repo.UpsertDraft(context.Background(),
				testutil.NewDraftRequest().WithTask(taskA.ID).Build())
			require.NoError(t, err)
			b, err := repo.UpsertDraft(context.Background(),
				testutil.NewDraftRequest().WithTask(taskB.ID).Build())
			require.NoError(t, err)

			assert.NotEqual(t, a.ID, b.ID)
		})
	})

	t.Run("nil request", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewSubmissionRepo(db, RepoConfig{})
			_, err := repo.UpsertDraft(context.Background(), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "save draft request is required")
		})
	})
}

func TestSubmissionRepo_GetForUser(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		task := createTestTask(t, db, "Get For User")
		sub := enqueueTestSubmission(t, db, task.ID, "owner")
		repo := NewSubmissionRepo(db, RepoConfig{})

		found, err := repo.GetForUser(context.Background(), sub.ID, "owner")
		require.NoError(t, err)
		assert.Equal(t, sub.ID, found.ID)

		// Another user's submission is indistinguishable from a missing one.
		_, err = repo.GetForUser(context.Background(), sub.ID, "stranger")
		assert.ErrorIs(t, err, ErrSubmissionNotFound)

		_, err = repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrSubmissionNotFound)
	})
}

func TestSubmissionRepo_FindRecentActive(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("finds queued submission inside window", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Dedup Hit")
			repo := NewSubmissionRepo(db, RepoConfig{})

			sub, err := repo.Enqueue(context.Background(),
				testutil.NewEnqueueRequest().WithTask(task.ID).WithSubmittedAt(time.Now()).Build(),
				noopAttach)
			require.NoError(t, err)

			dup, err := repo.FindRecentActive(context.Background(), core.DuplicateLookupParams{
				UserID: "user-1",
				TaskID: task.ID,
				Since:  time.Now().Add(-time.Minute),
			})
			require.NoError(t, err)
			require.NotNil(t, dup)
			assert.Equal(t, sub.ID, dup.ID)
		})
	})

	t.Run("ignores submissions outside window or wrong owner", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Dedup Miss")
			repo := NewSubmissionRepo(db, RepoConfig{})

			_, err := repo.Enqueue(context.Background(),
				testutil.NewEnqueueRequest().WithTask(task.ID).WithSubmittedAt(time.Now()).Build(),
				noopAttach)
			require.NoError(t, err)

			dup, err := repo.FindRecentActive(context.Background(), core.DuplicateLookupParams{
				UserID: "user-1",
				TaskID: task.ID,
				Since:  time.Now().Add(time.Minute),
			})
			require.NoError(t, err)
			assert.Nil(t, dup)

			dup, err = repo.FindRecentActive(context.Background(), core.DuplicateLookupParams{
				UserID: "someone-else",
				TaskID: task.ID,
				Since:  time.Now().Add(-time.Minute),
			})
			require.NoError(t, err)
			assert.Nil(t, dup)
		})
	})
}

func TestSubmissionRepo_Enqueue(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("consumes existing draft in place", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Enqueue Draft")
			repo := NewSubmissionRepo(db, RepoConfig{})

			draft, err := repo.UpsertDraft(context.Background(),
				testutil.NewDraftRequest().WithTask(task.ID).Build())
			require.NoError(t, err)

			sub, err := repo.Enqueue(context.Background(),
				testutil.NewEnqueueRequest().WithTask(task.ID).Build(),
				noopAttach)
			require.NoError(t, err)

			assert.Equal(t, draft.ID, sub.ID)
			assert.Equal(t, model.SubmissionStatusQueued, sub.Status)
			assert.NotNil(t, sub.SubmittedAt)
		})
	})

	t.Run("creates queued submission when no draft exists", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Enqueue Direct")
			repo := NewSubmissionRepo(db, RepoConfig{})

			sub, err := repo.Enqueue(context.Background(),
				testutil.NewEnqueueRequest().WithTask(task.ID).Build(),
				noopAttach)
			require.NoError(t, err)

			assert.Equal(t, model.SubmissionStatusQueued, sub.Status)
			assert.NotNil(t, sub.SubmittedAt)
		})
	})

	t.Run("attach runs in the same transaction", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Enqueue Attach")
			repo := NewSubmissionRepo(db, RepoConfig{})
			jobRepo := NewJobRepo(db, RepoConfig{})

			sub, err := repo.Enqueue(context.Background(),
				testutil.NewEnqueueRequest().WithTask(task.ID).Build(),
				func(ctx context.Context, tx *sql.Tx, s *model.Submission) error {
					_, jobErr := jobRepo.CreateInTx(ctx, tx,
						testutil.NewJobRequest().WithSubmission(s.ID).Build())
					return jobErr
				})
			require.NoError(t, err)

			job, err := jobRepo.LatestForSubmission(context.Background(), sub.ID)
			require.NoError(t, err)
			require.NotNil(t, job)
			assert.Equal(t, model.JobStatusPending, job.Status)
		})
	})

	t.Run("attach failure rolls back the submission", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Enqueue Rollback")
			repo := NewSubmissionRepo(db, RepoConfig{})

			_, err := repo.Enqueue(context.Background(),
				testutil.NewEnqueueRequest().WithTask(task.ID).WithUser("rollback-user").Build(),
				func(context.Context, *sql.Tx, *model.Submission) error {
					return errors.New("attach exploded")
				})
			require.Error(t, err)

			var count int
			require.NoError(t, db.QueryRowContext(context.Background(),
				`SELECT count(*) FROM submissions WHERE user_id = 'rollback-user'`).Scan(&count))
			assert.Zero(t, count)
		})
	})

	t.Run("input validation", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewSubmissionRepo(db, RepoConfig{})

			_, err := repo.Enqueue(context.Background(), nil, noopAttach)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "enqueue submission request is required")

			_, err = repo.Enqueue(context.Background(), testutil.NewEnqueueRequest().Build(), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "attach job callback is required")
		})
	})
}

func TestSubmissionRepo_Requeue(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	// failSubmission drives a fresh submission to failed through the queue.
	failSubmission := func(t *testing.T, db *sql.DB, taskID, userID string) *model.Submission {
		t.Helper()
		sub := enqueueTestSubmission(t, db, taskID, userID)
		jobRepo := NewJobRepo(db, RepoConfig{})
		_, err := jobRepo.Create(context.Background(),
			testutil.NewJobRequest().WithSubmission(sub.ID).Build())
		require.NoError(t, err)
		job, err := jobRepo.TryClaimNext(context.Background(), model.JobTypeEvaluate, "worker-1")
		require.NoError(t, err)
		_, err = jobRepo.FailPermanent(context.Background(), core.FailPermanentParams{
			Claim:  claimOf(job, "worker-1"),
			ErrMsg: "permanent",
		})
		require.NoError(t, err)
		return sub
	}

	t.Run("requeues a failed submission and attaches a job", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Requeue Failed")
			sub := failSubmission(t, db, task.ID, "user-1")

			repo := NewSubmissionRepo(db, RepoConfig{})
			jobRepo := NewJobRepo(db, RepoConfig{})

			requeued, err := repo.Requeue(context.Background(), core.RequeueParams{
				SubmissionID: sub.ID,
				UserID:       "user-1",
			}, func(ctx context.Context, tx *sql.Tx, s *model.Submission) error {
				_, jobErr := jobRepo.CreateInTx(ctx, tx,
					testutil.NewJobRequest().WithSubmission(s.ID).Build())
				return jobErr
			})
			require.NoError(t, err)
			require.NotNil(t, requeued)

			assert.Equal(t, model.SubmissionStatusQueued, requeued.Status)
			assert.Nil(t, requeued.ErrorMessage)
			assert.Nil(t, requeued.CompletedAt)

			job, err := jobRepo.LatestForSubmission(context.Background(), sub.ID)
			require.NoError(t, err)
			require.NotNil(t, job)
			assert.Equal(t, model.JobStatusPending, job.Status)
		})
	})

	t.Run("non-failed submission is not eligible", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Requeue Queued")
			sub := enqueueTestSubmission(t, db, task.ID, "user-1")

			repo := NewSubmissionRepo(db, RepoConfig{})
			requeued, err := repo.Requeue(context.Background(), core.RequeueParams{
				SubmissionID: sub.ID,
				UserID:       "user-1",
			}, noopAttach)
			require.NoError(t, err)
			assert.Nil(t, requeued)
		})
	})

	t.Run("wrong owner is not eligible", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "Requeue Wrong Owner")
			sub := failSubmission(t, db, task.ID, "user-1")

			repo := NewSubmissionRepo(db, RepoConfig{})
			requeued, err := repo.Requeue(context.Background(), core.RequeueParams{
				SubmissionID: sub.ID,
				UserID:       "stranger",
			}, noopAttach)
			require.NoError(t, err)
			assert.Nil(t, requeued)
		})
	})
}

func TestSubmissionRepo_ListForUser(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("pages newest first and excludes drafts", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "List History")
			repo := NewSubmissionRepo(db, RepoConfig{})

			_, err := repo.UpsertDraft(context.Background(),
				testutil.NewDraftRequest().WithTask(task.ID).WithUser("lister").Build())
			require.NoError(t, err)

			enqueueTestSubmission(t, db, task.ID, "other-0")

			page, err := repo.ListForUser(context.Background(), model.SubmissionListOptions{
				UserID:  "lister",
				Page:    1,
				PerPage: 10,
			})
			require.NoError(t, err)
			assert.Empty(t, page.Submissions, "drafts and other users' rows are excluded")

			page, err = repo.ListForUser(context.Background(), model.SubmissionListOptions{
				UserID:  "other-0",
				Page:    1,
				PerPage: 10,
			})
			require.NoError(t, err)
			require.Len(t, page.Submissions, 1)
			assert.Equal(t, task.Title, page.Submissions[0].Task.Title)
			assert.Equal(t, model.SubmissionStatusQueued, page.Submissions[0].Status)
			assert.Nil(t, page.Submissions[0].OverallBand)
		})
	})

	t.Run("pagination flags", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "List Pages")
			repo := NewSubmissionRepo(db, RepoConfig{})

			for i := 0; i < 3; i++ {
				_, err := repo.Enqueue(context.Background(),
					testutil.NewEnqueueRequest().WithTask(task.ID).WithUser("pager").Build(),
					noopAttach)
				require.NoError(t, err)
			}

			page, err := repo.ListForUser(context.Background(), model.SubmissionListOptions{
				UserID:  "pager",
				Page:    1,
				PerPage: 2,
			})
			require.NoError(t, err)
			assert.Len(t, page.Submissions, 2)
			assert.Equal(t, 2, page.TotalPages)
			assert.True(t, page.HasNext)
			assert.False(t, page.HasPrevious)

			page, err = repo.ListForUser(context.Background(), model.SubmissionListOptions{
				UserID:  "pager",
				Page:    2,
				PerPage: 2,
			})
			require.NoError(t, err)
			assert.Len(t, page.Submissions, 1)
			assert.False(t, page.HasNext)
			assert.True(t, page.HasPrevious)
		})
	})

	t.Run("includes overall band once scored", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			task := createTestTask(t, db, "List Scored")
			sub := enqueueTestSubmission(t, db, task.ID, "scored-user")

			jobRepo := NewJobRepo(db, RepoConfig{})
			_, err := jobRepo.Create(context.Background(),
				testutil.NewJobRequest().WithSubmission(sub.ID).Build())
			require.NoError(t, err)
			job, err := jobRepo.TryClaimNext(context.Background(), model.JobTypeEvaluate, "worker-1")
			require.NoError(t, err)
			_, err = jobRepo.CompleteSuccess(context.Background(), core.CompleteSuccessParams{
				Claim:      claimOf(job, "worker-1"),
				Evaluation: testutil.ValidEvaluation(),
			})
			require.NoError(t, err)

			page, err := NewSubmissionRepo(db, RepoConfig{}).ListForUser(context.Background(),
				model.SubmissionListOptions{UserID: "scored-user", Page: 1, PerPage: 10})
			require.NoError(t, err)
			require.Len(t, page.Submissions, 1)
			assert.Equal(t, model.SubmissionStatusDone, page.Submissions[0].Status)
			require.NotNil(t, page.Submissions[0].OverallBand)
			assert.InDelta(t, 7.0, *page.Submissions[0].OverallBand, 0.001)
		})
	})
}
