package data

import (
	"context"
	"fmt"
	"testing"

	"github.com/quillscore/quillscore-api/internal/domain/model"
	"github.com/quillscore/quillscore-api/internal/testutil"
)

// BenchmarkJobRepo_TryClaimNext measures the claim path against a queue
// pre-filled with one pending job per iteration, so every claim succeeds.
func BenchmarkJobRepo_TryClaimNext(b *testing.B) {
	testutil.SkipIfNoTestDB(b)

	db := testutil.SetupAutoDB(b)
	defer testutil.TeardownTestDB(b, db)

	task := createTestTask(b, db, "Bench Claim")
	for i := 0; i < b.N; i++ {
		createPendingJob(b, db, task.ID, fmt.Sprintf("bench-user-%d", i))
	}

	repo := NewJobRepo(db, RepoConfig{})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repo.TryClaimNext(ctx, model.JobTypeEvaluate, "bench-worker"); err != nil {
			b.Fatalf("claim: %v", err)
		}
	}
}

// BenchmarkJobRepo_Stats measures the aggregate counts query.
func BenchmarkJobRepo_Stats(b *testing.B) {
	testutil.SkipIfNoTestDB(b)

	db := testutil.SetupAutoDB(b)
	defer testutil.TeardownTestDB(b, db)

	task := createTestTask(b, db, "Bench Stats")
	for i := 0; i < 50; i++ {
		createPendingJob(b, db, task.ID, fmt.Sprintf("bench-user-%d", i))
	}

	repo := NewJobRepo(db, RepoConfig{})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repo.Stats(ctx, model.JobTypeEvaluate); err != nil {
			b.Fatalf("stats: %v", err)
		}
	}
}
