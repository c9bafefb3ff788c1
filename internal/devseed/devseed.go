// Package devseed populates a development database with the canonical
// writing task catalog. It is idempotent: tasks are matched by title and
// only created when missing.
package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quillscore/quillscore-api/internal/core"
	"github.com/quillscore/quillscore-api/internal/data"
	"github.com/quillscore/quillscore-api/internal/domain/model"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB    *sql.DB
	tasks core.TaskStore
}

// NewServices constructs the repositories required for seeding using the provided DB.
func NewServices(db *sql.DB) Services {
	return Services{
		DB:    db,
		tasks: data.NewTaskRepo(db),
	}
}

// Run executes the development seeding workflow against the provided DB.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	failures := seedTasks(ctx, svcs.tasks, logger)
	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func seedTasks(ctx context.Context, store core.TaskStore, logger *slog.Logger) int {
	failures := 0
	created := 0
	for i := range taskCatalog {
		req := &taskCatalog[i]
		existing, err := store.GetByTitle(ctx, req.Title)
		if err != nil && !errors.Is(err, data.ErrTaskNotFound) {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to look up task", "title", req.Title, "error", err)
			}
			failures++
			continue
		}
		if existing != nil {
			if logger != nil {
				logger.InfoContext(ctx, "task already exists", "title", req.Title)
			}
			continue
		}
		if _, err := store.Create(ctx, req); err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to create task", "title", req.Title, "error", err)
			}
			failures++
			continue
		}
		created++
		if logger != nil {
			logger.InfoContext(ctx, "created task", "title", req.Title)
		}
	}
	if logger != nil {
		logger.InfoContext(ctx, "task seeding complete", "created", created, "failures", failures)
	}
	return failures
}

// taskCatalog is the initial set of writing prompts loaded into a fresh
// development database. Titles are the idempotency key.
var taskCatalog = []model.CreateTaskRequest{
	{
		TaskType: model.TaskTypeOne,
		Title:    "Population Growth in Major Cities",
		Prompt: `The graph below shows the population growth in three major cities between 2000 and 2020.

Summarize the information by selecting and reporting the main features, and make comparisons where relevant.

Write at least 150 words.

[Imagine a line graph showing population trends for Tokyo, London, and New York from 2000-2020]`,
		MinWords:      150,
		SuggestedTime: 20,
	},
	{
		TaskType: model.TaskTypeOne,
		Title:    "Coffee Production Process",
		Prompt: `The diagram below shows the process of coffee production from bean to cup.

Summarize the information by selecting and reporting the main features.

Write at least 150 words.`,
		MinWords:      150,
		SuggestedTime: 20,
	},
	{
		TaskType: model.TaskTypeOne,
		Title:    "Energy Consumption by Source",
		Prompt: `The pie charts below show the percentage of energy consumption from different sources in a country in 1990 and 2020.

Summarize the information by selecting and reporting the main features, and make comparisons where relevant.

Write at least 150 words.`,
		MinWords:      150,
		SuggestedTime: 20,
	},
	{
		TaskType: model.TaskTypeTwo,
		Title:    "Online Education vs Traditional Education",
		Prompt: `Some people believe that online education is more effective than traditional classroom learning, while others think traditional methods are superior.

Discuss both views and give your own opinion.

Give reasons for your answer and include any relevant examples from your own knowledge or experience.

Write at least 250 words.`,
		MinWords:      250,
		SuggestedTime: 40,
	},
	{
		TaskType: model.TaskTypeTwo,
		Title:    "Environmental Protection Responsibility",
		Prompt: `Some people think that environmental problems should be solved on a global scale while others believe it is better to deal with them nationally.

Discuss both views and give your opinion.

Give reasons for your answer and include any relevant examples from your own knowledge or experience.

Write at least 250 words.`,
		MinWords:      250,
		SuggestedTime: 40,
	},
	{
		TaskType: model.TaskTypeTwo,
		Title:    "Work-Life Balance",
		Prompt: `Many people find it difficult to balance their work and personal life.

What are the causes of this problem? How can individuals and employers address these issues?

Give reasons for your answer and include any relevant examples from your own knowledge or experience.

Write at least 250 words.`,
		MinWords:      250,
		SuggestedTime: 40,
	},
}
