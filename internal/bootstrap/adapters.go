package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/quillscore/quillscore-api/config"
	"github.com/quillscore/quillscore-api/internal/adapters/evalrunner"
	"github.com/quillscore/quillscore-api/internal/adapters/reaper"
	"github.com/quillscore/quillscore-api/internal/adapters/scorer"
	domainjob "github.com/quillscore/quillscore-api/internal/domain/job"
	"github.com/quillscore/quillscore-api/internal/observability/statsd"
	"github.com/quillscore/quillscore-api/internal/service/failurenotifier"
)

// WorkerConfig contains configuration for the evaluation worker.
type WorkerConfig struct {
	DB              *sql.DB
	Logger          *slog.Logger
	Worker          config.WorkerConfig
	Scorer          config.ScorerConfig
	Notifier        domainjob.Notifier
	Metrics         statsd.Sink
	FailureNotifier *failurenotifier.Service
}

// RunWorker starts the evaluation worker service.
func RunWorker(ctx context.Context, cfg WorkerConfig) error {
	scoringProvider, err := scorer.FromOptions(scorer.Options{
		Provider: cfg.Scorer.Provider,
		APIKey:   cfg.Scorer.APIKey,
		Model:    cfg.Scorer.Model,
		Timeout:  cfg.Scorer.Timeout,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return fmt.Errorf("create scorer: %w", err)
	}

	runner, err := evalrunner.NewRunner(evalrunner.RunnerOptions{
		DB:              cfg.DB,
		Logger:          cfg.Logger,
		Concurrency:     cfg.Worker.Concurrency,
		WorkerID:        cfg.Worker.WorkerID,
		PollInterval:    cfg.Worker.PollInterval,
		ErrorBackoff:    cfg.Worker.ErrorBackoff,
		MaxAttempts:     cfg.Worker.MaxAttempts,
		BackoffStep:     cfg.Worker.BackoffStep,
		Scorer:          scoringProvider,
		Notifier:        cfg.Notifier,
		Metrics:         cfg.Metrics,
		FailureNotifier: cfg.FailureNotifier,
	})
	if err != nil {
		return fmt.Errorf("create worker runner: %w", err)
	}

	return runner.Run(ctx)
}

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	DB          *sql.DB
	Logger      *slog.Logger
	Config      config.ReaperConfig
	MaxAttempts int
	Metrics     statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:          cfg.DB,
		Config:      cfg.Config,
		Logger:      cfg.Logger,
		MaxAttempts: cfg.MaxAttempts,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
