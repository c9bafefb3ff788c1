package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeWorker runs the evaluation job worker.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeReaper runs the queue reaper for cleanup and recovery.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeWorker,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeWorker, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, worker, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains evaluation worker configuration.
type WorkerConfig struct {
	// Concurrency is the number of worker goroutines claiming jobs.
	Concurrency int `env:"WORKER_CONCURRENCY" envDefault:"2"`

	// WorkerID identifies this worker instance in job locks. When empty,
	// an identifier is derived from the hostname and process ID at startup.
	WorkerID string `env:"WORKER_ID"`

	// PollInterval bounds how long a worker sleeps between queue checks when
	// no LISTEN/NOTIFY wakeup arrives.
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"5s"`

	// ErrorBackoff is the pause after a claim or infrastructure error before
	// the worker tries again.
	ErrorBackoff time.Duration `env:"WORKER_ERROR_BACKOFF" envDefault:"5s"`

	// MaxAttempts is the per-job attempt limit. A transiently failing job is
	// rescheduled until its attempt counter reaches this value.
	MaxAttempts int `env:"WORKER_MAX_ATTEMPTS" envDefault:"2"`

	// BackoffStep is multiplied by the attempt count to compute the retry
	// delay for transient failures.
	BackoffStep time.Duration `env:"WORKER_BACKOFF_STEP" envDefault:"30s"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.PollInterval < time.Second {
		w.PollInterval = time.Second
	}
	if w.ErrorBackoff < 100*time.Millisecond {
		w.ErrorBackoff = 100 * time.Millisecond
	}
	if w.MaxAttempts < 1 {
		w.MaxAttempts = 1
	}
	if w.BackoffStep < time.Second {
		w.BackoffStep = time.Second
	}
	w.WorkerID = strings.TrimSpace(w.WorkerID)
}

// ScorerConfig selects and configures the essay scoring provider.
type ScorerConfig struct {
	// Provider names the scoring backend: gemini, openai or fallback.
	Provider string `env:"SCORER_PROVIDER" envDefault:"gemini"`

	// APIKey authenticates against the provider. When empty the deterministic
	// fallback scorer is used so submissions still complete.
	APIKey string `env:"SCORER_API_KEY"`

	// Model overrides the provider's default model name.
	Model string `env:"SCORER_MODEL"`

	// Timeout bounds a single scoring call.
	Timeout time.Duration `env:"SCORER_TIMEOUT" envDefault:"60s"`
}

// Sanitize applies guardrails to scorer configuration values.
func (s *ScorerConfig) Sanitize() {
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	s.APIKey = strings.TrimSpace(s.APIKey)
	s.Model = strings.TrimSpace(s.Model)
	if s.Timeout <= 0 {
		s.Timeout = 60 * time.Second
	}
}

// SubmissionConfig contains submission intake configuration.
type SubmissionConfig struct {
	// DedupWindow is how long after a submit an identical user+task submit is
	// treated as a duplicate of the live submission.
	DedupWindow time.Duration `env:"SUBMISSION_DEDUP_WINDOW" envDefault:"2m"`
}

// Sanitize applies guardrails to submission configuration values.
func (s *SubmissionConfig) Sanitize() {
	if s.DedupWindow < time.Second {
		s.DedupWindow = time.Second
	}
}

// ReaperConfig contains queue reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// PendingMaxAge is the maximum age for pending jobs before they are marked as failed.
	// Jobs stuck in pending status longer than this will be failed.
	PendingMaxAge time.Duration `env:"REAPER_PENDING_MAX_AGE" envDefault:"1h"`

	// LockTimeout is how long a running job may hold its lock before the
	// reaper treats the worker as dead and recovers the job.
	LockTimeout time.Duration `env:"REAPER_LOCK_TIMEOUT" envDefault:"10m"`

	// DoneMaxAge is the maximum age for done jobs before deletion.
	DoneMaxAge time.Duration `env:"REAPER_DONE_MAX_AGE" envDefault:"168h"` // 7 days

	// FailedMaxAge is the maximum age for failed jobs before deletion.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"168h"` // 7 days

	// DraftMaxAge is how long an untouched draft submission survives.
	DraftMaxAge time.Duration `env:"REAPER_DRAFT_MAX_AGE" envDefault:"720h"` // 30 days

	// BatchSize is the maximum number of rows to process per operation.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	// Enforce minimum intervals to prevent excessive database load
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.PendingMaxAge < 5*time.Minute {
		r.PendingMaxAge = 5 * time.Minute
	}
	if r.LockTimeout < 1*time.Minute {
		r.LockTimeout = 1 * time.Minute
	}
	if r.DoneMaxAge < 1*time.Hour {
		r.DoneMaxAge = 1 * time.Hour
	}
	if r.FailedMaxAge < 1*time.Hour {
		r.FailedMaxAge = 1 * time.Hour
	}
	if r.DraftMaxAge < 24*time.Hour {
		r.DraftMaxAge = 24 * time.Hour
	}

	// Enforce batch size bounds to prevent excessive locks or inefficiency
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
