// Package failurenotifier fans permanently-failed evaluation jobs out to the
// configured alerting sinks (Slack, PagerDuty). A submission that exhausts
// its retries is invisible to operators otherwise; the queue just records it
// as failed.
package failurenotifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quillscore/quillscore-api/internal/observability/notify"
)

// deliveryTimeout bounds one sink delivery so a slow webhook cannot stall
// the worker's finalize path.
const deliveryTimeout = 10 * time.Second

// SinkRegistration pairs a sink with the name used in delivery-error logs.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
}

// Service delivers each failure payload to every registered sink in
// parallel. Sink errors are logged and never propagate to the caller.
type Service struct {
	logger *slog.Logger
	sinks  []SinkRegistration
}

// NewService registers the non-nil sinks and drops the rest.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "failure_notifier")
	}

	sinks := make([]SinkRegistration, 0, len(opts.Sinks))
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "sink"
		}
		sinks = append(sinks, entry)
	}

	return &Service{logger: logger, sinks: sinks}
}

// NotifyJobFailure sends payload to every sink and waits for all deliveries.
// A missing severity defaults to critical: a permanent failure means a user
// is waiting on a score that will never arrive.
func (s *Service) NotifyJobFailure(ctx context.Context, payload notify.JobFailurePayload) {
	if len(s.sinks) == 0 {
		return
	}
	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.deliver(ctx, entry, payload)
		}()
	}
	wg.Wait()
}

func (s *Service) deliver(ctx context.Context, entry SinkRegistration, payload notify.JobFailurePayload) {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	if err := entry.Sink.SendJobFailure(ctx, payload); err != nil {
		s.logger.Error("failure notifier delivery error",
			"sink", entry.Name,
			"job_id", payload.JobID,
			"job_type", payload.JobType,
			"error", err,
		)
	}
}

// Enabled reports whether any sink is registered.
func (s *Service) Enabled() bool {
	return len(s.sinks) > 0
}
