// Package metrics centralises the tag conventions for queue instrumentation
// so the worker and the reaper emit comparable series.
package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/quillscore/quillscore-api/internal/observability/errors"
	"github.com/quillscore/quillscore-api/internal/observability/statsd"
)

// Result values for the "result" tag.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	// ResultNoop marks a finalize whose claim was lost; nothing was written.
	ResultNoop = "noop"
)

// JobMetric describes one job lifecycle transition.
type JobMetric struct {
	JobType    string
	Transition string
	Result     string
	Attempt    int
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle counts the transition and, when a duration is known,
// times it. Errors are folded into an error_class tag rather than a
// separate series.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"job_type":   in.JobType,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Attempt > 0 {
		tags["attempt"] = strconv.Itoa(in.Attempt)
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags copies a tag map so concurrent emitters cannot share state.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
