package job

import "github.com/quillscore/quillscore-api/internal/domain/model"

// OutcomeKind labels the terminal result of one processing attempt.
type OutcomeKind string

const (
	// OutcomeSuccess means a schema-valid evaluation was produced.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeTransient means the attempt failed in a way worth retrying.
	OutcomeTransient OutcomeKind = "transient_failure"
	// OutcomePermanent means the attempt failed and retrying will not help.
	OutcomePermanent OutcomeKind = "permanent_failure"
)

// Outcome is the result of one evaluation attempt, consumed by the
// state-transition logic instead of sentinel errors.
type Outcome struct {
	Kind       OutcomeKind
	Evaluation *model.Evaluation
	Raw        []byte
	Reason     string
}

// Succeeded builds a success outcome carrying the validated evaluation and
// the raw provider payload kept for audit.
func Succeeded(eval *model.Evaluation, raw []byte) Outcome {
	return Outcome{Kind: OutcomeSuccess, Evaluation: eval, Raw: raw}
}

// TransientFailure builds an outcome that reschedules the job when attempts remain.
func TransientFailure(reason string) Outcome {
	return Outcome{Kind: OutcomeTransient, Reason: reason}
}

// PermanentFailure builds an outcome that terminates the job and its submission.
func PermanentFailure(reason string) Outcome {
	return Outcome{Kind: OutcomePermanent, Reason: reason}
}

// Failed reports whether this outcome is any failure kind.
func (o Outcome) Failed() bool {
	return o.Kind != OutcomeSuccess
}
