package model

import "time"

// Band score bounds shared by the validator and the scoring providers.
const (
	MinBand = 1.0
	MaxBand = 9.0
)

// Criterion keys used in criteria_scores and feedback payloads. Order matters:
// repair and the fallback scorer iterate criteria in this order.
const (
	CriterionTaskResponse      = "task_response"
	CriterionCoherenceCohesion = "coherence_cohesion"
	CriterionLexicalResource   = "lexical_resource"
	CriterionGrammarAccuracy   = "grammar_accuracy"
)

// CriteriaKeys lists the four scoring criteria in canonical order.
func CriteriaKeys() []string {
	return []string{
		CriterionTaskResponse,
		CriterionCoherenceCohesion,
		CriterionLexicalResource,
		CriterionGrammarAccuracy,
	}
}

// CriteriaScores holds the per-criterion band scores.
type CriteriaScores struct {
	TaskResponse      float64 `json:"task_response"`
	CoherenceCohesion float64 `json:"coherence_cohesion"`
	LexicalResource   float64 `json:"lexical_resource"`
	GrammarAccuracy   float64 `json:"grammar_accuracy"`
}

// Feedback holds the per-criterion remark lists. Each list is non-empty in a
// valid evaluation.
type Feedback struct {
	TaskResponse      []string `json:"task_response"`
	CoherenceCohesion []string `json:"coherence_cohesion"`
	LexicalResource   []string `json:"lexical_resource"`
	GrammarAccuracy   []string `json:"grammar_accuracy"`
}

// Evaluation is a schema-valid scoring payload. All band scores lie in
// [MinBand, MaxBand] on a 0.5 grid and PriorityFixes has 3 to 5 entries.
type Evaluation struct {
	OverallBand    float64        `json:"overall_band"`
	CriteriaScores CriteriaScores `json:"criteria_scores"`
	Feedback       Feedback       `json:"feedback"`
	PriorityFixes  []string       `json:"priority_fixes"`
	ImprovedEssay  *string        `json:"improved_essay,omitempty"`
}

// EvaluationResult is the persisted scoring outcome, one-to-one with a
// submission, written exactly once and immutable thereafter. RawResponse
// keeps the payload that passed validation (post-repair when a repair was
// applied) for audit.
type EvaluationResult struct {
	ID             string         `json:"id"                       db:"id"`
	SubmissionID   string         `json:"submission_id"            db:"submission_id"`
	OverallBand    float64        `json:"overall_band"             db:"overall_band"`
	CriteriaScores CriteriaScores `json:"criteria_scores"          db:"criteria_scores"`
	Feedback       Feedback       `json:"feedback"                 db:"feedback"`
	PriorityFixes  []string       `json:"priority_fixes"           db:"priority_fixes"`
	ImprovedEssay  *string        `json:"improved_essay,omitempty" db:"improved_essay"`
	RawResponse    *string        `json:"raw_response,omitempty"   db:"raw_response"`
	CreatedAt      time.Time      `json:"created_at"               db:"created_at"`
}
