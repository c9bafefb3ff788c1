package score

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillscore/quillscore-api/internal/domain/model"
)

func repairAndValidate(t *testing.T, payload map[string]any) (*model.Evaluation, error) {
	t.Helper()
	repaired, err := RepairRaw(mustEncode(t, payload))
	require.NoError(t, err)
	return Validate(repaired)
}

func TestRepairRaw_EmptyObjectBecomesValid(t *testing.T) {
	repaired, err := RepairRaw([]byte(`{}`))
	require.NoError(t, err)

	eval, err := Validate(repaired)
	require.NoError(t, err)

	assert.Equal(t, 5.0, eval.OverallBand)
	assert.Equal(t, 5.0, eval.CriteriaScores.TaskResponse)
	assert.Equal(t, 5.0, eval.CriteriaScores.GrammarAccuracy)
	assert.Equal(t, []string{"No feedback available"}, eval.Feedback.CoherenceCohesion)
	assert.Equal(t, []string{
		"Focus on task requirements",
		"Improve organization",
		"Enhance vocabulary",
	}, eval.PriorityFixes)
}

func TestRepairRaw_MissingFixesGetExactlyThreeDefaults(t *testing.T) {
	payload := validPayload()
	delete(payload, "priority_fixes")

	eval, err := repairAndValidate(t, payload)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Focus on task requirements",
		"Improve organization",
		"Enhance vocabulary",
	}, eval.PriorityFixes)
}

func TestRepairRaw_FixListBounds(t *testing.T) {
	tests := []struct {
		name  string
		fixes any
		want  []string
	}{
		{
			name:  "seven fixes truncate to five",
			fixes: []string{"a", "b", "c", "d", "e", "f", "g"},
			want:  []string{"a", "b", "c", "d", "e"},
		},
		{
			name:  "one fix padded from the pool",
			fixes: []string{"keep this"},
			want:  []string{"keep this", "Improve clarity", "Enhance coherence"},
		},
		{
			name:  "two fixes padded with one",
			fixes: []string{"first", "second"},
			want:  []string{"first", "second", "Improve clarity"},
		},
		{
			name:  "empty list padded to three",
			fixes: []string{},
			want:  []string{"Improve clarity", "Enhance coherence", "Develop ideas"},
		},
		{
			name:  "four fixes untouched",
			fixes: []string{"a", "b", "c", "d"},
			want:  []string{"a", "b", "c", "d"},
		},
		{
			name:  "string coerced then padded",
			fixes: "work on cohesion",
			want:  []string{"work on cohesion", "Improve clarity", "Enhance coherence"},
		},
		{
			name:  "number coerced then padded",
			fixes: 3,
			want:  []string{"3", "Improve clarity", "Enhance coherence"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validPayload()
			payload["priority_fixes"] = tt.fixes

			eval, err := repairAndValidate(t, payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, eval.PriorityFixes)
		})
	}
}

func TestRepairRaw_FillsMissingCriteriaAndFeedback(t *testing.T) {
	payload := validPayload()
	delete(payload["criteria_scores"].(map[string]any), "lexical_resource")
	delete(payload["feedback"].(map[string]any), "grammar_accuracy")

	eval, err := repairAndValidate(t, payload)
	require.NoError(t, err)
	assert.Equal(t, 5.0, eval.CriteriaScores.LexicalResource)
	assert.Equal(t, []string{"No feedback available"}, eval.Feedback.GrammarAccuracy)
	assert.Equal(t, 7.0, eval.CriteriaScores.TaskResponse)
}

func TestRepairRaw_CoercesNonListFeedback(t *testing.T) {
	payload := validPayload()
	payload["feedback"].(map[string]any)["task_response"] = "a single remark"
	payload["feedback"].(map[string]any)["lexical_resource"] = 6.5

	eval, err := repairAndValidate(t, payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"a single remark"}, eval.Feedback.TaskResponse)
	assert.Equal(t, []string{"6.5"}, eval.Feedback.LexicalResource)
}

func TestRepairRaw_NeverClampsBands(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p map[string]any)
	}{
		{
			name:   "overall band above maximum",
			mutate: func(p map[string]any) { p["overall_band"] = 9.5 },
		},
		{
			name:   "overall band below minimum",
			mutate: func(p map[string]any) { p["overall_band"] = 0.0 },
		},
		{
			name:   "criterion off the half-point grid",
			mutate: func(p map[string]any) { p["criteria_scores"].(map[string]any)["task_response"] = 6.3 },
		},
		{
			name:   "overall band encoded as string",
			mutate: func(p map[string]any) { p["overall_band"] = "8.0" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validPayload()
			tt.mutate(payload)

			eval, err := repairAndValidate(t, payload)
			assert.Error(t, err)
			assert.Nil(t, eval)
		})
	}
}

func TestRepairRaw_PreservesUnknownFields(t *testing.T) {
	payload := validPayload()
	payload["confidence"] = 0.93

	repaired, err := RepairRaw(mustEncode(t, payload))
	require.NoError(t, err)

	var root map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(repaired, &root))
	assert.Contains(t, root, "confidence")

	eval, err := Validate(repaired)
	assert.Error(t, err)
	assert.Nil(t, eval)
}

func TestRepairRaw_RejectsUnrepairablePayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "root is an array", raw: `["a", "b"]`},
		{name: "root is a string", raw: `"not an object"`},
		{name: "root is null", raw: `null`},
		{name: "root is not JSON", raw: `here you go:`},
		{name: "criteria_scores is null", raw: `{"criteria_scores": null}`},
		{name: "criteria_scores is a number", raw: `{"criteria_scores": 7}`},
		{name: "feedback is a string", raw: `{"feedback": "great essay"}`},
		{name: "feedback is a list", raw: `{"feedback": ["great essay"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repaired, err := RepairRaw([]byte(tt.raw))
			assert.Error(t, err)
			assert.Nil(t, repaired)
		})
	}
}

func TestRepair_DoesNotMutateInput(t *testing.T) {
	p, err := ParsePartial([]byte(`{"criteria_scores": {"task_response": 6.0}, "feedback": {}}`))
	require.NoError(t, err)

	_ = Repair(p)

	assert.Nil(t, p.OverallBand)
	assert.Len(t, p.Criteria, 1)
	assert.Empty(t, p.Feedback)
	assert.Nil(t, p.PriorityFixes)
}

func TestRepairRaw_ValidPayloadRoundTrips(t *testing.T) {
	payload := validPayload()
	payload["improved_essay"] = "A rewritten essay."

	eval, err := repairAndValidate(t, payload)
	require.NoError(t, err)
	assert.Equal(t, 7.0, eval.OverallBand)
	assert.Len(t, eval.PriorityFixes, 3)
	require.NotNil(t, eval.ImprovedEssay)
}
