package scorer

import "fmt"

// systemPrompt instructs the model to return the evaluation as bare JSON.
// The example document doubles as the schema the validator enforces.
const systemPrompt = `You are an expert IELTS examiner. Evaluate the essay according to IELTS Writing criteria.

Return ONLY valid JSON with this exact structure (no markdown, no explanations):

{
  "overall_band": 7.5,
  "criteria_scores": {
    "task_response": 7.5,
    "coherence_cohesion": 7.0,
    "lexical_resource": 8.0,
    "grammar_accuracy": 7.5
  },
  "feedback": {
    "task_response": ["Point 1", "Point 2"],
    "coherence_cohesion": ["Point 1", "Point 2"],
    "lexical_resource": ["Point 1", "Point 2"],
    "grammar_accuracy": ["Point 1", "Point 2"]
  },
  "priority_fixes": ["Fix 1", "Fix 2", "Fix 3"],
  "improved_essay": "Optional improved version"
}

Rules:
- All band scores: 1.0-9.0 in 0.5 increments
- Overall band is average of four criteria, rounded to nearest 0.5
- Each feedback array must have at least 1 item
- priority_fixes must have exactly 3-5 items
- Return ONLY the JSON object`

func buildUserPrompt(taskPrompt, essayText string) string {
	return fmt.Sprintf("Task Prompt:\n%s\n\nStudent's Essay:\n%s\n\nEvaluate this essay and return the JSON evaluation.",
		taskPrompt, essayText)
}

// combinedPrompt merges system and user prompts for providers that take a
// single text part per request.
func combinedPrompt(taskPrompt, essayText string) string {
	return systemPrompt + "\n\n" + buildUserPrompt(taskPrompt, essayText)
}
