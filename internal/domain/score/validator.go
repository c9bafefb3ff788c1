// Package score validates raw provider payloads against the evaluation
// schema and applies bounded one-shot repairs to malformed ones.
package score

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/quillscore/quillscore-api/internal/domain/model"
)

//go:embed schema.json
var schemaJSON string

var evalSchema = jsonschema.MustCompileString("evaluation.schema.json", schemaJSON)

// Validate checks a raw provider payload against the evaluation schema,
// including band ranges, the 0.5 grid, non-empty feedback lists, the 3-5
// priority fix bound, and unrecognized extra fields. Valid payloads decode
// into the typed form; anything else returns the schema error.
func Validate(raw []byte) (*model.Evaluation, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode evaluation payload: %w", err)
	}
	if err := evalSchema.Validate(payload); err != nil {
		return nil, fmt.Errorf("evaluation payload invalid: %w", err)
	}

	var eval model.Evaluation
	if err := json.Unmarshal(raw, &eval); err != nil {
		return nil, fmt.Errorf("decode evaluation payload: %w", err)
	}
	return &eval, nil
}
