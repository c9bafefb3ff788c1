package score

import (
	"encoding/json"
	"fmt"
)

// Partial is a leniently decoded provider payload. Known fields are kept as
// raw JSON so repair can fill gaps without touching malformed values, and
// unrecognized root fields are preserved so revalidation still rejects them.
// A nil field means the key was absent.
type Partial struct {
	OverallBand   json.RawMessage
	Criteria      map[string]json.RawMessage
	Feedback      map[string]json.RawMessage
	PriorityFixes json.RawMessage
	ImprovedEssay json.RawMessage
	Extra         map[string]json.RawMessage
}

// ParsePartial decodes a raw payload into a Partial. Payloads that are not
// JSON objects, or whose criteria_scores/feedback values are not objects,
// cannot be repaired and return an error.
func ParsePartial(raw []byte) (Partial, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return Partial{}, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	if root == nil {
		return Partial{}, fmt.Errorf("payload is not a JSON object: got null")
	}

	p := Partial{Extra: make(map[string]json.RawMessage)}
	for key, val := range root {
		switch key {
		case "overall_band":
			p.OverallBand = val
		case "criteria_scores":
			m, err := asObject(val, "criteria_scores")
			if err != nil {
				return Partial{}, err
			}
			p.Criteria = m
		case "feedback":
			m, err := asObject(val, "feedback")
			if err != nil {
				return Partial{}, err
			}
			p.Feedback = m
		case "priority_fixes":
			p.PriorityFixes = val
		case "improved_essay":
			p.ImprovedEssay = val
		default:
			p.Extra[key] = val
		}
	}
	return p, nil
}

// MarshalJSON reassembles the payload, preserved unknown fields included.
func (p Partial) MarshalJSON() ([]byte, error) {
	root := make(map[string]json.RawMessage, len(p.Extra)+5)
	for k, v := range p.Extra {
		root[k] = v
	}
	if p.OverallBand != nil {
		root["overall_band"] = p.OverallBand
	}
	if p.Criteria != nil {
		b, err := json.Marshal(p.Criteria)
		if err != nil {
			return nil, err
		}
		root["criteria_scores"] = b
	}
	if p.Feedback != nil {
		b, err := json.Marshal(p.Feedback)
		if err != nil {
			return nil, err
		}
		root["feedback"] = b
	}
	if p.PriorityFixes != nil {
		root["priority_fixes"] = p.PriorityFixes
	}
	if p.ImprovedEssay != nil {
		root["improved_essay"] = p.ImprovedEssay
	}
	return json.Marshal(root)
}

func asObject(val json.RawMessage, field string) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(val, &m); err != nil || m == nil {
		return nil, fmt.Errorf("%s is not an object", field)
	}
	return m, nil
}
