package score

import (
	"encoding/json"
	"strconv"

	"github.com/quillscore/quillscore-api/internal/domain/model"
)

const defaultBand = 5.0

const placeholderRemark = "No feedback available"

// defaultFixes replaces a missing priority_fixes list.
var defaultFixes = []string{
	"Focus on task requirements",
	"Improve organization",
	"Enhance vocabulary",
}

// fixPool pads a too-short priority_fixes list up to three items.
var fixPool = []string{
	"Improve clarity",
	"Enhance coherence",
	"Develop ideas",
}

const (
	minFixes = 3
	maxFixes = 5
)

// Repair fills the gaps in a partial payload: missing bands default to 5.0,
// missing feedback lists to a one-item placeholder, non-list values are
// coerced to single-item string lists, and the priority fix list is brought
// into the 3-5 range. Out-of-range or off-grid numbers are left untouched so
// revalidation still rejects them. Repair is pure; the input is not mutated.
func Repair(p Partial) Partial {
	out := p.clone()

	if out.OverallBand == nil {
		out.OverallBand = bandJSON(defaultBand)
	}

	if out.Criteria == nil {
		out.Criteria = make(map[string]json.RawMessage, len(model.CriteriaKeys()))
	}
	for _, key := range model.CriteriaKeys() {
		if _, ok := out.Criteria[key]; !ok {
			out.Criteria[key] = bandJSON(defaultBand)
		}
	}

	if out.Feedback == nil {
		out.Feedback = make(map[string]json.RawMessage, len(model.CriteriaKeys()))
	}
	for _, key := range model.CriteriaKeys() {
		val, ok := out.Feedback[key]
		switch {
		case !ok:
			out.Feedback[key] = mustMarshal([]string{placeholderRemark})
		case !isList(val):
			out.Feedback[key] = mustMarshal([]string{stringForm(val)})
		}
	}

	out.PriorityFixes = repairFixes(out.PriorityFixes)

	return out
}

// RepairRaw parses, repairs, and re-encodes a raw payload in one pass.
func RepairRaw(raw []byte) ([]byte, error) {
	p, err := ParsePartial(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Repair(p))
}

func repairFixes(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return mustMarshal(defaultFixes)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || !isList(raw) {
		items = []json.RawMessage{mustMarshal(stringForm(raw))}
	}

	if len(items) < minFixes {
		for _, fix := range fixPool[:minFixes-len(items)] {
			items = append(items, mustMarshal(fix))
		}
	} else if len(items) > maxFixes {
		items = items[:maxFixes]
	}

	return mustMarshal(items)
}

func (p Partial) clone() Partial {
	out := Partial{
		OverallBand:   p.OverallBand,
		PriorityFixes: p.PriorityFixes,
		ImprovedEssay: p.ImprovedEssay,
	}
	if p.Criteria != nil {
		out.Criteria = make(map[string]json.RawMessage, len(p.Criteria))
		for k, v := range p.Criteria {
			out.Criteria[k] = v
		}
	}
	if p.Feedback != nil {
		out.Feedback = make(map[string]json.RawMessage, len(p.Feedback))
		for k, v := range p.Feedback {
			out.Feedback[k] = v
		}
	}
	if p.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// stringForm renders a JSON value the way a coercion to string would: quoted
// strings unwrap to their contents, everything else keeps its JSON text.
func stringForm(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func isList(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b == '['
	}
	return false
}

func bandJSON(v float64) json.RawMessage {
	return json.RawMessage(strconv.FormatFloat(v, 'f', 1, 64))
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
