package workflow

import (
	"encoding/json"
	"strings"

	"github.com/rasad8686/agentcore/types"
)

// EvaluateCondition decides whether a routing condition matches a step's
// output. A nil or empty condition always matches. A plain Match string is
// a case-sensitive substring test against the stringified output. A
// structured condition is evaluated against a named field of a structured
// output: a missing field never matches, "default" always matches, and an
// unknown type never matches.
func EvaluateCondition(cond *types.Condition, output any) bool {
	if cond == nil {
		return true
	}
	if cond.Type == "" {
		if cond.Match == "" {
			return true
		}
		return strings.Contains(types.Stringify(output), cond.Match)
	}

	switch cond.Type {
	case types.ConditionDefault:
		return true
	case types.ConditionEquals:
		fv, ok := outputField(output, cond.Field)
		if !ok {
			return false
		}
		return types.Stringify(fv) == types.Stringify(cond.Value)
	case types.ConditionContains:
		fv, ok := outputField(output, cond.Field)
		if !ok {
			return false
		}
		return strings.Contains(types.Stringify(fv), types.Stringify(cond.Value))
	}
	return false
}

// outputField extracts a named field from a structured output. Map outputs
// are read directly; anything else goes through a JSON round trip so
// struct outputs behave like their serialized form.
func outputField(output any, field string) (any, bool) {
	if field == "" {
		return nil, false
	}

	if m, ok := output.(map[string]any); ok {
		v, ok := m[field]
		return v, ok
	}

	raw, err := json.Marshal(output)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	v, ok := m[field]
	return v, ok
}
