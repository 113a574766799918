package workflow

import (
	"strings"

	"github.com/aegis-run/orchestrator/internal/domain"
)

// evaluateCondition tests one Transition.Condition against the
// blackboard and, for ConditionFailed, whether the state that just ran
// errored. Transitions off a state are tried in declared order and
// the first satisfied one is taken.
func evaluateCondition(c domain.Condition, blackboard map[string]interface{}, stateFailed bool) bool {
	switch c.Kind {
	case domain.ConditionAlways:
		return true
	case domain.ConditionFailed:
		return stateFailed
	case domain.ConditionEquals:
		return equalValue(lookupPath(blackboard, c.Path), c.Value)
	case domain.ConditionGreaterThan:
		v, ok := numericValue(lookupPath(blackboard, c.Path))
		return ok && v > c.Threshold
	case domain.ConditionLessThan:
		v, ok := numericValue(lookupPath(blackboard, c.Path))
		return ok && v < c.Threshold
	default:
		return false
	}
}

// lookupPath resolves a dotted path ("judge.score") through nested
// map[string]interface{} values in the blackboard.
func lookupPath(blackboard map[string]interface{}, path string) interface{} {
	if path == "" {
		return nil
	}
	var cur interface{} = blackboard
	for _, segment := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return cur
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func equalValue(a, b interface{}) bool {
	if af, ok := numericValue(a); ok {
		if bf, ok := numericValue(b); ok {
			return af == bf
		}
	}
	return a == b
}
