package workflow

import (
	"fmt"
	"regexp"
	"strconv"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// templateExprPattern matches a single "{{ expr }}" placeholder;
// expr is evaluated as a Starlark expression against the blackboard
// and substituted in place.
var templateExprPattern = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)

// expandTemplate resolves every "{{ expr }}" placeholder in s against
// data, which state AgentInput and System Command strings use to
// reference upstream blackboard values (e.g. "{{ triage.category }}").
// A malformed or failing expression is substituted as
// "<error: ...>" rather than aborting the whole state, matching this
// package's general preference for a visible, blackboard-recorded
// failure over a halted tick.
//
// Each expression gets a fresh starlark.Thread,
// syntax.FileOptions{}.ParseExpr, and starlark.EvalExprOptions,
// evaluated against this package's plain
// map[string]interface{} blackboard (no AttrDict attribute-style
// access, since every expression here is evaluated against a single
// flat JSON-shaped value map).
func expandTemplate(s string, data map[string]interface{}) string {
	return templateExprPattern.ReplaceAllStringFunc(s, func(match string) string {
		expr := templateExprPattern.FindStringSubmatch(match)[1]
		v, err := evaluateExpression(expr, data)
		if err != nil {
			return fmt.Sprintf("<error: %s>", err)
		}
		return stringify(v)
	})
}

const maxTemplateExecutionSteps = 10000

func evaluateExpression(expr string, data map[string]interface{}) (interface{}, error) {
	thread := &starlark.Thread{Name: "workflow-template"}
	thread.SetMaxExecutionSteps(maxTemplateExecutionSteps)

	globals := make(starlark.StringDict, len(data))
	for k, v := range data {
		sv, err := goToStarlark(v)
		if err != nil {
			return nil, err
		}
		globals[k] = sv
	}

	fileOpts := syntax.FileOptions{}
	parsed, err := fileOpts.ParseExpr("template", expr, 0)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", expr, err)
	}
	result, err := starlark.EvalExprOptions(&fileOpts, thread, parsed, globals)
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", expr, err)
	}
	return starlarkToGo(result), nil
}

func goToStarlark(v interface{}) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := goToStarlark(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	case []interface{}:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := goToStarlark(item)
			if err != nil {
				return nil, err
			}
			items[i] = sv
		}
		return starlark.NewList(items), nil
	default:
		return starlark.String(fmt.Sprintf("%v", val)), nil
	}
}

func starlarkToGo(v starlark.Value) interface{} {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(val)
	case starlark.Int:
		i, _ := val.Int64()
		return i
	case starlark.Float:
		return float64(val)
	case starlark.String:
		return string(val)
	case *starlark.List:
		out := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			out[i] = starlarkToGo(val.Index(i))
		}
		return out
	case *starlark.Dict:
		out := make(map[string]interface{}, val.Len())
		for _, item := range val.Items() {
			key, _ := starlark.AsString(item[0])
			out[key] = starlarkToGo(item[1])
		}
		return out
	default:
		return val.String()
	}
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
