package runtime

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// DefaultActions resolves the configured default action rules against the
// host facts, keeping rules whose condition holds.
func (rt *Runtime) DefaultActions() ([]string, error) {
	env := rt.insights.ExprEnv()

	var actions []string
	for _, rule := range rt.cfg.DefaultActionRules() {
		ok, err := evaluateCondition(rule.When, env)
		if err != nil {
			return nil, fmt.Errorf("default action %s: %w", rule.Action, err)
		}
		if ok {
			actions = append(actions, rule.Action)
		}
	}
	return actions, nil
}

// evaluateCondition runs a boolean expr condition. An empty condition holds.
func evaluateCondition(condition string, env map[string]any) (bool, error) {
	if condition == "" {
		return true, nil
	}

	program, err := expr.Compile(condition, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("failed to compile condition: %w", err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition: %w", err)
	}

	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition did not evaluate to boolean: %v", out)
	}
	return result, nil
}
