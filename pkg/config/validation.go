package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConditionEnv is a sample of the variables default-action conditions may
// reference, used to type-check them.
func ConditionEnv() map[string]any {
	return map[string]any{
		"os":        "",
		"arch":      "",
		"s_arch":    "",
		"pkg_mgr":   "",
		"is_root":   false,
		"is_linux":  false,
		"is_darwin": false,
		"has_brew":  false,
		"has_cargo": false,
		"has_mas":   false,
		"has_nvim":  false,
	}
}

// Validate checks the configuration for values that would break a run.
func (c *Config) Validate() error {
	if c.MaxLogLines < 0 {
		return &ValidationError{Field: "max_log_lines", Message: "must not be negative"}
	}

	fields := []struct {
		name  string
		value string
	}{
		{"schedule.minute", c.Schedule.Minute},
		{"schedule.hour", c.Schedule.Hour},
		{"schedule.day_of_month", c.Schedule.DayOfMonth},
		{"schedule.month", c.Schedule.Month},
		{"schedule.day_of_week", c.Schedule.DayOfWeek},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" || strings.ContainsAny(f.value, " \t\n") {
			return &ValidationError{Field: f.name, Message: fmt.Sprintf("%q is not a crontab field", f.value)}
		}
	}

	for i, rule := range c.DefaultActions {
		if strings.TrimSpace(rule.Action) == "" {
			return &ValidationError{Field: fmt.Sprintf("default_actions[%d].action", i), Message: "is empty"}
		}
		if rule.When == "" {
			continue
		}
		if _, err := expr.Compile(rule.When, expr.Env(ConditionEnv()), expr.AsBool()); err != nil {
			return &ValidationError{
				Field:   fmt.Sprintf("default_actions[%d].when", i),
				Message: err.Error(),
			}
		}
	}

	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative: %d", n)
	}
	return n, nil
}
