// Package builtin provides the plugins that ship with updatehauler.
package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/franksplace/updatehauler/internal/executor"
	"github.com/franksplace/updatehauler/pkg/config"
	"github.com/franksplace/updatehauler/pkg/plugin"
)

// All returns every built-in plugin in registration order.
func All() []plugin.Plugin {
	return []plugin.Plugin{
		NewBrew(),
		NewCargo(),
		NewNvim(""),
		NewOS(),
	}
}

// Enabled splits All into the plugins switched on in toggles and the names
// of those switched off.
func Enabled(toggles config.Plugins) (enabled []plugin.Plugin, disabled []string) {
	for _, p := range All() {
		if toggles.Enabled(p.Name()) {
			enabled = append(enabled, p)
		} else {
			disabled = append(disabled, p.Name())
		}
	}
	return enabled, disabled
}

// Register adds the enabled built-in plugins to r and returns the names of
// the disabled ones.
func Register(r *plugin.Registry, toggles config.Plugins) []string {
	enabled, disabled := Enabled(toggles)
	for _, p := range enabled {
		r.Register(p)
	}
	return disabled
}

// ensureParentDir creates the directory holding path. Nothing is created in
// dry-run mode.
func ensureParentDir(env *plugin.Env, path string) error {
	if env.DryRun() {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// probe reports whether a cargo subcommand or helper tool is installed.
func probe(ctx context.Context, env *plugin.Env, name string, args ...string) bool {
	return env.Runner.Probe(ctx, executor.Cmd(name, args...))
}

// shellQuote joins argv into a string safe to pass to sh -c.
func shellQuote(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		if arg != "" && strings.Trim(arg, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./=:,+@%") == "" {
			quoted[i] = arg
			continue
		}
		quoted[i] = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}
