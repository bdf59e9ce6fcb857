// Package plugin defines the updatable-subsystem abstraction and the registry
// that maps action names onto plugin verbs.
//
// A plugin is one package-manager-like subsystem (Homebrew, cargo, the OS
// updater). It exposes three verbs and describes the actions a user can
// request:
//   - "<name>" runs Update
//   - "<name>-save" runs Save
//   - "<name>-restore" runs Restore
//   - any other "<name>-*" action is offered to CustomActionHandler first and
//     falls back to Update
//
// Plugins never spawn processes directly; all external commands go through
// the Env's Runner so dry-run and logging behave the same everywhere.
package plugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/franksplace/updatehauler/internal/executor"
	"github.com/franksplace/updatehauler/pkg/config"
	"github.com/franksplace/updatehauler/pkg/insights"
	"github.com/franksplace/updatehauler/pkg/output"
)

// Plugin is the interface every updatable subsystem implements.
type Plugin interface {
	// Name is the stable identifier, also the action-name prefix.
	Name() string

	// Metadata describes the plugin and its actions.
	Metadata() Metadata

	// Available reports whether the subsystem is present. It has no side
	// effects.
	Available(ctx context.Context, env *Env) bool

	// Update performs the primary upgrade. It is a successful no-op when the
	// plugin is not available.
	Update(ctx context.Context, env *Env) error

	// Save persists the current package set. A missing tool is logged as a
	// missing dependency and is not an error.
	Save(ctx context.Context, env *Env) error

	// Restore reloads a saved package set. A missing save file is logged as a
	// missing dependency and is not an error.
	Restore(ctx context.Context, env *Env) error
}

// CustomActionHandler is implemented by plugins with actions beyond
// update/save/restore.
type CustomActionHandler interface {
	// HandleCustomAction runs action and reports whether it was handled.
	HandleCustomAction(ctx context.Context, action string, env *Env) (bool, error)
}

// Env carries the run-wide collaborators passed to every plugin verb. All
// fields are read-only for the duration of a run.
type Env struct {
	Config   *config.Config
	Insights *insights.Insights
	Logger   *output.Logger
	Runner   *executor.Runner
}

// Run executes a significant command through the runner, logging spawn
// failures instead of returning them.
func (e *Env) Run(ctx context.Context, name string, args ...string) *executor.Result {
	return e.Runner.Exec(ctx, executor.Cmd(name, args...))
}

// RunDiagnostic executes a command whose non-zero exit is expected.
func (e *Env) RunDiagnostic(ctx context.Context, name string, args ...string) *executor.Result {
	return e.Runner.Exec(ctx, executor.Diagnostic(name, args...))
}

// DryRun reports whether the run only logs intended commands.
func (e *Env) DryRun() bool {
	return e.Config != nil && e.Config.DryRun
}

// Logf logs a progress line, marked as simulated in dry-run mode.
func (e *Env) Logf(format string, args ...any) {
	e.Logger.Info(e.mark(fmt.Sprintf(format, args...)))
}

// Errorf logs an error line, marked as simulated in dry-run mode.
func (e *Env) Errorf(format string, args ...any) {
	e.Logger.Error(e.mark(fmt.Sprintf(format, args...)))
}

// MissingDependency logs the standard missing-dependency error line.
func (e *Env) MissingDependency(format string, args ...any) {
	e.Logger.Error(e.mark("missing dependency — " + fmt.Sprintf(format, args...)))
}

func (e *Env) mark(msg string) string {
	if e.DryRun() {
		return msg + " " + executor.DryRunMarker
	}
	return msg
}

// ActionKind selects the plugin verb an action maps to.
type ActionKind int

const (
	// ActionCustom actions are offered to CustomActionHandler, then fall
	// back to Update.
	ActionCustom ActionKind = iota
	// ActionUpdate maps to Plugin.Update.
	ActionUpdate
	// ActionSave maps to Plugin.Save.
	ActionSave
	// ActionRestore maps to Plugin.Restore.
	ActionRestore
)

// String returns the lowercase kind name used in help output.
func (k ActionKind) String() string {
	switch k {
	case ActionUpdate:
		return "update"
	case ActionSave:
		return "save"
	case ActionRestore:
		return "restore"
	default:
		return "custom"
	}
}

// Action is one user-requestable operation.
type Action struct {
	Name        string
	Description string
	Kind        ActionKind
}

// Metadata describes a plugin for help output and action lookup.
type Metadata struct {
	Name        string
	Description string
	Actions     []Action
}

// Action returns the action with the given full name.
func (m Metadata) Action(name string) (Action, bool) {
	for _, a := range m.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// StandardActions builds the update/save/restore action triple for a plugin.
func StandardActions(name, update, save, restore string) []Action {
	return []Action{
		{Name: name, Description: update, Kind: ActionUpdate},
		{Name: name + "-save", Description: save, Kind: ActionSave},
		{Name: name + "-restore", Description: restore, Kind: ActionRestore},
	}
}

// PluginError wraps a failure returned by a plugin verb.
type PluginError struct {
	// PluginName is the name of the plugin that failed.
	PluginName string

	// Action is the action being executed.
	Action string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.PluginName, e.Action, e.Cause)
}

// Unwrap returns the underlying error.
func (e *PluginError) Unwrap() error {
	return e.Cause
}

// ActionError reports an action name that does not resolve to a plugin verb.
type ActionError struct {
	// Action is the name that was requested.
	Action string

	// Message explains the failure.
	Message string

	// Suggestions are similar known action names, at most three.
	Suggestions []string
}

// Error implements the error interface.
func (e *ActionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Invalid action: " + e.Action
	}
	if len(e.Suggestions) > 0 {
		msg += ". Did you mean: " + strings.Join(e.Suggestions, ", ") + "?"
	}
	return msg
}
