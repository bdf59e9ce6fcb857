// Package runtime orchestrates one updatehauler invocation.
//
// A run resolves the requested action names, or the configured default list
// when none were given, and executes them strictly in order. Reserved
// commands (install, update, remove, install-completions, schedule) are the
// sole requested operation: they run first, propagate their errors, and end
// the run. Plugin actions are isolated from each other; a failing action is
// logged and the next one still runs.
//
// # Run Flow
//
//	1. Execute reserved commands, if any, and stop
//	2. Resolve default actions from their conditions
//	3. Log "<app> Main → Start"
//	4. Execute each action through the plugin registry
//	5. Log "<app> Main → End"
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/franksplace/updatehauler/internal/executor"
	"github.com/franksplace/updatehauler/pkg/config"
	"github.com/franksplace/updatehauler/pkg/insights"
	"github.com/franksplace/updatehauler/pkg/install"
	"github.com/franksplace/updatehauler/pkg/output"
	"github.com/franksplace/updatehauler/pkg/plugin"
	"github.com/franksplace/updatehauler/pkg/plugin/builtin"
	"github.com/franksplace/updatehauler/pkg/schedule"
)

// Reserved command names.
const (
	CmdTrimLogfile        = "trim-logfile"
	CmdSchedule           = "schedule"
	CmdInstall            = "install"
	CmdUpdate             = "update"
	CmdRemove             = "remove"
	CmdInstallCompletions = "install-completions"
)

// Options configures a Runtime.
type Options struct {
	Config   *config.Config
	Insights *insights.Insights
	Logger   *output.Logger

	// Registry replaces the built-in plugin set.
	Registry *plugin.Registry

	// Root is the command tree completions are generated from.
	Root *cobra.Command

	// Stdout receives help and install output. Defaults to os.Stdout.
	Stdout io.Writer
}

// Runtime executes actions for one invocation.
type Runtime struct {
	cfg      *config.Config
	insights *insights.Insights
	logger   *output.Logger
	runner   *executor.Runner
	registry *plugin.Registry
	disabled []string
	root     *cobra.Command
	stdout   io.Writer

	scheduler *schedule.Scheduler
}

// New creates a runtime. Without an explicit registry the built-in plugins
// enabled in the configuration are registered.
func New(opts Options) *Runtime {
	rt := &Runtime{
		cfg:      opts.Config,
		insights: opts.Insights,
		logger:   opts.Logger,
		registry: opts.Registry,
		root:     opts.Root,
		stdout:   opts.Stdout,
	}
	if rt.stdout == nil {
		rt.stdout = os.Stdout
	}

	rt.runner = executor.NewRunner(rt.logger, executor.Options{
		DryRun:     rt.cfg.DryRun,
		ShowHeader: rt.cfg.ShowHeader,
	})

	if rt.registry == nil {
		rt.registry = plugin.NewRegistry()
		rt.disabled = builtin.Register(rt.registry, rt.cfg.Plugins)
	}

	rt.scheduler = schedule.New(rt.cfg, rt.insights, rt.runner)
	return rt
}

// Registry returns the plugin registry.
func (rt *Runtime) Registry() *plugin.Registry {
	return rt.registry
}

// Runner returns the subprocess runner.
func (rt *Runtime) Runner() *executor.Runner {
	return rt.runner
}

// Env returns the collaborators handed to plugin verbs.
func (rt *Runtime) Env() *plugin.Env {
	return &plugin.Env{
		Config:   rt.cfg,
		Insights: rt.insights,
		Logger:   rt.logger,
		Runner:   rt.runner,
	}
}

// Run executes actions in order. Reserved commands return their error;
// plugin action failures are logged and never returned.
func (rt *Runtime) Run(ctx context.Context, actions []string) error {
	handled, err := rt.runReserved(ctx, actions)
	if handled || err != nil {
		return err
	}

	if len(actions) == 0 {
		actions, err = rt.DefaultActions()
		if err != nil {
			return err
		}
	}

	runID := uuid.NewString()
	rt.logger.Infof("%s Main → Start", rt.cfg.AppName)
	rt.logger.Debugf("run id %s, actions: %s", runID, strings.Join(actions, " "))

	env := rt.Env()
	for _, action := range actions {
		rt.runAction(ctx, action, env)
	}

	rt.logger.Infof("%s Main → End", rt.cfg.AppName)
	rt.logger.Debugf("run id %s finished", runID)
	return nil
}

func (rt *Runtime) runAction(ctx context.Context, action string, env *plugin.Env) {
	if action == CmdTrimLogfile {
		if err := rt.TrimLogfile(); err != nil {
			rt.logger.Errorf("%s failed: %v", CmdTrimLogfile, err)
		}
		return
	}

	if name := rt.disabledPlugin(action); name != "" {
		rt.logger.Errorf("Plugin %s is disabled in configuration", name)
		return
	}

	err := rt.registry.ExecuteAction(ctx, action, env)
	if err == nil {
		return
	}

	rt.logger.Error(err.Error())
	var actionErr *plugin.ActionError
	if errors.As(err, &actionErr) {
		rt.logger.Errorf("Run '%s --help' to see available actions", rt.cfg.AppName)
	}
}

func (rt *Runtime) disabledPlugin(action string) string {
	name, _, _ := strings.Cut(action, plugin.ActionSeparator)
	for _, disabled := range rt.disabled {
		if disabled == name && rt.registry.Plugin(name) == nil {
			return name
		}
	}
	return ""
}

// runReserved executes every reserved command in actions. It reports whether
// any was found.
func (rt *Runtime) runReserved(ctx context.Context, actions []string) (bool, error) {
	handled := false
	for i, action := range actions {
		var err error
		switch action {
		case CmdInstall:
			err = rt.installer().Install()
		case CmdUpdate:
			err = rt.installer().Update()
		case CmdRemove:
			err = rt.installer().Remove()
		case CmdInstallCompletions:
			err = rt.installCompletions(actions[i+1:])
		case CmdSchedule:
			qualifier := ""
			if i+1 < len(actions) {
				qualifier = actions[i+1]
			}
			err = rt.scheduler.Execute(ctx, qualifier)
		default:
			continue
		}
		if err != nil {
			return true, err
		}
		handled = true
	}
	return handled, nil
}

func (rt *Runtime) installer() *install.Installer {
	return install.NewInstaller(rt.cfg, rt.insights.AppAbsPath).WithOutput(rt.stdout)
}

func (rt *Runtime) installCompletions(args []string) error {
	if rt.root == nil {
		return fmt.Errorf("no command tree to generate completions from")
	}
	var shells []string
	for _, arg := range args {
		if rt.registry.IsReserved(arg) {
			break
		}
		shells = append(shells, arg)
	}
	return rt.installer().InstallCompletions(rt.root, shells)
}

// TrimLogfile keeps the last MaxLogLines lines of the log file.
func (rt *Runtime) TrimLogfile() error {
	path := rt.cfg.LogFile
	if rt.cfg.DryRun {
		rt.logger.Infof("Would trim log %s to %d %s", path, rt.cfg.MaxLogLines, executor.DryRunMarker)
		return nil
	}

	result, err := output.TrimLogfile(path, rt.cfg.MaxLogLines)
	if err != nil {
		return err
	}
	if result.Trimmed {
		rt.logger.Infof("Successfully trimmed log %s to %d", path, rt.cfg.MaxLogLines)
	}
	return nil
}

// PluginHelp writes the help page of the named plugin. Unknown plugins yield
// an error naming the available ones.
func (rt *Runtime) PluginHelp(w io.Writer, name string) error {
	p := rt.registry.Plugin(name)
	if p == nil {
		return fmt.Errorf("Unknown plugin: %s. Available plugins: %s", name, strings.Join(rt.registry.PluginNames(), ", "))
	}
	return plugin.RenderHelp(w, rt.cfg.AppName, p.Metadata())
}
