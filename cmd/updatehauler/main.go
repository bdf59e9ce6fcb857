// Package main implements the updatehauler CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/franksplace/updatehauler/internal/runtime"
	"github.com/franksplace/updatehauler/pkg/config"
	"github.com/franksplace/updatehauler/pkg/insights"
	"github.com/franksplace/updatehauler/pkg/output"
	"github.com/franksplace/updatehauler/pkg/plugin"
)

// Version is set at build time
var version = "dev"

const longHelp = `System package update manager for macOS and Linux.

Actions:
  brew               Update, upgrade, and clean brew formulas and casks
  brew-save          Save the brew bundle to Brewfile
  brew-restore       Restore from the brew bundle
  cargo              Upgrade cargo installed packages (requires cargo-install-update)
  cargo-save         Save cargo packages to backup JSON (requires cargo-backup)
  cargo-restore      Restore cargo packages from backup JSON (requires cargo-restore)
  nvim               Update neovim plugins (disabled unless enabled in config)
  os                 Update OS & app based packages
  schedule enable    Enable scheduled updates (cron on Linux, launchd on macOS)
  schedule disable   Disable scheduled updates
  schedule check     Check current scheduling status
  trim-logfile       Trim logfile to max lines
  install            Install this binary to the install directory
  update             Update the installed binary
  remove             Remove the installed binary
  install-completions [bash|zsh|fish]
                     Install shell completion scripts

Default actions (when none are given):
  os, brew, brew-save, cargo, cargo-save, trim-logfile`

const examples = `  updatehauler                       # Run all default actions
  updatehauler os                    # Update OS packages only
  updatehauler brew brew-save        # Update and save brew packages
  updatehauler brew help             # Show the actions of the brew plugin
  updatehauler --dry-run             # Show what would run
  updatehauler schedule enable       # Enable daily updates at 2 AM
  updatehauler --run "echo hello"    # Run arbitrary command`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	args, command, hasRun := splitRun(args)

	root := newRootCmd(command, hasRun)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func newRootCmd(command []string, hasRun bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:          config.AppName + " [flags] [action...]",
		Short:        "System package update manager for macOS and Linux",
		Long:         longHelp,
		Example:      examples,
		Version:      version,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, args, command, hasRun)
		},
	}
	cmd.SilenceErrors = true

	flags := cmd.PersistentFlags()
	config.RegisterFlags(flags)
	flags.String(flagRun, "", "Run arbitrary command (consumes all remaining arguments)")

	_ = cmd.MarkPersistentFlagFilename(config.FlagLogfile)
	_ = cmd.MarkPersistentFlagFilename(config.FlagConfigFile, "yaml", "yml")
	_ = cmd.MarkPersistentFlagDirname(config.FlagInstallDir)

	return cmd
}

func execute(cmd *cobra.Command, args, command []string, hasRun bool) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	in, err := insights.Detect()
	if err != nil {
		return fmt.Errorf("failed to detect system information: %w", err)
	}
	cfg.ResolveSaveFiles(in.OS, in.Arch)

	if !cfg.Color {
		pterm.DisableColor()
	}

	rt := runtime.New(runtime.Options{
		Config:   cfg,
		Insights: in,
		Logger:   output.NewLogger(cfg.LoggerOptions()),
		Root:     cmd.Root(),
		Stdout:   cmd.OutOrStdout(),
	})
	ctx := cmd.Context()

	if hasRun {
		if len(command) == 0 {
			return fmt.Errorf("--%s requires a command", flagRun)
		}
		code, err := rt.RunCommand(ctx, command)
		if err != nil {
			return err
		}
		if code != 0 {
			return &exitError{code: code}
		}
		return nil
	}

	if len(args) == 2 && args[1] == plugin.HelpArg && !rt.Registry().IsReserved(args[0]) {
		if err := rt.PluginHelp(cmd.OutOrStdout(), args[0]); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			return &exitError{code: 1}
		}
		return nil
	}

	return rt.Run(ctx, args)
}

// loadConfig layers defaults, the config file, the environment and flags.
func loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	configFile, err := fs.GetString(config.FlagConfigFile)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile})
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFlags(fs); err != nil {
		return nil, err
	}

	// Piped or scheduled output gets no escape codes unless asked for.
	if !config.ColorFlagGiven(fs) && !term.IsTerminal(int(os.Stdout.Fd())) {
		cfg.Color = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
