package builtin

import (
	"context"
	"errors"

	"github.com/franksplace/updatehauler/internal/executor"
	"github.com/franksplace/updatehauler/pkg/plugin"
)

// ErrUnsupportedOS is returned by the os plugin when no update recipe exists
// for the host.
var ErrUnsupportedOS = errors.New("OS not supported for updates")

// linuxUpdates lists the commands run for each native package manager.
var linuxUpdates = map[string][][]string{
	"dnf": {
		{"dnf", "-y", "update"},
		{"dnf", "-y", "upgrade"},
		{"dnf", "-y", "update"},
	},
	"apt-get": {
		{"apt-get", "-y", "update"},
		{"apt-get", "-y", "upgrade"},
		{"apt-get", "-y", "update"},
	},
	"apk": {
		{"apk", "update"},
		{"apk", "-U", "upgrade"},
		{"apk", "update"},
	},
	"nix-env": {
		{"nix-channel", "--update"},
		{"nix-env", "-u", "*"},
	},
	"pacman": {
		{"pacman", "-Syu", "--noconfirm"},
	},
}

// OS runs the host's native system updater.
type OS struct{}

// NewOS creates the operating system plugin.
func NewOS() *OS {
	return &OS{}
}

// Name implements plugin.Plugin.
func (o *OS) Name() string {
	return "os"
}

// Metadata implements plugin.Plugin.
func (o *OS) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "os",
		Description: "Operating system updates",
		Actions: plugin.StandardActions("os",
			"Run OS updates (softwareupdate on macOS, the native package manager on Linux)",
			"No-op: OS packages are managed by the system package manager",
			"No-op: OS packages are managed by the system package manager",
		),
	}
}

// Available implements plugin.Plugin.
func (o *OS) Available(_ context.Context, env *plugin.Env) bool {
	if env.Insights == nil {
		return false
	}
	if env.Insights.IsDarwin {
		return true
	}
	_, ok := linuxUpdates[env.Insights.PkgMgr]
	return env.Insights.IsLinux && ok
}

// Update implements plugin.Plugin.
func (o *OS) Update(ctx context.Context, env *plugin.Env) error {
	switch {
	case env.Insights == nil:
		return ErrUnsupportedOS
	case env.Insights.IsDarwin:
		o.updateDarwin(ctx, env)
		return nil
	case env.Insights.IsLinux:
		return o.updateLinux(ctx, env)
	default:
		env.Errorf("%v", ErrUnsupportedOS)
		return nil
	}
}

func (o *OS) updateDarwin(ctx context.Context, env *plugin.Env) {
	update := []string{"softwareupdate", "-a", "-i", "--verbose"}
	if env.Insights.IsRoot {
		env.Runner.Exec(ctx, executor.Diagnostic(update[0], update[1:]...))
	} else if _, err := env.Runner.Run(ctx, executor.Diagnostic("sudo", update...)); err != nil {
		env.Logger.Infof("sudo %s → Error: %v, retrying without sudo", update[0], err)
		env.Runner.Exec(ctx, executor.Diagnostic(update[0], update[1:]...))
	}

	if env.Insights.HasMas && probe(ctx, env, "mas", "version") {
		env.Run(ctx, "mas", "update")
	}
}

func (o *OS) updateLinux(ctx context.Context, env *plugin.Env) error {
	steps, ok := linuxUpdates[env.Insights.PkgMgr]
	if !ok {
		env.Errorf("%v", ErrUnsupportedOS)
		return nil
	}
	for _, argv := range steps {
		env.Runner.Exec(ctx, elevate(env, argv))
	}
	return nil
}

// elevate wraps argv in sudo sh -c when not running as root.
func elevate(env *plugin.Env, argv []string) executor.Command {
	if env.Insights.IsRoot {
		return executor.Cmd(argv[0], argv[1:]...)
	}
	return executor.Cmd("sudo", "sh", "-c", shellQuote(argv))
}

// Save implements plugin.Plugin.
func (o *OS) Save(_ context.Context, env *plugin.Env) error {
	env.Logf("OS packages are managed by the system package manager - no save needed")
	return nil
}

// Restore implements plugin.Plugin.
func (o *OS) Restore(_ context.Context, env *plugin.Env) error {
	env.Logf("OS packages are managed by the system package manager - no restore needed")
	return nil
}
