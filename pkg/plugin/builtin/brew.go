package builtin

import (
	"context"

	"github.com/franksplace/updatehauler/internal/executor"
	"github.com/franksplace/updatehauler/pkg/plugin"
)

// Brew updates Homebrew formulas and casks and keeps a Brewfile snapshot.
type Brew struct{}

// NewBrew creates the Homebrew plugin.
func NewBrew() *Brew {
	return &Brew{}
}

// Name implements plugin.Plugin.
func (b *Brew) Name() string {
	return "brew"
}

// Metadata implements plugin.Plugin.
func (b *Brew) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "brew",
		Description: "Update, upgrade, and clean brew formulas and casks",
		Actions: plugin.StandardActions("brew",
			"Update, upgrade, and clean brew formulas and casks",
			"Save the brew bundle to Brewfile",
			"Restore from the brew bundle",
		),
	}
}

// Available implements plugin.Plugin.
func (b *Brew) Available(_ context.Context, env *plugin.Env) bool {
	return env.Insights != nil && env.Insights.HasBrew
}

// updateSteps are run in order; doctor is informational and often non-zero.
var brewUpdateSteps = []executor.Command{
	executor.Cmd("brew", "update"),
	executor.Cmd("brew", "upgrade"),
	executor.Cmd("brew", "cleanup", "-q"),
	executor.Diagnostic("brew", "doctor", "-q"),
	executor.Cmd("brew", "upgrade", "--cask"),
	executor.Cmd("brew", "cu", "-a", "-f", "--cleanup", "-y"),
	executor.Cmd("brew", "cleanup", "-q"),
	executor.Diagnostic("brew", "doctor", "--verbose"),
}

// Update implements plugin.Plugin.
func (b *Brew) Update(ctx context.Context, env *plugin.Env) error {
	if !b.Available(ctx, env) {
		env.MissingDependency("brew (Homebrew) is not installed")
		return nil
	}
	for _, step := range brewUpdateSteps {
		env.Runner.Exec(ctx, step)
	}
	return nil
}

// Save implements plugin.Plugin.
func (b *Brew) Save(ctx context.Context, env *plugin.Env) error {
	if !b.Available(ctx, env) {
		env.MissingDependency("brew (Homebrew) is not installed")
		return nil
	}

	file := env.Config.BrewFile
	if err := ensureParentDir(env, file); err != nil {
		return err
	}

	env.Logf("Generating brew's %s save file", file)
	if env.Run(ctx, "brew", "bundle", "dump", "--force", "--file", file).Success() {
		env.Logf("Success savefile written")
	}
	return nil
}

// Restore implements plugin.Plugin.
func (b *Brew) Restore(ctx context.Context, env *plugin.Env) error {
	file := env.Config.BrewFile
	if !fileExists(file) {
		env.MissingDependency("%s brew's backup file is not found", file)
		return nil
	}
	if !b.Available(ctx, env) {
		env.MissingDependency("brew (Homebrew) is not installed")
		return nil
	}

	env.Run(ctx, "brew", "bundle", "--file", file)
	return nil
}
