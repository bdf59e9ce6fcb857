package builtin

import (
	"context"

	"github.com/franksplace/updatehauler/pkg/plugin"
)

// Cargo upgrades crates installed with cargo install and snapshots them with
// cargo-backup.
type Cargo struct{}

// NewCargo creates the cargo plugin.
func NewCargo() *Cargo {
	return &Cargo{}
}

// Name implements plugin.Plugin.
func (c *Cargo) Name() string {
	return "cargo"
}

// Metadata implements plugin.Plugin.
func (c *Cargo) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "cargo",
		Description: "Upgrade cargo installed packages",
		Actions: plugin.StandardActions("cargo",
			"Upgrade cargo installed packages (requires cargo-install-update)",
			"Save cargo packages to backup JSON (requires cargo-backup)",
			"Restore cargo packages from backup JSON (requires cargo-restore)",
		),
	}
}

// Available implements plugin.Plugin.
func (c *Cargo) Available(_ context.Context, env *plugin.Env) bool {
	return env.Insights != nil && env.Insights.HasCargo
}

// Update implements plugin.Plugin.
func (c *Cargo) Update(ctx context.Context, env *plugin.Env) error {
	if !c.Available(ctx, env) {
		env.MissingDependency("cargo is not installed")
		return nil
	}
	if !probe(ctx, env, "cargo", "install-update", "--version") {
		env.MissingDependency("cargo-install-update is not installed (cargo install cargo-update)")
		return nil
	}

	env.Run(ctx, "cargo", "install-update", "-a")
	return nil
}

// Save implements plugin.Plugin.
func (c *Cargo) Save(ctx context.Context, env *plugin.Env) error {
	if !c.Available(ctx, env) {
		env.MissingDependency("cargo is not installed")
		return nil
	}
	if !probe(ctx, env, "cargo", "backup", "--version") {
		env.MissingDependency("cargo-backup is not installed (cargo install cargo-backup)")
		return nil
	}

	file := env.Config.CargoFile
	if err := ensureParentDir(env, file); err != nil {
		return err
	}

	env.Logf("Generating cargo's %s save file", file)
	if env.Run(ctx, "cargo", "backup", "-o", file).Success() {
		env.Logf("Success savefile written")
	}
	return nil
}

// Restore implements plugin.Plugin.
func (c *Cargo) Restore(ctx context.Context, env *plugin.Env) error {
	file := env.Config.CargoFile
	if !fileExists(file) {
		env.MissingDependency("%s cargo's backup json file is not found", file)
		return nil
	}
	if !c.Available(ctx, env) {
		env.MissingDependency("cargo is not installed")
		return nil
	}
	if !probe(ctx, env, "cargo", "restore", "--version") {
		env.MissingDependency("cargo-restore is not installed (cargo install cargo-backup)")
		return nil
	}

	env.Run(ctx, "cargo", "restore", "--yes", "--skip-update", "--skip-remove", "--backup", file)
	return nil
}
