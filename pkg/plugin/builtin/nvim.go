package builtin

import (
	"context"
	"path/filepath"

	"github.com/franksplace/updatehauler/pkg/plugin"
)

// nvimManager describes one neovim plugin manager and the headless commands
// that drive it.
type nvimManager struct {
	name    string
	marker  string
	update  string
	restore string
	clean   string
}

// nvimManagers are checked in order; the first marker found wins.
var nvimManagers = []nvimManager{
	{
		name:    "lazy.nvim",
		marker:  "lazy-lock.json",
		update:  "+Lazy! sync",
		restore: "+Lazy! restore",
		clean:   "+Lazy! clean",
	},
	{
		name:    "packer.nvim",
		marker:  "packer_compiled.lua",
		update:  "+PackerSync",
		restore: "+PackerInstall",
		clean:   "+PackerClean",
	},
	{
		name:    "vim-plug",
		marker:  filepath.Join("autoload", "plug.vim"),
		update:  "+PlugUpdate --sync",
		restore: "+PlugInstall --sync",
		clean:   "+PlugClean!",
	},
}

const nvimCleanAction = "nvim-clean"

// Nvim keeps neovim plugins current through whichever plugin manager the
// user's configuration uses.
type Nvim struct {
	configDir string
}

// NewNvim creates the neovim plugin. An empty configDir resolves to
// ~/.config/nvim at run time.
func NewNvim(configDir string) *Nvim {
	return &Nvim{configDir: configDir}
}

// Name implements plugin.Plugin.
func (n *Nvim) Name() string {
	return "nvim"
}

// Metadata implements plugin.Plugin.
func (n *Nvim) Metadata() plugin.Metadata {
	actions := plugin.StandardActions("nvim",
		"Update neovim plugins (lazy.nvim, packer.nvim, or vim-plug)",
		"Report where the neovim plugin set is defined",
		"Restore neovim plugins from the lockfile or configuration",
	)
	actions = append(actions, plugin.Action{
		Name:        nvimCleanAction,
		Description: "Remove neovim plugins no longer in the configuration",
	})
	return plugin.Metadata{
		Name:        "nvim",
		Description: "Manage neovim plugins",
		Actions:     actions,
	}
}

func (n *Nvim) dir(env *plugin.Env) string {
	if n.configDir != "" {
		return n.configDir
	}
	if env.Config == nil {
		return ""
	}
	return filepath.Join(env.Config.Home, ".config", "nvim")
}

// detect returns the plugin manager configured under the nvim config dir.
func (n *Nvim) detect(env *plugin.Env) (nvimManager, bool) {
	dir := n.dir(env)
	if dir == "" {
		return nvimManager{}, false
	}
	for _, m := range nvimManagers {
		if fileExists(filepath.Join(dir, m.marker)) {
			return m, true
		}
	}
	return nvimManager{}, false
}

// Available implements plugin.Plugin.
func (n *Nvim) Available(_ context.Context, env *plugin.Env) bool {
	if env.Insights == nil || !env.Insights.HasNvim {
		return false
	}
	_, ok := n.detect(env)
	return ok
}

// manager resolves the plugin manager, logging why nothing can be done when
// it cannot.
func (n *Nvim) manager(env *plugin.Env) (nvimManager, bool) {
	if env.Insights == nil || !env.Insights.HasNvim {
		env.MissingDependency("nvim is not installed")
		return nvimManager{}, false
	}
	m, ok := n.detect(env)
	if !ok {
		env.Logf("No supported nvim plugin manager detected (lazy.nvim, packer.nvim, or vim-plug)")
	}
	return m, ok
}

func (n *Nvim) headless(ctx context.Context, env *plugin.Env, command string) {
	env.Run(ctx, "nvim", "--headless", command, "+qa")
}

// Update implements plugin.Plugin.
func (n *Nvim) Update(ctx context.Context, env *plugin.Env) error {
	m, ok := n.manager(env)
	if !ok {
		return nil
	}
	env.Logf("Updating %s plugins", m.name)
	n.headless(ctx, env, m.update)
	return nil
}

// Save implements plugin.Plugin. The plugin set already lives in the user's
// configuration, so there is nothing to write.
func (n *Nvim) Save(_ context.Context, env *plugin.Env) error {
	m, ok := n.manager(env)
	if !ok {
		return nil
	}
	env.Logf("%s plugins are defined in your %s configuration", m.name, m.name)
	return nil
}

// Restore implements plugin.Plugin.
func (n *Nvim) Restore(ctx context.Context, env *plugin.Env) error {
	m, ok := n.manager(env)
	if !ok {
		return nil
	}
	env.Logf("Restoring %s plugins", m.name)
	n.headless(ctx, env, m.restore)
	return nil
}

// HandleCustomAction implements plugin.CustomActionHandler.
func (n *Nvim) HandleCustomAction(ctx context.Context, action string, env *plugin.Env) (bool, error) {
	if action != nvimCleanAction {
		return false, nil
	}
	m, ok := n.manager(env)
	if !ok {
		return true, nil
	}
	env.Logf("Cleaning %s plugins", m.name)
	n.headless(ctx, env, m.clean)
	return true, nil
}
