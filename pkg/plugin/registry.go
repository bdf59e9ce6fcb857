package plugin

import (
	"context"
	"strings"
	"sync"
)

// ActionSeparator splits a plugin name from the rest of an action name.
const ActionSeparator = "-"

// ReservedCommands are handled outside the registry but still count as known
// names for suggestions.
var ReservedCommands = []string{
	"trim-logfile",
	"schedule",
	"install",
	"update",
	"remove",
	"install-completions",
}

// Registry holds the registered plugins in registration order. Lookups return
// the first match; colliding names registered later are unreachable.
type Registry struct {
	plugins  []Plugin
	reserved []string
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry that knows the reserved commands.
func NewRegistry() *Registry {
	return &Registry{
		reserved: append([]string(nil), ReservedCommands...),
	}
}

// Register appends p. Duplicates are not rejected.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, p)
}

// Plugin returns the first plugin named name, or nil.
func (r *Registry) Plugin(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Plugins returns the registered plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Plugin(nil), r.plugins...)
}

// PluginNames returns the registered plugin names in registration order.
func (r *Registry) PluginNames() []string {
	plugins := r.Plugins()
	names := make([]string, 0, len(plugins))
	for _, p := range plugins {
		names = append(names, p.Name())
	}
	return names
}

// ActionByName scans every plugin's metadata in registration order and
// returns the first action with exactly this name.
func (r *Registry) ActionByName(name string) (Action, bool) {
	for _, p := range r.Plugins() {
		if action, ok := p.Metadata().Action(name); ok {
			return action, true
		}
	}
	return Action{}, false
}

// AllMetadata returns the metadata of every plugin in registration order.
func (r *Registry) AllMetadata() []Metadata {
	plugins := r.Plugins()
	all := make([]Metadata, 0, len(plugins))
	for _, p := range plugins {
		all = append(all, p.Metadata())
	}
	return all
}

// ActionNames returns every known action name: plugin actions in
// registration order followed by the reserved commands. Suggestions are
// drawn in this order.
func (r *Registry) ActionNames() []string {
	var names []string
	for _, meta := range r.AllMetadata() {
		for _, a := range meta.Actions {
			names = append(names, a.Name)
		}
	}
	return append(names, r.reserved...)
}

// IsReserved reports whether name is a command handled outside the registry.
func (r *Registry) IsReserved(name string) bool {
	for _, reserved := range r.reserved {
		if reserved == name {
			return true
		}
	}
	return false
}

// ExecuteAction resolves name to a plugin verb and runs it. Names that do not
// resolve yield an *ActionError carrying up to three suggestions; verb
// failures are wrapped in a *PluginError.
func (r *Registry) ExecuteAction(ctx context.Context, name string, env *Env) error {
	pluginName, _, hasSuffix := strings.Cut(name, ActionSeparator)

	p := r.Plugin(pluginName)
	if p == nil {
		return r.invalid(name)
	}

	if !hasSuffix {
		return wrap(p, name, p.Update(ctx, env))
	}

	action, ok := p.Metadata().Action(name)
	if !ok {
		return r.invalid(name)
	}

	switch action.Kind {
	case ActionUpdate:
		return wrap(p, name, p.Update(ctx, env))
	case ActionSave:
		return wrap(p, name, p.Save(ctx, env))
	case ActionRestore:
		return wrap(p, name, p.Restore(ctx, env))
	}

	if handler, ok := p.(CustomActionHandler); ok {
		handled, err := handler.HandleCustomAction(ctx, name, env)
		if err != nil {
			return wrap(p, name, err)
		}
		if handled {
			return nil
		}
	}
	return wrap(p, name, p.Update(ctx, env))
}

func (r *Registry) invalid(name string) error {
	return &ActionError{
		Action:      name,
		Suggestions: r.FindSimilar(name),
	}
}

func wrap(p Plugin, action string, err error) error {
	if err == nil {
		return nil
	}
	return &PluginError{PluginName: p.Name(), Action: action, Cause: err}
}
