package converter

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds loaded plugins in registration order.
type Registry struct {
	mu       sync.RWMutex
	plugins  []*Plugin
	disabled map[string]bool
	logger   *slog.Logger
}

// NewRegistry returns an empty registry. A nil logger uses slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		disabled: make(map[string]bool),
		logger:   logger,
	}
}

// Register appends p. Names must be unique.
func (r *Registry) Register(p *Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin %q already registered", p.Name())
		}
	}
	r.plugins = append(r.plugins, p)
	return nil
}

// Get retrieves a plugin by name.
func (r *Registry) Get(name string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plugins {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Plugins returns every registered plugin, available or not.
func (r *Registry) Plugins() []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// AvailablePlugins returns enabled plugins whose tools are present right now.
func (r *Registry) AvailablePlugins() []*Plugin {
	r.mu.RLock()
	candidates := make([]*Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		if !r.disabled[p.Name()] {
			candidates = append(candidates, p)
		}
	}
	r.mu.RUnlock()

	out := candidates[:0]
	for _, p := range candidates {
		if p.Available() {
			out = append(out, p)
		}
	}
	return out
}

// FindPluginFor returns the first available plugin with a capability that
// accepts srcMime and produces dstMime.
func (r *Registry) FindPluginFor(srcMime, dstMime string) (*Plugin, bool) {
	for _, p := range r.AvailablePlugins() {
		if _, ok := p.CapabilityFor(srcMime, dstMime); ok {
			return p, true
		}
	}
	return nil, false
}

// AllOutputFormats is the sorted union of outputs across available plugins.
func (r *Registry) AllOutputFormats() []string {
	set := make(map[string]struct{})
	for _, p := range r.AvailablePlugins() {
		for _, c := range p.Capabilities() {
			for _, out := range c.Outputs {
				set[out] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

// AllInputFormats is the sorted union of input patterns across available plugins.
func (r *Registry) AllInputFormats() []string {
	set := make(map[string]struct{})
	for _, p := range r.AvailablePlugins() {
		for _, c := range p.Capabilities() {
			for _, in := range c.Inputs {
				set[in] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

// Info describes every registered plugin.
func (r *Registry) Info() []Info {
	plugins := r.Plugins()
	infos := make([]Info, 0, len(plugins))
	for _, p := range plugins {
		enabled := r.IsEnabled(p.Name())
		infos = append(infos, Info{
			Name:         p.Name(),
			Version:      p.Version(),
			Entry:        p.Manifest.Entry,
			Dir:          p.Dir,
			Inputs:       p.Manifest.Inputs(),
			Outputs:      p.Manifest.Outputs(),
			ToolRequires: p.Manifest.ToolRequires,
			Missing:      p.Missing(),
			Enabled:      enabled,
			Available:    enabled && p.Available(),
		})
	}
	return infos
}

// Enable re-enables a disabled plugin.
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.has(name) {
		return fmt.Errorf("plugin not found: %s", name)
	}
	delete(r.disabled, name)
	return nil
}

// Disable hides a plugin from routing without unloading it.
func (r *Registry) Disable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.has(name) {
		return fmt.Errorf("plugin not found: %s", name)
	}
	r.disabled[name] = true
	return nil
}

func (r *Registry) IsEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.disabled[name]
}

func (r *Registry) has(name string) bool {
	for _, p := range r.plugins {
		if p.Name() == name {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
