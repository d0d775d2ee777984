package converter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/itsthejuice/File-Converter/internal/workflow"
)

// BuiltinPrefix marks an entry that names a compiled-in module.
const BuiltinPrefix = "builtin:"

// Load registers every valid plugin found in the immediate subdirectories of
// dir and returns how many were added. Invalid plugins are skipped with a
// warning.
func (r *Registry) Load(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("plugin directory does not exist", "dir", dir)
		} else {
			r.logger.Warn("cannot read plugin directory", "dir", dir, "error", err)
		}
		return 0
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	loaded := 0
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		pluginDir := filepath.Join(dir, e.Name())
		p, err := LoadPlugin(pluginDir)
		if err != nil {
			r.logger.Warn("skipping plugin", "dir", pluginDir, "error", err)
			continue
		}
		if err := r.Register(p); err != nil {
			r.logger.Warn("skipping plugin", "dir", pluginDir, "error", err)
			continue
		}
		r.logger.Info("loaded plugin", "plugin", p.Name(), "version", p.Version(), "entry", p.Manifest.Entry)
		loaded++
	}
	return loaded
}

// LoadPlugin reads the manifest in dir and resolves its entry module.
func LoadPlugin(dir string) (*Plugin, error) {
	manifestPath := filepath.Join(dir, ManifestFile)
	if _, err := os.Stat(manifestPath); err != nil {
		return nil, fmt.Errorf("no %s: %w", ManifestFile, err)
	}
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	mod, err := resolveEntry(dir, m)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", m.Entry, err)
	}
	p := NewPlugin(m, mod)
	p.Dir = dir
	return p, nil
}

func resolveEntry(dir string, m Manifest) (Module, error) {
	if name, ok := strings.CutPrefix(m.Entry, BuiltinPrefix); ok {
		factory, ok := builtins[name]
		if !ok {
			return nil, fmt.Errorf("unknown builtin module %q", name)
		}
		_, mod := factory()
		return mod, nil
	}

	path := m.Entry
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, errors.New("workflow module must live inside the plugin directory")
	}
	spec, err := workflow.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if problems := spec.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("workflow validation failed: %s", strings.Join(problems, "; "))
	}
	for _, out := range m.Outputs() {
		if _, ok := spec.Targets[out]; !ok {
			return nil, fmt.Errorf("workflow has no run target for declared output %s", out)
		}
	}
	return NewWorkflowModule(m, spec, dir), nil
}
