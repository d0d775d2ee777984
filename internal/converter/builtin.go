package converter

import (
	"log/slog"
	"sort"
	"strings"
)

type builtinFactory func() (Manifest, Module)

// builtins are the modules compiled into the binary, addressable from a
// manifest entry as "builtin:<name>".
var builtins = map[string]builtinFactory{
	"ffmpeg": func() (Manifest, Module) {
		m := NewFFmpeg()
		return m.Manifest(), m
	},
	"imagemagick": func() (Manifest, Module) {
		m := NewImageMagick()
		return m.Manifest(), m
	},
}

// BuiltinNames lists the compiled-in modules.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltins registers the named compiled-in plugins in the given
// order. Unknown names are logged and skipped. An empty list registers none.
func (r *Registry) RegisterBuiltins(names []string) int {
	if len(names) == 0 {
		r.logger.Info("no builtin converters enabled")
		return 0
	}

	registered := 0
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		factory, ok := builtins[name]
		if !ok {
			r.logger.Warn("unknown builtin converter", "name", name, "known", BuiltinNames())
			continue
		}
		manifest, mod := factory()
		if err := r.Register(NewPlugin(manifest, mod)); err != nil {
			r.logger.Warn("skipping builtin converter", "name", name, "error", err)
			continue
		}
		r.logger.Debug("registered builtin converter", "plugin", manifest.Name, "version", manifest.Version)
		registered++
	}
	r.logger.Info("registered builtin converters", slog.Int("count", registered))
	return registered
}
