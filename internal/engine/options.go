package engine

import (
	"github.com/itsthejuice/File-Converter/internal/job"
)

// PresetKey is the option naming a preset for the destination type.
const PresetKey = "preset"

// MergePresetOptions overlays opts on preset. Keys present in both take the
// value from opts.
func MergePresetOptions(preset, opts job.Options) job.Options {
	return preset.Merge(opts)
}

// resolveOptions expands a preset reference. When opts["preset"] names a
// preset for dstMime its values become the base, the reference itself is
// dropped and the remaining job options win. Any other value of "preset" is
// left alone since plugins may use it as a parameter of their own.
func (e *Engine) resolveOptions(dstMime string, opts job.Options) (job.Options, string) {
	v, ok := opts[PresetKey]
	if !ok {
		return opts.Clone(), ""
	}
	name, ok := v.Str()
	if !ok {
		return opts.Clone(), ""
	}
	preset, ok := e.Presets.Lookup(dstMime, name)
	if !ok {
		return opts.Clone(), ""
	}
	rest := opts.Clone()
	delete(rest, PresetKey)
	return MergePresetOptions(preset, rest), name
}
