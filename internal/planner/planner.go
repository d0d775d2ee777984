// Package planner picks the plugin for a conversion.
package planner

import (
	"log/slog"
	"sort"

	"github.com/itsthejuice/File-Converter/internal/converter"
)

// Route is a resolved single-hop conversion.
type Route struct {
	Plugin  *converter.Plugin
	Info    converter.PlanInfo
	SrcMime string
	DstMime string
}

// Plan finds the first plugin that converts srcMime to dstMime and asks it
// for a plan. The second result is false when there is no route or the
// plugin could not plan; the latter is logged.
func Plan(srcMime, dstMime string, reg *converter.Registry, logger *slog.Logger) (*Route, bool) {
	p, ok := reg.FindPluginFor(srcMime, dstMime)
	if !ok {
		return nil, false
	}
	info, err := p.Plan(srcMime, dstMime)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("planning failed", "plugin", p.Name(), "src", srcMime, "dst", dstMime, "error", err)
		return nil, false
	}
	return &Route{Plugin: p, Info: info, SrcMime: srcMime, DstMime: dstMime}, true
}

// SupportedOutputsFor lists, sorted, every output an available plugin can
// produce from srcMime.
func SupportedOutputsFor(srcMime string, reg *converter.Registry) []string {
	set := make(map[string]struct{})
	for _, p := range reg.AvailablePlugins() {
		for _, c := range p.Capabilities() {
			if !c.Accepts(srcMime) {
				continue
			}
			for _, out := range c.Outputs {
				set[out] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
