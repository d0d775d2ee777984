package converter

import (
	"context"
	"fmt"

	"github.com/itsthejuice/File-Converter/internal/deps"
	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/runner"
)

// Plugin binds a manifest to the module that implements it.
type Plugin struct {
	Manifest Manifest
	// Dir is the plugin directory for plugins loaded from disk.
	Dir    string
	module Module
}

// NewPlugin pairs a manifest with its module.
func NewPlugin(m Manifest, mod Module) *Plugin {
	return &Plugin{Manifest: m, module: mod}
}

func (p *Plugin) Name() string    { return p.Manifest.Name }
func (p *Plugin) Version() string { return p.Manifest.Version }

// Available re-checks the module's tool requirements.
func (p *Plugin) Available() bool {
	return p.module.Available()
}

// Missing returns the manifest tools that cannot be found on PATH.
func (p *Plugin) Missing() []string {
	return deps.Missing(deps.CheckBinaries(deps.Tools(p.Manifest.ToolRequires)))
}

func (p *Plugin) Capabilities() []Capability {
	return p.module.Capabilities()
}

// CapabilityFor returns the first capability covering src -> dst.
func (p *Plugin) CapabilityFor(srcMime, dstMime string) (Capability, bool) {
	for _, c := range p.Capabilities() {
		if c.Accepts(srcMime) && c.Produces(dstMime) {
			return c, true
		}
	}
	return Capability{}, false
}

func (p *Plugin) Plan(srcMime, dstMime string) (PlanInfo, error) {
	info, err := p.module.Plan(srcMime, dstMime)
	if err != nil {
		return PlanInfo{}, fmt.Errorf("plugin %s: plan: %w", p.Name(), err)
	}
	return info, nil
}

func (p *Plugin) Run(ctx context.Context, srcPath, dstPath, dstMime string, opts job.Options, onLine runner.LineFunc) error {
	return p.module.Run(ctx, srcPath, dstPath, dstMime, opts, onLine)
}

func (p *Plugin) String() string {
	return fmt.Sprintf("%s@%s", p.Manifest.Name, p.Manifest.Version)
}
