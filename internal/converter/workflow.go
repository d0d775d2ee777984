package converter

import (
	"context"
	"fmt"
	"os"

	"github.com/itsthejuice/File-Converter/internal/deps"
	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/runner"
	"github.com/itsthejuice/File-Converter/internal/workflow"
)

// WorkflowModule is a Module defined by a YAML workflow next to the manifest.
type WorkflowModule struct {
	manifest Manifest
	spec     *workflow.Spec
	executor *workflow.Executor
	dir      string
}

// NewWorkflowModule wraps a validated workflow spec.
func NewWorkflowModule(m Manifest, spec *workflow.Spec, dir string) *WorkflowModule {
	return &WorkflowModule{
		manifest: m,
		spec:     spec,
		executor: workflow.NewExecutor(spec),
		dir:      dir,
	}
}

// Available requires the manifest tools and a passing available hook.
func (w *WorkflowModule) Available() bool {
	if !deps.Have(w.manifest.ToolRequires...) {
		return false
	}
	return w.executor.CheckAvailable(context.Background())
}

func (w *WorkflowModule) Capabilities() []Capability {
	return w.manifest.Capabilities
}

func (w *WorkflowModule) Plan(srcMime, dstMime string) (PlanInfo, error) {
	if _, ok := w.spec.Targets[dstMime]; !ok {
		return PlanInfo{}, fmt.Errorf("workflow %s has no target for %s", w.spec.Name, dstMime)
	}
	info := PlanInfo{Cost: w.spec.Plan.Cost, Lossiness: Lossy}
	if info.Cost == 0 {
		info.Cost = 1.0
	}
	for _, m := range w.spec.Plan.Lossless {
		if m == dstMime {
			info.Lossiness = Lossless
			break
		}
	}
	return info, nil
}

func (w *WorkflowModule) Run(ctx context.Context, srcPath, dstPath, dstMime string, opts job.Options, onLine runner.LineFunc) error {
	tmpDir, err := os.MkdirTemp("", "fileconv-workflow-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	return w.executor.Execute(ctx, workflow.Context{
		InputFile:  srcPath,
		OutputFile: dstPath,
		DstMime:    dstMime,
		TempDir:    tmpDir,
		Options:    w.withDefaults(dstMime, opts),
	}, onLine)
}

// withDefaults fills parameters the caller left out from the capability
// that produces dstMime.
func (w *WorkflowModule) withDefaults(dstMime string, opts job.Options) job.Options {
	out := opts.Clone()
	for _, c := range w.manifest.Capabilities {
		if !c.Produces(dstMime) {
			continue
		}
		for name, spec := range c.Params {
			if _, set := out[name]; set {
				continue
			}
			if v, ok := spec.DefaultValue(); ok {
				out[name] = v
			}
		}
	}
	return out
}
