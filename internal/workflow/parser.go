package workflow

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Spec is a YAML-defined converter module.
type Spec struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Timeout     int               `yaml:"timeout"` // seconds, whole run
	Env         map[string]string `yaml:"env"`
	Available   *CheckSpec        `yaml:"available"`
	Plan        *PlanSpec         `yaml:"plan"`
	Targets     map[string]Target `yaml:"targets"` // keyed by destination MIME
}

// CheckSpec is a shell check; exit code 0 means the module can run.
type CheckSpec struct {
	Run     string `yaml:"run"`
	Timeout int    `yaml:"timeout"`
}

// PlanSpec is the static plan reported for every target.
type PlanSpec struct {
	Cost     float64  `yaml:"cost"`
	Lossless []string `yaml:"lossless"`
}

// Target lists the steps that produce one destination type.
type Target struct {
	Steps []Step `yaml:"steps"`
}

// Step is one shell command.
type Step struct {
	Name    string            `yaml:"name"`
	If      string            `yaml:"if"` // expr-lang condition, step runs when true
	Run     string            `yaml:"run"`
	Env     map[string]string `yaml:"env"`
	Workdir string            `yaml:"workdir"`
	Timeout int               `yaml:"timeout"`
	Silent  bool              `yaml:"silent"` // discard diagnostics
}

var (
	nameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	varRe  = regexp.MustCompile(`\{\{([A-Z_][A-Z0-9_]*)\}\}`)
)

// Parse decodes a workflow document.
func Parse(data []byte) (*Spec, error) {
	spec := &Spec{}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return spec, nil
}

// LoadFile reads and parses the workflow at path.
func LoadFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Validate returns every problem found in the workflow.
func (spec *Spec) Validate() []string {
	var problems []string

	if spec.Name == "" {
		problems = append(problems, "workflow name is required")
	} else if !nameRe.MatchString(spec.Name) {
		problems = append(problems, "workflow name must be alphanumeric with hyphens/underscores")
	}
	if spec.Timeout < 0 {
		problems = append(problems, "timeout must be non-negative")
	}

	if spec.Available == nil {
		problems = append(problems, "missing entry point: available")
	} else {
		if spec.Available.Run == "" {
			problems = append(problems, "available: run command is required")
		}
		if spec.Available.Timeout < 0 {
			problems = append(problems, "available: timeout must be non-negative")
		}
	}

	if spec.Plan == nil {
		problems = append(problems, "missing entry point: plan")
	} else if spec.Plan.Cost < 0 {
		problems = append(problems, "plan: cost must be non-negative")
	}

	if len(spec.Targets) == 0 {
		problems = append(problems, "missing entry point: targets")
	}
	for _, mime := range spec.TargetTypes() {
		steps := spec.Targets[mime].Steps
		if len(steps) == 0 {
			problems = append(problems, fmt.Sprintf("target %s: at least one step is required", mime))
		}
		for i, step := range steps {
			if step.Name == "" {
				problems = append(problems, fmt.Sprintf("target %s step %d: name is required", mime, i))
			}
			if step.Run == "" {
				problems = append(problems, fmt.Sprintf("target %s step %d (%s): run command is required", mime, i, step.Name))
			}
			if step.Timeout < 0 {
				problems = append(problems, fmt.Sprintf("target %s step %d (%s): timeout must be non-negative", mime, i, step.Name))
			}
			if step.If != "" {
				if _, err := compileCondition(step.If); err != nil {
					problems = append(problems, fmt.Sprintf("target %s step %d (%s): invalid if: %v", mime, i, step.Name, err))
				}
			}
		}
	}
	return problems
}

// TargetTypes returns the destination types in sorted order.
func (spec *Spec) TargetTypes() []string {
	out := make([]string, 0, len(spec.Targets))
	for k := range spec.Targets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Variables returns every {{VAR}} referenced by the workflow, sorted.
func (spec *Spec) Variables() []string {
	vars := make(map[string]bool)
	for _, v := range spec.Env {
		extractVariables(v, vars)
	}
	if spec.Available != nil {
		extractVariables(spec.Available.Run, vars)
	}
	for _, t := range spec.Targets {
		for _, step := range t.Steps {
			extractVariables(step.Run, vars)
			extractVariables(step.Workdir, vars)
			for _, v := range step.Env {
				extractVariables(v, vars)
			}
		}
	}
	out := make([]string, 0, len(vars))
	for k := range vars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func extractVariables(text string, vars map[string]bool) {
	for _, match := range varRe.FindAllStringSubmatch(text, -1) {
		vars[match[1]] = true
	}
}
