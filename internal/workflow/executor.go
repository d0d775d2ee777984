package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/runner"
)

const defaultCheckTimeout = 10 * time.Second

// Context is the input of one workflow run.
type Context struct {
	InputFile  string
	OutputFile string
	DstMime    string
	TempDir    string
	Options    job.Options
}

// Command is a rendered step ready to execute.
type Command struct {
	Step    string
	Script  string
	Dir     string
	Env     []string
	Silent  bool
	Timeout time.Duration
}

// Executor renders and runs a Spec.
type Executor struct {
	spec *Spec
}

func NewExecutor(spec *Spec) *Executor {
	return &Executor{spec: spec}
}

// Variables returns the template variables for c.
func (e *Executor) Variables(c Context) map[string]string {
	base := filepath.Base(c.InputFile)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(base)), ".")
	vars := map[string]string{
		"INPUT_FILE":     c.InputFile,
		"INPUT_DIR":      filepath.Dir(c.InputFile),
		"INPUT_BASENAME": strings.TrimSuffix(base, filepath.Ext(base)),
		"INPUT_FILE_EXT": ext,
		"OUTPUT_FILE":    c.OutputFile,
		"OUTPUT_DIR":     filepath.Dir(c.OutputFile),
		"TMP_DIR":        c.TempDir,
		"DST_MIME":       c.DstMime,
	}
	for k, v := range c.Options {
		vars["OPT_"+optionVarName(k)] = v.String()
	}
	return vars
}

// Commands renders the steps for c.DstMime, dropping steps whose condition
// is false. It has no side effects.
func (e *Executor) Commands(c Context) ([]Command, error) {
	target, ok := e.spec.Targets[c.DstMime]
	if !ok {
		return nil, fmt.Errorf("workflow %s: no target for %s", e.spec.Name, c.DstMime)
	}
	vars := e.Variables(c)
	env := conditionEnv(c, vars)

	var cmds []Command
	for _, step := range target.Steps {
		if step.If != "" {
			run, err := evalCondition(step.If, env)
			if err != nil {
				return nil, fmt.Errorf("step %s: %w", step.Name, err)
			}
			if !run {
				continue
			}
		}
		dir := c.TempDir
		if step.Workdir != "" {
			dir = strings.Trim(ReplaceVariables(step.Workdir, vars), "'")
		}
		cmds = append(cmds, Command{
			Step:    step.Name,
			Script:  ReplaceVariables(step.Run, vars),
			Dir:     dir,
			Env:     append(renderEnv(e.spec.Env, vars), renderEnv(step.Env, vars)...),
			Silent:  step.Silent,
			Timeout: time.Duration(step.Timeout) * time.Second,
		})
	}
	return cmds, nil
}

// Execute runs the rendered steps in order through /bin/sh. Diagnostics of
// non-silent steps go to onLine.
func (e *Executor) Execute(ctx context.Context, c Context, onLine runner.LineFunc) error {
	cmds, err := e.Commands(c)
	if err != nil {
		return err
	}
	if e.spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.spec.Timeout)*time.Second)
		defer cancel()
	}
	for _, cmd := range cmds {
		if err := runStep(ctx, cmd, onLine); err != nil {
			return fmt.Errorf("step '%s' failed: %w", cmd.Step, err)
		}
	}
	return nil
}

func runStep(ctx context.Context, cmd Command, onLine runner.LineFunc) error {
	if cmd.Dir != "" {
		if err := os.MkdirAll(cmd.Dir, 0o755); err != nil {
			return fmt.Errorf("failed to create working directory: %w", err)
		}
	}
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}
	forward := onLine
	if cmd.Silent {
		forward = nil
	}
	return runner.RunCmd(ctx, runner.Cmd{
		Argv: []string{"/bin/sh", "-c", cmd.Script},
		Dir:  cmd.Dir,
		Env:  cmd.Env,
	}, forward)
}

// CheckAvailable runs the available hook. A non-zero exit means unavailable.
func (e *Executor) CheckAvailable(ctx context.Context) bool {
	if e.spec.Available == nil || e.spec.Available.Run == "" {
		return false
	}
	timeout := defaultCheckTimeout
	if e.spec.Available.Timeout > 0 {
		timeout = time.Duration(e.spec.Available.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := runner.RunCmd(ctx, runner.Cmd{
		Argv: []string{"/bin/sh", "-c", e.spec.Available.Run},
		Env:  renderEnv(e.spec.Env, nil),
	}, nil)
	return err == nil
}

// ReplaceVariables substitutes {{VAR}} with the shell-quoted value. Unknown
// variables are left as is.
func ReplaceVariables(text string, vars map[string]string) string {
	return varRe.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-2]
		if value, ok := vars[name]; ok {
			return shellEscape(value)
		}
		return match
	})
}

func shellEscape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func renderEnv(env map[string]string, vars map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(env))
	for _, k := range keys {
		v := env[k]
		if vars != nil {
			v = strings.Trim(ReplaceVariables(v, vars), "'")
		}
		out = append(out, k+"="+v)
	}
	return out
}

func optionVarName(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

func conditionEnv(c Context, vars map[string]string) map[string]any {
	opts := map[string]any{}
	if c.Options != nil {
		opts = c.Options.Map()
	}
	return map[string]any{
		"opts":     opts,
		"dst_mime": c.DstMime,
		"vars":     vars,
	}
}

func compileCondition(src string) (*vm.Program, error) {
	sample := map[string]any{
		"opts":     map[string]any{},
		"dst_mime": "",
		"vars":     map[string]string{},
	}
	return expr.Compile(src, expr.Env(sample), expr.AllowUndefinedVariables(), expr.AsBool())
}

func evalCondition(src string, env map[string]any) (bool, error) {
	program, err := compileCondition(src)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	b, _ := out.(bool)
	return b, nil
}
