package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/itsthejuice/File-Converter/internal/detect"
	"github.com/itsthejuice/File-Converter/internal/engine"
	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/planner"
)

type convertFlags struct {
	to     string
	from   string
	out    string
	opts   []string
	preset string
}

func (f *convertFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.to, "to", "t", "", "Target MIME type (required)")
	cmd.Flags().StringVar(&f.from, "from", "", "Source MIME type, detected when empty")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output directory, defaults to the configured one or the source directory")
	cmd.Flags().StringArrayVar(&f.opts, "opt", nil, "Conversion option as key=value (repeatable)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Named preset for the target type")
	_ = cmd.MarkFlagRequired("to")
}

// jobOptions merges --opt pairs with --preset. An explicit preset option in
// --opt wins over the flag.
func (f *convertFlags) jobOptions() (job.Options, error) {
	opts, err := job.ParseOptions(f.opts)
	if err != nil {
		return nil, err
	}
	if f.preset != "" {
		if _, ok := opts[engine.PresetKey]; !ok {
			opts[engine.PresetKey] = job.StringValue(f.preset)
		}
	}
	return opts, nil
}

func (f *convertFlags) outputDir(ctx *commandContext) string {
	if strings.TrimSpace(f.out) != "" {
		return f.out
	}
	return ctx.config.OutputDir
}

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var to, from string
	cmd := &cobra.Command{
		Use:   "plan INPUT",
		Short: "Show which plugin would handle a conversion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := resolveSourceMIME(args[0], from)
			if err != nil {
				return err
			}
			dst := detect.Normalize(to)
			plan, ok := planner.Plan(src, dst, ctx.registryValue(), ctx.logger)
			if !ok {
				return &engine.NoRouteFoundError{Src: src, Dst: dst}
			}
			rows := [][]string{
				{"Source", src},
				{"Target", dst},
				{"Plugin", plan.Plugin.String()},
				{"Lossiness", string(plan.Info.Lossiness)},
				{"Cost", fmt.Sprintf("%.1f", plan.Info.Cost)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVarP(&to, "to", "t", "", "Target MIME type (required)")
	cmd.Flags().StringVar(&from, "from", "", "Source MIME type, detected when empty")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags convertFlags
	cmd := &cobra.Command{
		Use:   "run INPUT",
		Short: "Convert a single file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := buildJobs(args, &flags)
			if err != nil {
				return err
			}
			return runJobs(cmd.Context(), ctx, cmd, jobs, flags.outputDir(ctx))
		},
	}
	flags.register(cmd)
	return cmd
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var flags convertFlags
	cmd := &cobra.Command{
		Use:   "batch FILES...",
		Short: "Convert several files in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.config.EnsureStateDir(); err != nil {
				return err
			}
			lock := flock.New(ctx.config.LockFile())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !locked {
				return errors.New("another conversion batch is running")
			}
			defer func() { _ = lock.Unlock() }()

			jobs, err := buildJobs(args, &flags)
			if err != nil {
				return err
			}
			return runJobs(cmd.Context(), ctx, cmd, jobs, flags.outputDir(ctx))
		},
	}
	flags.register(cmd)
	return cmd
}

func buildJobs(paths []string, flags *convertFlags) ([]*job.Job, error) {
	opts, err := flags.jobOptions()
	if err != nil {
		return nil, err
	}
	dst := detect.Normalize(flags.to)
	src := ""
	if flags.from != "" {
		src = detect.Normalize(flags.from)
	}
	jobs := make([]*job.Job, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job.New(abs, src, dst, opts))
	}
	return jobs, nil
}

// runJobs converts jobs in order and fails when any of them failed.
func runJobs(cmdCtx context.Context, ctx *commandContext, cmd *cobra.Command, jobs []*job.Job, outputDir string) error {
	eng, cleanup, err := ctx.newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	printer := newProgressPrinter(cmd.OutOrStdout())
	eng.RunBatch(cmdCtx, jobs, outputDir, printer.Update)
	if err := cmdCtx.Err(); err != nil {
		return err
	}

	failed := 0
	for _, j := range jobs {
		if j.Status() != job.StatusDone {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(jobs))
	}
	return nil
}

func resolveSourceMIME(path, from string) (string, error) {
	if from != "" {
		return detect.Normalize(from), nil
	}
	return detect.Sniff(path)
}
