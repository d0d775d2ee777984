// Package engine runs conversion jobs: it plans a route, resolves options and
// the output path, drives the plugin and finalizes the job.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/itsthejuice/File-Converter/internal/converter"
	"github.com/itsthejuice/File-Converter/internal/detect"
	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/planner"
	"github.com/itsthejuice/File-Converter/internal/presets"
)

// DurationProber reports the media duration of a file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Recorder persists finished jobs.
type Recorder interface {
	Record(s job.Snapshot) error
}

// ProgressFunc observes a job. It may be called from any goroutine.
type ProgressFunc func(job.Snapshot)

// Engine executes jobs one at a time. Registry is required; Presets, Prober
// and Recorder are optional.
type Engine struct {
	Registry *converter.Registry
	Presets  *presets.Store
	Prober   DurationProber
	Recorder Recorder
	Logger   *slog.Logger
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// RunJob converts j and leaves it in a terminal state. Failures are recorded
// on the job rather than returned. Cancelling ctx kills the running tool.
func (e *Engine) RunJob(ctx context.Context, j *job.Job, outputDir string, onProgress ProgressFunc) {
	notify := func() {
		if onProgress != nil {
			onProgress(j.Snapshot())
		}
	}
	log := e.logger().With("job", j.ID())

	// Only queued jobs are advanced; anything else is left as it is.
	if err := j.Start(); err != nil {
		log.Warn("job not started", "status", j.Status(), "error", err)
		return
	}
	notify()

	res, err := e.convert(ctx, j, outputDir, notify)
	if err != nil {
		_ = j.Fail(err)
		log.Warn("conversion failed", "src", j.SourcePath(), "error", err)
	} else {
		log.Info("conversion finished", "src", j.SourcePath(), "output", res.output, "plugin", res.plugin)
	}
	notify()

	snap := j.Snapshot()
	if err == nil {
		rep := Report{
			JobID:      snap.ID,
			SrcPath:    snap.SrcPath,
			SrcMime:    snap.SrcMime,
			DstMime:    snap.DstMime,
			OutputPath: snap.OutputPath,
			Status:     snap.Status,
			Plugin:     res.plugin,
			Options:    res.options,
			FinishedAt: snap.FinishedAt,
		}
		if rerr := writeReport(rep); rerr != nil {
			log.Debug("job report not written", "error", rerr)
		}
	}
	if e.Recorder != nil {
		if rerr := e.Recorder.Record(snap); rerr != nil {
			log.Debug("job not recorded", "error", rerr)
		}
	}
}

// RunBatch runs the queued jobs in order. Jobs in any other state are left
// untouched.
func (e *Engine) RunBatch(ctx context.Context, jobs []*job.Job, outputDir string, onUpdate ProgressFunc) {
	for _, j := range jobs {
		if ctx.Err() != nil {
			return
		}
		if j.Status() != job.StatusQueued {
			continue
		}
		e.RunJob(ctx, j, outputDir, onUpdate)
	}
}

type result struct {
	output  string
	plugin  string
	options job.Options
}

func (e *Engine) convert(ctx context.Context, j *job.Job, outputDir string, notify func()) (result, error) {
	src := j.SourcePath()
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return result{}, fmt.Errorf("%w: %w", detect.ErrNotFound, err)
	}

	srcMime := j.SourceMIME()
	if srcMime == "" {
		m, err := detect.Sniff(src)
		if err != nil {
			return result{}, err
		}
		srcMime = m
		j.SetSourceMIME(m)
		j.Log("detected type: " + m)
	}
	dstMime := j.DestMIME()
	j.Log(fmt.Sprintf("starting conversion: %s -> %s", srcMime, dstMime))

	plan, ok := planner.Plan(srcMime, dstMime, e.Registry, e.logger())
	if !ok {
		return result{}, &NoRouteFoundError{Src: srcMime, Dst: dstMime}
	}
	j.Log(fmt.Sprintf("using plugin: %s (%s, cost %.1f)", plan.Plugin, plan.Info.Lossiness, plan.Info.Cost))

	opts, presetName := e.resolveOptions(dstMime, j.Options())
	if presetName != "" {
		j.Log("applied preset: " + presetName)
	}
	if c, ok := plan.Plugin.CapabilityFor(srcMime, dstMime); ok {
		if err := c.CheckOptions(opts); err != nil {
			return result{}, fmt.Errorf("invalid options: %w", err)
		}
	}

	out, err := ResolveOutputPath(src, dstMime, outputDir)
	if err != nil {
		return result{}, err
	}
	j.Log("output: " + out)

	duration := e.probe(ctx, src)

	onLine := func(line string) {
		j.Log(line)
		p, ok := ParseProgress(line, duration)
		if !ok {
			return
		}
		if err := j.SetProgress(p); err == nil {
			notify()
		}
	}
	if err := plan.Plugin.Run(ctx, src, out, dstMime, opts, onLine); err != nil {
		return result{}, err
	}
	if err := checkOutput(out); err != nil {
		return result{}, err
	}
	if err := j.Finish(out); err != nil {
		return result{}, err
	}
	j.Log("conversion completed successfully")
	return result{output: out, plugin: plan.Plugin.Name(), options: opts}, nil
}

// probe returns the source duration in seconds, or 0 when it is unknown.
func (e *Engine) probe(ctx context.Context, path string) float64 {
	if e.Prober == nil {
		return 0
	}
	d, err := e.Prober.Duration(ctx, path)
	if err != nil {
		e.logger().Debug("duration unknown", "path", path, "error", err)
		return 0
	}
	return d
}
