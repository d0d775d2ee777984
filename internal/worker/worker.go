// Package worker converts files queued by the watcher, one at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/itsthejuice/File-Converter/internal/db"
	"github.com/itsthejuice/File-Converter/internal/detect"
	"github.com/itsthejuice/File-Converter/internal/engine"
	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/utils"
)

// Index is the file index the worker consults to skip unchanged files.
type Index interface {
	GetFileIndex(path string) (*db.FileIndex, error)
	UpsertFileIndex(f *db.FileIndex) error
}

// ErrSkipped marks files the worker decided not to convert.
var ErrSkipped = errors.New("skipped")

// Options configure a Worker.
type Options struct {
	TargetMIME string
	// OutputDir receives every output. When empty, outputs go to a sibling
	// of the source directory named after the target extension.
	OutputDir    string
	StableDelay  time.Duration
	MD5ChunkSize int
	JobOptions   job.Options
}

// Worker drains a Queue through the engine.
type Worker struct {
	engine *engine.Engine
	index  Index
	queue  *Queue
	jobs   *job.Table
	opts   Options
	logger *slog.Logger
}

func New(eng *engine.Engine, index Index, q *Queue, jobs *job.Table, opts Options, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if jobs == nil {
		jobs = job.NewTable()
	}
	return &Worker{engine: eng, index: index, queue: q, jobs: jobs, opts: opts, logger: logger}
}

// Jobs exposes the table of jobs this worker created.
func (w *Worker) Jobs() *job.Table { return w.jobs }

// Run processes queued paths until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue.Chan():
			if err := w.Process(ctx, path); err != nil && !errors.Is(err, ErrSkipped) {
				w.logger.Warn("conversion failed", "path", path, "error", err)
			}
			w.queue.Dequeued(path)
		}
	}
}

// Process converts one file. Files whose content was already converted
// successfully, or that already have the target type, are skipped.
func (w *Worker) Process(ctx context.Context, path string) error {
	if err := utils.WaitFileStable(ctx, path, w.opts.StableDelay); err != nil {
		return fmt.Errorf("file not stable: %w", err)
	}
	sum, err := utils.MD5File(path, w.opts.MD5ChunkSize)
	if err != nil {
		return err
	}

	existing, err := w.index.GetFileIndex(path)
	if err != nil {
		return fmt.Errorf("file index: %w", err)
	}
	if existing != nil && existing.FileMD5 == sum && existing.Status == db.StatusSuccess {
		w.logger.Debug("already converted", "path", path)
		return ErrSkipped
	}

	srcMime, err := detect.Sniff(path)
	if err != nil {
		return err
	}
	if srcMime == w.opts.TargetMIME {
		w.logger.Debug("already target type", "path", path, "mime", srcMime)
		return ErrSkipped
	}

	entry := &db.FileIndex{FilePath: path, FileMD5: sum, Status: db.StatusProcessing}
	if err := w.index.UpsertFileIndex(entry); err != nil {
		w.logger.Warn("file index update failed", "path", path, "error", err)
	}

	j := job.New(path, srcMime, w.opts.TargetMIME, w.opts.JobOptions)
	w.jobs.Add(j)
	w.logger.Info("converting", "path", path, "job", j.ID(), "to", w.opts.TargetMIME)
	w.engine.RunJob(ctx, j, w.outputDir(path), nil)

	snap := j.Snapshot()
	entry.Status = db.StatusSuccess
	entry.OutputPath = snap.OutputPath
	if snap.Status != job.StatusDone {
		entry.Status = db.StatusFailed
	}
	if p, ok := w.engine.Registry.FindPluginFor(srcMime, w.opts.TargetMIME); ok {
		entry.Plugin = p.Name()
	}
	if err := w.index.UpsertFileIndex(entry); err != nil {
		w.logger.Warn("file index update failed", "path", path, "error", err)
	}
	if snap.Status != job.StatusDone {
		return errors.New(snap.LastLog())
	}
	w.logger.Info("converted", "path", path, "output", snap.OutputPath, "duration", snap.Duration())
	return nil
}

// outputDir mirrors /a/b/c/photo.jpg to /a/b/heic when no output dir is set.
func (w *Worker) outputDir(src string) string {
	if w.opts.OutputDir != "" {
		return w.opts.OutputDir
	}
	ext := strings.TrimPrefix(engine.ExtensionFor(w.opts.TargetMIME), ".")
	parent := filepath.Dir(filepath.Dir(src))
	return filepath.Join(parent, ext)
}
