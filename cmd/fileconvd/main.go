// Command fileconvd watches drop folders and converts new files.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/itsthejuice/File-Converter/internal/app"
	"github.com/itsthejuice/File-Converter/internal/config"
	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/logging"
	"github.com/itsthejuice/File-Converter/internal/utils"
	"github.com/itsthejuice/File-Converter/internal/watcher"
	"github.com/itsthejuice/File-Converter/internal/worker"
)

// jobRetention is how long finished jobs stay in the in-memory table.
const jobRetention = 24 * time.Hour

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var noScan bool

	cmd := &cobra.Command{
		Use:           "fileconvd",
		Short:         "Watch folders and convert new files",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFlag, !noScan)
		},
	}
	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	cmd.Flags().BoolVar(&noScan, "no-scan", false, "Skip the initial scan of the watch dirs")
	return cmd
}

func run(configPath string, scan bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if len(cfg.Watch.Dirs) == 0 {
		return errors.New("no watch dirs configured (set [watch] dirs or FC_WATCH_DIRS)")
	}
	if err := cfg.EnsureStateDir(); err != nil {
		return err
	}

	logger, closeLog, err := logging.NewFromConfig(cfg, cfg.LogFile())
	if err != nil {
		return err
	}
	defer closeLog()

	lock := flock.New(cfg.LockFile())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another fileconvd or batch run holds %s", cfg.LockFile())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release lock", "error", err)
		}
	}()

	logger.Info("starting fileconvd",
		"watch_dirs", cfg.Watch.Dirs,
		"target", cfg.Watch.TargetMIME,
		"recursive", cfg.Watch.Recursive,
		"state_dir", cfg.StateDir)
	app.WarnMissingTools(cfg, logger)

	store, err := app.OpenHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := app.NewRegistry(cfg, logger)
	eng, err := app.NewEngine(cfg, reg, store, logger)
	if err != nil {
		return err
	}

	outputDir := cfg.Watch.OutputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	queue := worker.NewQueue(1000)
	wrk := worker.New(eng, store, queue, nil, worker.Options{
		TargetMIME:   cfg.Watch.TargetMIME,
		OutputDir:    outputDir,
		StableDelay:  time.Duration(cfg.Watch.StableSeconds) * time.Second,
		MD5ChunkSize: utils.DefaultChunkSize,
	}, logger)

	enqueue := func(ev watcher.FileEvent) {
		if !queue.Enqueue(ev.Path) {
			logger.Debug("not queued", "path", ev.Path, "op", ev.Operation)
		}
	}
	w, err := watcher.New(cfg.Watch.Dirs, watcher.Options{
		Recursive:  cfg.Watch.Recursive,
		Extensions: cfg.Watch.Extensions,
	}, enqueue, logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		wrk.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := w.Start(ctx); err != nil {
			logger.Error("watcher stopped", "error", err)
		}
	}()

	if scan {
		n := w.Scan(ctx)
		logger.Info("initial scan complete", "files", n)
	}

	prune := time.NewTicker(time.Hour)
	defer prune.Stop()
	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case <-prune.C:
			if n := wrk.Jobs().Prune(jobRetention); n > 0 {
				logger.Debug("pruned finished jobs", "count", n)
			}
		}
	}
	logger.Info("shutting down", "in_flight", len(wrk.Jobs().Active()), "queued", queue.Len())
	queue.StopAccepting()
	wg.Wait()
	logSummary(logger, wrk)
	return nil
}

func logSummary(logger *slog.Logger, wrk *worker.Worker) {
	var done, failed int
	for _, s := range wrk.Jobs().Snapshots() {
		switch s.Status {
		case job.StatusDone:
			done++
		case job.StatusError:
			failed++
		}
	}
	logger.Info("shutdown complete", "converted_last_day", done, "failed_last_day", failed)
}
