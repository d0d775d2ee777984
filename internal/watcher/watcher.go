// Package watcher reports new and modified files under drop folders.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/itsthejuice/File-Converter/internal/utils"
)

// FileEvent is a candidate file for conversion.
type FileEvent struct {
	Path      string
	Operation string
	Timestamp time.Time
}

// Handler receives events. It is called from the watcher goroutine and must
// not block for long.
type Handler func(FileEvent)

// Options filter what the watcher reports.
type Options struct {
	Recursive bool
	// Extensions limits reported files, lowercase with the dot. Empty
	// reports every file.
	Extensions []string
}

type Watcher struct {
	w       *fsnotify.Watcher
	roots   []string
	opts    Options
	handler Handler
	logger  *slog.Logger

	mu     sync.Mutex
	paused bool
}

// New creates a watcher over roots. Nothing is watched until Start.
func New(roots []string, opts Options, handler Handler, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{w: w, roots: roots, opts: opts, handler: handler, logger: logger}, nil
}

// Start registers the roots and dispatches events until ctx is done.
func (wr *Watcher) Start(ctx context.Context) error {
	if err := wr.registerAll(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-wr.w.Events:
			if !ok {
				return nil
			}
			wr.handleEvent(ev)
		case err, ok := <-wr.w.Errors:
			if !ok {
				return nil
			}
			wr.logger.Warn("watcher error", "error", err)
		}
	}
}

func (wr *Watcher) Close() error { return wr.w.Close() }

func (wr *Watcher) Pause()       { wr.mu.Lock(); wr.paused = true; wr.mu.Unlock() }
func (wr *Watcher) Resume()      { wr.mu.Lock(); wr.paused = false; wr.mu.Unlock() }
func (wr *Watcher) Paused() bool { wr.mu.Lock(); defer wr.mu.Unlock(); return wr.paused }

// Scan reports every existing matching file under the roots, so files that
// arrived while the daemon was down are picked up.
func (wr *Watcher) Scan(ctx context.Context) int {
	n := 0
	for _, root := range wr.roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctx.Err() != nil {
				return filepath.SkipAll
			}
			if d.IsDir() {
				if path != root && !wr.opts.Recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if wr.wants(path) {
				wr.handler(FileEvent{Path: path, Operation: "scan", Timestamp: time.Now()})
				n++
			}
			return nil
		})
	}
	return n
}

func (wr *Watcher) registerAll() error {
	for _, root := range wr.roots {
		if _, err := os.Stat(root); err != nil {
			wr.logger.Warn("watch dir unavailable", "dir", root, "error", err)
			continue
		}
		wr.addTree(root)
	}
	return nil
}

func (wr *Watcher) addTree(root string) {
	if !wr.opts.Recursive {
		if err := wr.w.Add(root); err != nil {
			wr.logger.Warn("watch failed", "dir", root, "error", err)
		}
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := wr.w.Add(path); err != nil {
				wr.logger.Warn("watch failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}

func (wr *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	fi, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if fi.IsDir() {
		if ev.Has(fsnotify.Create) && wr.opts.Recursive {
			wr.addTree(ev.Name)
		}
		return
	}
	if wr.Paused() || !wr.wants(ev.Name) {
		return
	}
	wr.handler(FileEvent{Path: ev.Name, Operation: ev.Op.String(), Timestamp: time.Now()})
}

func (wr *Watcher) wants(path string) bool {
	return !utils.IsPartial(path) && utils.MatchesExtension(path, wr.opts.Extensions)
}
