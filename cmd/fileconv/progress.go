package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/itsthejuice/File-Converter/internal/job"
)

const (
	progressBarWidth = 30
	progressStep     = 0.05
)

// progressPrinter renders job updates. On a terminal it redraws one line in
// place, otherwise it prints a line every progressStep.
type progressPrinter struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	last        map[string]float64
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, interactive: isTerminal(out), last: make(map[string]float64)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *progressPrinter) Update(s job.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Status.Terminal() {
		if p.interactive {
			fmt.Fprint(p.out, "\r\033[K")
		}
		fmt.Fprintln(p.out, finalLine(s))
		delete(p.last, s.ID)
		return
	}
	if s.Status != job.StatusRunning {
		return
	}
	if p.interactive {
		fmt.Fprintf(p.out, "\r\033[K%s %s %3.0f%%", shortName(s.SrcPath), progressBar(s.Progress), s.Progress*100)
		return
	}
	prev, seen := p.last[s.ID]
	if seen && s.Progress-prev < progressStep {
		return
	}
	p.last[s.ID] = s.Progress
	fmt.Fprintf(p.out, "%s %3.0f%%\n", shortName(s.SrcPath), s.Progress*100)
}

func finalLine(s job.Snapshot) string {
	if s.Status == job.StatusDone {
		return fmt.Sprintf("done  %s -> %s", shortName(s.SrcPath), s.OutputPath)
	}
	return fmt.Sprintf("error %s: %s", shortName(s.SrcPath), s.LastLog())
}

func progressBar(p float64) string {
	filled := int(p * progressBarWidth)
	filled = min(max(filled, 0), progressBarWidth)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled) + "]"
}

func shortName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
