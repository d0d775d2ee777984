package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itsthejuice/File-Converter/internal/job"
)

func TestProgressPrinter_NonInteractiveSteps(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)
	assert.False(t, p.interactive)

	snap := job.Snapshot{ID: "a", SrcPath: "/in/clip.mp4", Status: job.StatusRunning}
	for _, v := range []float64{0, 0.01, 0.03, 0.06, 0.07, 0.2} {
		snap.Progress = v
		p.Update(snap)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"clip.mp4   0%", "clip.mp4   6%", "clip.mp4  20%"}, lines)
}

func TestProgressPrinter_Final(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)

	p.Update(job.Snapshot{ID: "a", SrcPath: "/in/a.wav", Status: job.StatusDone, OutputPath: "/out/a.mp3"})
	p.Update(job.Snapshot{ID: "b", SrcPath: "/in/b.wav", Status: job.StatusError, Logs: []string{"x", "boom"}})
	p.Update(job.Snapshot{ID: "c", SrcPath: "/in/c.wav", Status: job.StatusQueued})

	assert.Equal(t, "done  a.wav -> /out/a.mp3\nerror b.wav: boom\n", buf.String())
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "["+strings.Repeat(".", progressBarWidth)+"]", progressBar(0))
	assert.Equal(t, "["+strings.Repeat("#", progressBarWidth)+"]", progressBar(1.5))
	assert.Equal(t, 15, strings.Count(progressBar(0.5), "#"))
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "a.mp4", shortName("/x/y/a.mp4"))
	assert.Equal(t, "a.mp4", shortName(`C:\x\a.mp4`))
	assert.Equal(t, "a.mp4", shortName("a.mp4"))
}
