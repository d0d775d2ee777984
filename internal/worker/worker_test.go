package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsthejuice/File-Converter/internal/converter"
	"github.com/itsthejuice/File-Converter/internal/db"
	"github.com/itsthejuice/File-Converter/internal/engine"
	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/logging"
	"github.com/itsthejuice/File-Converter/internal/runner"
)

type stubModule struct {
	fail bool
	runs int
}

func (s *stubModule) Available() bool { return true }

func (s *stubModule) Capabilities() []converter.Capability {
	return []converter.Capability{{Inputs: []string{"audio/*"}, Outputs: []string{"audio/mp3"}}}
}

func (s *stubModule) Plan(string, string) (converter.PlanInfo, error) {
	return converter.PlanInfo{Cost: 1, Lossiness: converter.Lossy}, nil
}

func (s *stubModule) Run(_ context.Context, _, dst, _ string, _ job.Options, onLine runner.LineFunc) error {
	s.runs++
	if s.fail {
		onLine("Unknown encoder 'libmp3lame'")
		return &runner.ExecutionError{Command: []string{"ffmpeg"}, ReturnCode: 1}
	}
	return os.WriteFile(dst, []byte("mp3"), 0o644)
}

type fixture struct {
	mod    *stubModule
	store  *db.DB
	queue  *Queue
	worker *Worker
}

func newFixture(t *testing.T, outputDir string) *fixture {
	t.Helper()
	mod := &stubModule{}
	reg := converter.NewRegistry(logging.Discard())
	m := converter.Manifest{Name: "stub_audio", Version: "1.0.0", Entry: "test", Capabilities: mod.Capabilities()}
	require.NoError(t, reg.Register(converter.NewPlugin(m, mod)))

	store, err := db.New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	eng := &engine.Engine{Registry: reg, Recorder: store, Logger: logging.Discard()}
	q := NewQueue(8)
	w := New(eng, store, q, nil, Options{TargetMIME: "audio/mp3", OutputDir: outputDir, StableDelay: time.Millisecond}, logging.Discard())
	return &fixture{mod: mod, store: store, queue: q, worker: w}
}

// writeWAV writes enough of a RIFF header for content sniffing.
func writeWAV(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 64)...)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestQueue(t *testing.T) {
	q := NewQueue(2)
	assert.True(t, q.Enqueue("/a"))
	assert.False(t, q.Enqueue("/a"))
	assert.True(t, q.Enqueue("/b"))
	assert.False(t, q.Enqueue("/c"), "buffer full")
	assert.Equal(t, 2, q.Len())

	assert.Equal(t, "/a", <-q.Chan())
	q.Dequeued("/a")
	assert.True(t, q.Enqueue("/a"))

	q.StopAccepting()
	assert.False(t, q.Enqueue("/d"))
}

func TestProcess_ConvertsOnce(t *testing.T) {
	out := t.TempDir()
	f := newFixture(t, out)
	src := filepath.Join(t.TempDir(), "in", "take1.wav")
	writeWAV(t, src)

	require.NoError(t, f.worker.Process(context.Background(), src))
	assert.FileExists(t, filepath.Join(out, "take1.mp3"))

	entry, err := f.store.GetFileIndex(src)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, db.StatusSuccess, entry.Status)
	assert.Equal(t, "stub_audio", entry.Plugin)
	assert.Equal(t, filepath.Join(out, "take1.mp3"), entry.OutputPath)

	history, err := f.store.ListHistory(10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "done", history[0].Status)

	err = f.worker.Process(context.Background(), src)
	assert.ErrorIs(t, err, ErrSkipped)
	assert.Equal(t, 1, f.mod.runs)
	assert.Len(t, f.worker.Jobs().Snapshots(), 1)
}

func TestProcess_Failure(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.mod.fail = true
	src := filepath.Join(t.TempDir(), "take2.wav")
	writeWAV(t, src)

	err := f.worker.Process(context.Background(), src)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSkipped))

	entry, err := f.store.GetFileIndex(src)
	require.NoError(t, err)
	assert.Equal(t, db.StatusFailed, entry.Status)

	// Failed files are retried.
	f.mod.fail = false
	require.NoError(t, f.worker.Process(context.Background(), src))
	assert.Equal(t, 2, f.mod.runs)
}

func TestProcess_SkipsTargetType(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.worker.opts.TargetMIME = "audio/wav"
	src := filepath.Join(t.TempDir(), "already.wav")
	writeWAV(t, src)

	assert.ErrorIs(t, f.worker.Process(context.Background(), src), ErrSkipped)
	assert.Zero(t, f.mod.runs)
}

func TestOutputDir_Sibling(t *testing.T) {
	f := newFixture(t, "")
	assert.Equal(t, filepath.Join("/data", "photos", "mp3"), f.worker.outputDir("/data/photos/inbox/a.wav"))
}

func TestRun_DrainsQueue(t *testing.T) {
	out := t.TempDir()
	f := newFixture(t, out)
	src := filepath.Join(t.TempDir(), "take3.wav")
	writeWAV(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		f.worker.Run(ctx)
		close(done)
	}()

	require.True(t, f.queue.Enqueue(src))
	assert.Eventually(t, func() bool {
		for _, s := range f.worker.Jobs().Snapshots() {
			if s.Status == job.StatusDone {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return f.queue.Len() == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
