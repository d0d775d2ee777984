package engine

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsthejuice/File-Converter/internal/converter"
	"github.com/itsthejuice/File-Converter/internal/ffprobe"
	"github.com/itsthejuice/File-Converter/internal/job"
	"github.com/itsthejuice/File-Converter/internal/presets"
	"github.com/itsthejuice/File-Converter/internal/runner"
)

type stubModule struct {
	run func(dstPath string, opts job.Options, onLine runner.LineFunc) error
}

func (s *stubModule) Available() bool { return true }

func (s *stubModule) Capabilities() []converter.Capability {
	return []converter.Capability{{
		Inputs:  []string{"audio/*", "video/*"},
		Outputs: []string{"audio/mp3", "video/mp4"},
		Params: map[string]converter.ParamSpec{
			"crf": {Kind: converter.ParamInt, Min: intp(0), Max: intp(51), Optional: true},
		},
	}}
}

func (s *stubModule) Plan(string, string) (converter.PlanInfo, error) {
	return converter.PlanInfo{Cost: 1, Lossiness: converter.Lossy}, nil
}

func (s *stubModule) Run(_ context.Context, _, dstPath, _ string, opts job.Options, onLine runner.LineFunc) error {
	return s.run(dstPath, opts, onLine)
}

func intp(n int) *int { return &n }

func writeOutput(dstPath string, _ job.Options, onLine runner.LineFunc) error {
	onLine("Duration: 00:00:10.00, start: 0.000000")
	onLine("size=  12kB time=00:00:05.00 bitrate= 19.7kbits/s speed=10x")
	return os.WriteFile(dstPath, []byte("converted"), 0o644)
}

type fixedProber float64

func (p fixedProber) Duration(context.Context, string) (float64, error) { return float64(p), nil }

type failingProber struct{}

func (failingProber) Duration(context.Context, string) (float64, error) {
	return 0, errors.New("no ffprobe")
}

type memRecorder struct {
	mu    sync.Mutex
	snaps []job.Snapshot
}

func (r *memRecorder) Record(s job.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(t *testing.T, mod converter.Module) *Engine {
	t.Helper()
	reg := converter.NewRegistry(quietLogger())
	m := converter.Manifest{Name: "stub", Version: "1.0.0", Entry: "test", Capabilities: mod.Capabilities()}
	require.NoError(t, reg.Register(converter.NewPlugin(m, mod)))
	return &Engine{Registry: reg, Presets: presets.Defaults(), Logger: quietLogger()}
}

func sourceFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("source"), 0o644))
	return path
}

type progressLog struct {
	mu    sync.Mutex
	snaps []job.Snapshot
}

func (p *progressLog) observe(s job.Snapshot) {
	p.mu.Lock()
	p.snaps = append(p.snaps, s)
	p.mu.Unlock()
}

func TestRunJob_Success(t *testing.T) {
	e := newEngine(t, &stubModule{run: writeOutput})
	e.Prober = fixedProber(10)
	rec := &memRecorder{}
	e.Recorder = rec

	src := sourceFile(t, "clip.wav")
	j := job.New(src, "audio/wav", "audio/mp3", job.Options{"quality": job.IntValue(2)})
	var seen progressLog

	e.RunJob(context.Background(), j, "", seen.observe)

	snap := j.Snapshot()
	require.Equal(t, job.StatusDone, snap.Status, snap.Logs)
	assert.Equal(t, 1.0, snap.Progress)
	assert.Equal(t, filepath.Join(filepath.Dir(src), "clip.mp3"), snap.OutputPath)

	info, err := os.Stat(snap.OutputPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	var mid []float64
	for _, s := range seen.snaps {
		if s.Status == job.StatusRunning && s.Progress > 0 {
			mid = append(mid, s.Progress)
		}
	}
	assert.Equal(t, []float64{0.5}, mid)
	assert.Equal(t, job.StatusDone, seen.snaps[len(seen.snaps)-1].Status)

	data, err := os.ReadFile(ReportPath(snap.OutputPath))
	require.NoError(t, err)
	var rep Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, snap.ID, rep.JobID)
	assert.Equal(t, job.StatusDone, rep.Status)
	assert.Equal(t, "stub", rep.Plugin)
	assert.Equal(t, job.IntValue(2), rep.Options["quality"])

	require.Len(t, rec.snaps, 1)
	assert.Equal(t, job.StatusDone, rec.snaps[0].Status)
}

func TestRunJob_SniffsSource(t *testing.T) {
	e := newEngine(t, &stubModule{run: writeOutput})
	// Empty files are typed by extension.
	src := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(src, nil, 0o644))
	j := job.New(src, "", "audio/mp3", nil)

	e.RunJob(context.Background(), j, t.TempDir(), nil)

	snap := j.Snapshot()
	require.Equal(t, job.StatusDone, snap.Status, snap.Logs)
	assert.Equal(t, "video/mp4", snap.SrcMime)
	assert.Contains(t, snap.Logs, "detected type: video/mp4")
}

func TestRunJob_NoRoute(t *testing.T) {
	e := newEngine(t, &stubModule{run: writeOutput})
	j := job.New(sourceFile(t, "doc.txt"), "text/plain", "video/mp4", nil)
	var seen progressLog

	e.RunJob(context.Background(), j, "", seen.observe)

	snap := j.Snapshot()
	assert.Equal(t, job.StatusError, snap.Status)
	assert.Contains(t, snap.LastLog(), "no conversion route found for text/plain -> video/mp4")
	assert.Equal(t, job.StatusError, seen.snaps[len(seen.snaps)-1].Status)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(snap.SrcPath), "doc.mp4"))
}

func TestRunJob_MissingSource(t *testing.T) {
	e := newEngine(t, &stubModule{run: writeOutput})
	j := job.New(filepath.Join(t.TempDir(), "absent.wav"), "", "audio/mp3", nil)

	e.RunJob(context.Background(), j, "", nil)

	snap := j.Snapshot()
	assert.Equal(t, job.StatusError, snap.Status)
	assert.Contains(t, snap.LastLog(), "file not found")
}

func TestRunJob_OutputMissing(t *testing.T) {
	e := newEngine(t, &stubModule{run: func(string, job.Options, runner.LineFunc) error { return nil }})
	j := job.New(sourceFile(t, "clip.wav"), "audio/wav", "audio/mp3", nil)

	e.RunJob(context.Background(), j, "", nil)

	snap := j.Snapshot()
	assert.Equal(t, job.StatusError, snap.Status)
	assert.Contains(t, snap.LastLog(), ErrOutputMissing.Error())
}

func TestRunJob_ToolFailure(t *testing.T) {
	e := newEngine(t, &stubModule{run: func(_ string, _ job.Options, onLine runner.LineFunc) error {
		onLine("frame=  10 time=00:00:02.00")
		return &runner.ExecutionError{Command: []string{"ffmpeg"}, ReturnCode: 1, Tail: []string{"Invalid data found when processing input"}}
	}})
	e.Prober = fixedProber(10)
	j := job.New(sourceFile(t, "clip.wav"), "audio/wav", "audio/mp3", nil)

	e.RunJob(context.Background(), j, "", nil)

	snap := j.Snapshot()
	assert.Equal(t, job.StatusError, snap.Status)
	assert.InDelta(t, 0.2, snap.Progress, 1e-9)
	assert.GreaterOrEqual(t, snap.Progress, 0.0)
	assert.LessOrEqual(t, snap.Progress, 1.0)
	assert.Contains(t, snap.LastLog(), "Invalid data found")
}

func TestRunJob_InvalidOptions(t *testing.T) {
	e := newEngine(t, &stubModule{run: writeOutput})
	j := job.New(sourceFile(t, "clip.mov"), "video/quicktime", "video/mp4", job.Options{"crf": job.IntValue(99)})

	e.RunJob(context.Background(), j, "", nil)

	assert.Equal(t, job.StatusError, j.Status())
	assert.Contains(t, j.Snapshot().LastLog(), "invalid options")
}

func TestRunJob_NeverOverwrites(t *testing.T) {
	e := newEngine(t, &stubModule{run: writeOutput})
	src := sourceFile(t, "clip.wav")
	existing := filepath.Join(filepath.Dir(src), "clip.mp3")
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0o644))

	j := job.New(src, "audio/wav", "audio/mp3", nil)
	e.RunJob(context.Background(), j, "", nil)

	snap := j.Snapshot()
	require.Equal(t, job.StatusDone, snap.Status, snap.Logs)
	assert.Equal(t, filepath.Join(filepath.Dir(src), "clip_1.mp3"), snap.OutputPath)
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestRunJob_AppliesPreset(t *testing.T) {
	var got job.Options
	e := newEngine(t, &stubModule{run: func(dst string, opts job.Options, onLine runner.LineFunc) error {
		got = opts
		return writeOutput(dst, opts, onLine)
	}})
	j := job.New(sourceFile(t, "clip.mov"), "video/quicktime", "video/mp4", job.Options{
		"preset": job.StringValue("web_720p"),
		"crf":    job.IntValue(20),
	})

	e.RunJob(context.Background(), j, "", nil)

	require.Equal(t, job.StatusDone, j.Status(), j.Snapshot().Logs)
	assert.Equal(t, job.Options{
		"crf":    job.IntValue(20),
		"preset": job.StringValue("medium"),
		"scale":  job.StringValue("1280:720"),
	}, got)
	assert.Equal(t, job.StringValue("web_720p"), j.Options()["preset"])
}

func TestRunJob_ProbeFailureIsNotFatal(t *testing.T) {
	e := newEngine(t, &stubModule{run: writeOutput})
	e.Prober = failingProber{}
	j := job.New(sourceFile(t, "clip.wav"), "audio/wav", "audio/mp3", nil)
	var seen progressLog

	e.RunJob(context.Background(), j, "", seen.observe)

	require.Equal(t, job.StatusDone, j.Status())
	var pulses int
	for _, s := range seen.snaps {
		if s.Status == job.StatusRunning && s.Progress == 0.5 {
			pulses++
		}
	}
	assert.Equal(t, 1, pulses)
}

func TestRunJob_TerminalJobUntouched(t *testing.T) {
	e := newEngine(t, &stubModule{run: writeOutput})
	j := job.New(sourceFile(t, "clip.wav"), "audio/wav", "audio/mp3", nil)
	require.NoError(t, j.Fail(errors.New("cancelled by user")))
	calls := 0

	e.RunJob(context.Background(), j, "", func(job.Snapshot) { calls++ })

	assert.Equal(t, job.StatusError, j.Status())
	assert.Zero(t, calls)
	assert.Equal(t, []string{"cancelled by user"}, j.Snapshot().Logs)
}

func TestRunJob_RunningJobUntouched(t *testing.T) {
	e := newEngine(t, &stubModule{run: writeOutput})
	j := job.New(sourceFile(t, "clip.wav"), "audio/wav", "audio/mp3", nil)
	require.NoError(t, j.Start())
	require.NoError(t, j.SetProgress(0.4))
	calls := 0

	e.RunJob(context.Background(), j, t.TempDir(), func(job.Snapshot) { calls++ })

	snap := j.Snapshot()
	assert.Equal(t, job.StatusRunning, snap.Status)
	assert.InDelta(t, 0.4, snap.Progress, 1e-9)
	assert.Empty(t, snap.Logs)
	assert.Zero(t, calls)
}

func TestRunBatch_SkipsNonQueued(t *testing.T) {
	e := newEngine(t, &stubModule{run: writeOutput})
	out := t.TempDir()

	first := job.New(sourceFile(t, "a.wav"), "audio/wav", "audio/mp3", nil)
	skipped := job.New(sourceFile(t, "b.wav"), "audio/wav", "audio/mp3", nil)
	require.NoError(t, skipped.Fail(errors.New("earlier failure")))
	broken := job.New(sourceFile(t, "c.txt"), "text/plain", "audio/mp3", nil)
	last := job.New(sourceFile(t, "d.wav"), "audio/wav", "audio/mp3", nil)

	var order []string
	e.RunBatch(context.Background(), []*job.Job{first, skipped, broken, last}, out, func(s job.Snapshot) {
		if s.Status.Terminal() {
			order = append(order, filepath.Base(s.SrcPath))
		}
	})

	assert.Equal(t, job.StatusDone, first.Status())
	assert.Equal(t, job.StatusError, skipped.Status())
	assert.Equal(t, []string{"earlier failure"}, skipped.Snapshot().Logs)
	assert.Equal(t, job.StatusError, broken.Status())
	assert.Equal(t, job.StatusDone, last.Status())
	assert.Equal(t, []string{"a.wav", "c.txt", "d.wav"}, order)
	assert.FileExists(t, filepath.Join(out, "a.mp3"))
	assert.FileExists(t, filepath.Join(out, "d.mp3"))
}

// writeSilentWAV writes a mono 16-bit PCM file of the given length.
func writeSilentWAV(t *testing.T, path string, seconds int) {
	t.Helper()
	const rate = 8000
	dataLen := uint32(rate * 2 * seconds)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	hdr := []any{
		[4]byte{'R', 'I', 'F', 'F'}, 36 + dataLen, [4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '}, uint32(16), uint16(1), uint16(1),
		uint32(rate), uint32(rate * 2), uint16(2), uint16(16),
		[4]byte{'d', 'a', 't', 'a'}, dataLen,
	}
	for _, v := range hdr {
		require.NoError(t, binary.Write(f, binary.LittleEndian, v))
	}
	_, err = f.Write(make([]byte, dataLen))
	require.NoError(t, err)
}

func TestRunJob_EndToEndWavToMP3(t *testing.T) {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not installed", tool)
		}
	}

	reg := converter.NewRegistry(quietLogger())
	require.Equal(t, 1, reg.RegisterBuiltins([]string{"ffmpeg"}))
	e := &Engine{Registry: reg, Presets: presets.Defaults(), Prober: ffprobe.New("", 0), Logger: quietLogger()}

	src := filepath.Join(t.TempDir(), "silence.wav")
	writeSilentWAV(t, src, 1)
	j := job.New(src, "", "audio/mp3", job.Options{"quality": job.IntValue(2)})

	var seen progressLog
	e.RunJob(context.Background(), j, t.TempDir(), seen.observe)

	snap := j.Snapshot()
	require.Equal(t, job.StatusDone, snap.Status, strings.Join(snap.Logs, "\n"))
	assert.Equal(t, 1.0, snap.Progress)
	info, err := os.Stat(snap.OutputPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	var progressed bool
	for _, s := range seen.snaps {
		if s.Status == job.StatusRunning && s.Progress > 0 {
			progressed = true
		}
	}
	assert.True(t, progressed)
}
